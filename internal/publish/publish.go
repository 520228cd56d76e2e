// Package publish commits approved captures to the content repository.
// A batch of N captures produces exactly one commit: standalone files for
// notes/TILs, merged activity entries for project updates, and binary
// blobs for inline images. The branch ref update is the sole commit
// point; any earlier failure leaves the repository untouched.
package publish

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tendfield/garden/internal/capture"
	"github.com/tendfield/garden/internal/errors"
	"github.com/tendfield/garden/internal/githost"
	"github.com/tendfield/garden/internal/transform"
)

// Host is the slice of the hosting API the publisher needs.
type Host interface {
	Ref(ctx context.Context) (string, error)
	CommitTree(ctx context.Context, commitSHA string) (string, error)
	CreateBlob(ctx context.Context, content, encoding string) (string, error)
	CreateTree(ctx context.Context, baseTree string, entries []githost.TreeEntry) (string, error)
	CreateCommit(ctx context.Context, message, treeSHA string, parents []string) (string, error)
	UpdateRef(ctx context.Context, commitSHA string) error
	GetContents(ctx context.Context, path string) (*githost.FileContent, error)
}

// Publisher batches approved captures into single commits.
type Publisher struct {
	host        Host
	contentRoot string
}

// New creates a Publisher committing under the given content root.
func New(host Host, contentRoot string) *Publisher {
	return &Publisher{host: host, contentRoot: contentRoot}
}

// ItemInfo is the per-capture outcome of a batch publish.
type ItemInfo struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Slug       string             `json:"slug"`
	Collection capture.Collection `json:"collection"`
	Path       string             `json:"path"`
}

// Result is the outcome of a batch publish.
type Result struct {
	CommitSHA    string     `json:"commitSha"`
	FilesChanged int        `json:"filesChanged"`
	Items        []ItemInfo `json:"items"`
}

// fileChange is one file's final state in the commit.
type fileChange struct {
	path     string
	content  string
	encoding string // "utf-8" or "base64"
}

// UseRefined resolves a capture's publish preference: nil means "use
// refined content when available".
func UseRefined(c *capture.Capture) bool {
	return c.PublishUseRefined == nil || *c.PublishUseRefined
}

// BatchPublish transforms the captures, merges project updates, and
// lands everything in one commit.
func (p *Publisher) BatchPublish(ctx context.Context, captures []*capture.Capture) (*Result, error) {
	if len(captures) == 0 {
		return nil, errors.NewInvalidRequest("no captures to publish")
	}

	changes := []fileChange{}
	items := []ItemInfo{}
	projectGroups := map[string][]*capture.Capture{}
	projectOrder := []string{}

	for _, c := range captures {
		out := transform.Transform(c, UseRefined(c))

		if out.Project != nil {
			slug := out.Project.ProjectSlug
			if _, seen := projectGroups[slug]; !seen {
				projectOrder = append(projectOrder, slug)
			}
			projectGroups[slug] = append(projectGroups[slug], c)
			continue
		}

		f := out.File
		body := f.Body
		if data, ok := inlineImage(c); ok {
			imagePath := transform.ImagePath(c)
			imageRef := strings.TrimPrefix(imagePath, "public")
			body = fmt.Sprintf("![%s](%s)\n\n%s", f.Title, imageRef, body)
			changes = append(changes, fileChange{path: imagePath, content: data, encoding: "base64"})
		}

		changes = append(changes, fileChange{
			path:     transform.ContentPath(p.contentRoot, f),
			content:  transform.BuildDocument(f.Frontmatter, body),
			encoding: "utf-8",
		})
		items = append(items, ItemInfo{
			ID:         c.ID,
			Title:      f.Title,
			Slug:       strings.TrimSuffix(f.Filename, ".md"),
			Collection: f.Collection,
			Path:       transform.ContentPath(p.contentRoot, f),
		})
	}

	// Project updates: fetch each target document once, then splice the
	// group's entries oldest-first so the final document reads newest
	// activity first, all ahead of pre-existing entries.
	for _, slug := range projectOrder {
		group := projectGroups[slug]
		path := transform.ProjectPath(p.contentRoot, slug)

		doc, err := p.host.GetContents(ctx, path)
		if err != nil {
			if _, ok := err.(*githost.NotFoundError); ok {
				return nil, errors.NewNotFound(fmt.Sprintf("project %s", slug))
			}
			return nil, errors.NewUpstream("fetch project document", err)
		}

		results := make([]*transform.ActivityResult, len(group))
		for i, c := range group {
			results[i] = transform.Transform(c, UseRefined(c)).Project
			items = append(items, ItemInfo{
				ID:         c.ID,
				Title:      results[i].Activity.Title,
				Slug:       slug,
				Collection: capture.CollectionProjectUpdate,
				Path:       path,
			})
		}

		merged := make([]*transform.ActivityResult, len(results))
		copy(merged, results)
		sort.SliceStable(merged, func(i, j int) bool {
			return merged[i].Activity.Date < merged[j].Activity.Date
		})

		content := doc.Content
		for _, r := range merged {
			content, err = MergeActivity(content, transform.SerializeActivityEntry(r.Activity))
			if err != nil {
				return nil, errors.NewInternal(fmt.Errorf("merge activity into %s: %w", slug, err))
			}
			if r.ImageData != "" {
				changes = append(changes, fileChange{
					path:     "public" + r.Activity.Image,
					content:  r.ImageData,
					encoding: "base64",
				})
			}
		}
		changes = append(changes, fileChange{path: path, content: content, encoding: "utf-8"})
	}

	changes = dedupePaths(changes)

	commitSHA, err := p.commit(ctx, changes, commitMessage(items))
	if err != nil {
		return nil, err
	}

	return &Result{
		CommitSHA:    commitSHA,
		FilesChanged: len(changes),
		Items:        items,
	}, nil
}

// inlineImage returns the first base64 payload on the capture.
func inlineImage(c *capture.Capture) (string, bool) {
	for _, img := range c.Images {
		if img.Data != "" {
			return img.Data, true
		}
	}
	return "", false
}

// dedupePaths keeps the last change per path, preserving first-seen
// order. A project touched by several captures yields one final state.
func dedupePaths(changes []fileChange) []fileChange {
	last := map[string]fileChange{}
	order := []string{}
	for _, ch := range changes {
		if _, seen := last[ch.path]; !seen {
			order = append(order, ch.path)
		}
		last[ch.path] = ch
	}
	out := make([]fileChange, 0, len(order))
	for _, path := range order {
		out = append(out, last[path])
	}
	return out
}

// commitMessage builds the batch commit message: a literal title for a
// single item, a bulleted summary capped at 3 titles otherwise.
func commitMessage(items []ItemInfo) string {
	if len(items) == 1 {
		return fmt.Sprintf("content: add %q", items[0].Title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "content: add %d items\n\n", len(items))
	for i, item := range items {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", item.Title)
	}
	if len(items) > 3 {
		fmt.Fprintf(&b, "- ... and %d more\n", len(items)-3)
	}
	return strings.TrimRight(b.String(), "\n")
}

// commit runs the tree-based commit protocol: head ref, base tree, one
// blob per file, one tree, one commit, one ref update.
func (p *Publisher) commit(ctx context.Context, changes []fileChange, message string) (string, error) {
	headSHA, err := p.host.Ref(ctx)
	if err != nil {
		return "", errors.NewUpstream("get ref", err)
	}
	baseTree, err := p.host.CommitTree(ctx, headSHA)
	if err != nil {
		return "", errors.NewUpstream("get commit", err)
	}

	entries := make([]githost.TreeEntry, len(changes))
	for i, ch := range changes {
		blobSHA, err := p.host.CreateBlob(ctx, ch.content, ch.encoding)
		if err != nil {
			return "", errors.NewUpstream(fmt.Sprintf("create blob for %s", ch.path), err)
		}
		entries[i] = githost.TreeEntry{
			Path: ch.path,
			Mode: "100644",
			Type: "blob",
			SHA:  blobSHA,
		}
	}

	treeSHA, err := p.host.CreateTree(ctx, baseTree, entries)
	if err != nil {
		return "", errors.NewUpstream("create tree", err)
	}
	commitSHA, err := p.host.CreateCommit(ctx, message, treeSHA, []string{headSHA})
	if err != nil {
		return "", errors.NewUpstream("create commit", err)
	}
	if err := p.host.UpdateRef(ctx, commitSHA); err != nil {
		return "", errors.NewUpstream("update ref", err)
	}
	return commitSHA, nil
}

// MergeActivity splices a serialized activity entry into a project
// document immediately after its `activity:` line. When the key is
// absent it is synthesized before `draft:`, or before the closing
// delimiter as a last resort.
func MergeActivity(content, entry string) (string, error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || lines[0] != "---" {
		return "", fmt.Errorf("document has no frontmatter block")
	}

	closing := -1
	activityLine := -1
	draftLine := -1
	for i := 1; i < len(lines); i++ {
		trimmed := strings.TrimRight(lines[i], " ")
		if trimmed == "---" {
			closing = i
			break
		}
		if activityLine < 0 && trimmed == "activity:" {
			activityLine = i
		}
		if draftLine < 0 && strings.HasPrefix(trimmed, "draft:") {
			draftLine = i
		}
	}
	if closing < 0 {
		return "", fmt.Errorf("document has no closing frontmatter delimiter")
	}

	entryLines := strings.Split(entry, "\n")

	var out []string
	switch {
	case activityLine >= 0:
		out = splice(lines, activityLine+1, entryLines)
	case draftLine >= 0:
		block := append([]string{"activity:"}, entryLines...)
		out = splice(lines, draftLine, block)
	default:
		block := append([]string{"activity:"}, entryLines...)
		out = splice(lines, closing, block)
	}
	return strings.Join(out, "\n"), nil
}

// splice inserts insert before index i.
func splice(lines []string, i int, insert []string) []string {
	out := make([]string, 0, len(lines)+len(insert))
	out = append(out, lines[:i]...)
	out = append(out, insert...)
	out = append(out, lines[i:]...)
	return out
}
