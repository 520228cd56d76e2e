// Package transform converts an approved capture into a committable
// document: a standalone note/TIL file, or an activity entry destined for
// an existing project document. Transform is a pure function of
// (capture, useRefined); it never touches the store or the network.
package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/tendfield/garden/internal/capture"
	"github.com/tendfield/garden/internal/refine"
)

// FileResult is a transformed note or TIL capture.
type FileResult struct {
	Collection  capture.Collection // til or notes
	Filename    string
	Title       string
	Frontmatter string // serialized header block, no delimiters
	Body        string
	FullContent string
}

// ActivityResult is a transformed project-update capture.
type ActivityResult struct {
	ProjectSlug string
	Activity    capture.ActivityEntry
	// ImageData holds base64 image content to be committed alongside
	// the merged project document.
	ImageData string
}

// Output is the tagged result of a transform: exactly one of File or
// Project is set, discriminated by the resolved collection.
type Output struct {
	File    *FileResult
	Project *ActivityResult
}

// Slugify lowercases text, collapses non-alphanumeric runs to single
// hyphens, trims, and caps the result at 50 characters.
func Slugify(text string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	// The cap runs after the trim, so a cut landing on a word boundary
	// can leave a trailing hyphen.
	if len(slug) > 50 {
		slug = slug[:50]
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

// FormatDate reduces a capture timestamp to its UTC date (YYYY-MM-DD).
func FormatDate(createdAt string) string {
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	if len(createdAt) >= 10 {
		return createdAt[:10]
	}
	return createdAt
}

// field is one emitted frontmatter entry. Emission order is the slice
// order, which the parser round-trips exactly.
type field struct {
	key   string
	value any
}

// quote wraps a string in double quotes, escaping internal double quotes
// only. This exact shape is what the frontmatter parser unquotes.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// serializeFrontmatter emits the header block: arrays as block sequences
// (empty arrays inline as []), strings double-quoted with internal quotes
// escaped, booleans raw.
func serializeFrontmatter(fields []field) string {
	lines := []string{}
	for _, f := range fields {
		switch v := f.value.(type) {
		case nil:
			continue
		case []string:
			if len(v) == 0 {
				lines = append(lines, f.key+": []")
				continue
			}
			lines = append(lines, f.key+":")
			for _, item := range v {
				lines = append(lines, "  - "+quote(item))
			}
		case bool:
			lines = append(lines, fmt.Sprintf("%s: %t", f.key, v))
		case string:
			lines = append(lines, f.key+": "+quote(v))
		default:
			lines = append(lines, fmt.Sprintf("%s: %v", f.key, v))
		}
	}
	return strings.Join(lines, "\n")
}

func title(c *capture.Capture, useRefined bool) string {
	if useRefined && c.Refined != nil && c.Refined.Title != "" {
		return c.Refined.Title
	}
	return refine.FallbackTitle(c)
}

func body(c *capture.Capture, useRefined bool) string {
	if useRefined && c.Refined != nil && c.Refined.Body != "" {
		return c.Refined.Body
	}

	parts := []string{}
	if c.Comment != "" {
		parts = append(parts, c.Comment)
	}
	if c.Text != "" && c.Text != c.Comment {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

func tags(c *capture.Capture, useRefined bool) []string {
	if useRefined && c.Refined != nil && len(c.Refined.SuggestedTags) > 0 {
		return c.Refined.SuggestedTags
	}
	if c.Tags != nil {
		return c.Tags
	}
	return []string{}
}

// noteType resolves the note subtype: refinement suggestion first, then
// the ingest-time inference, then content heuristics. The heuristics here
// differ deliberately from the ingest-time inferrer (snippet is only
// reachable via refinement on this path).
func noteType(c *capture.Capture, useRefined bool) capture.NoteType {
	if useRefined && c.Refined != nil && c.Refined.SuggestedNoteType != "" {
		return c.Refined.SuggestedNoteType
	}
	if c.InferredNoteType != "" {
		return c.InferredNoteType
	}

	if c.URL != "" && len(c.Text) < 200 {
		return capture.NoteLink
	}
	if len(c.Text)+len(c.Comment) < 300 {
		return capture.NoteThought
	}
	return capture.NoteEssay
}

func buildFile(collection capture.Collection, fields []field, c *capture.Capture, useRefined bool) *FileResult {
	date := FormatDate(c.CreatedAt)
	t := title(c, useRefined)
	b := body(c, useRefined)
	fm := serializeFrontmatter(fields)

	return &FileResult{
		Collection:  collection,
		Filename:    fmt.Sprintf("%s-%s.md", date, Slugify(t)),
		Title:       t,
		Frontmatter: fm,
		Body:        b,
		FullContent: BuildDocument(fm, b),
	}
}

// BuildDocument assembles a full markdown document from a serialized
// frontmatter block and a body.
func BuildDocument(frontmatter, body string) string {
	return "---\n" + frontmatter + "\n---\n\n" + body + "\n"
}

func toTIL(c *capture.Capture, useRefined bool) *FileResult {
	fields := []field{
		{"title", title(c, useRefined)},
		{"date", FormatDate(c.CreatedAt)},
		{"tags", tags(c, useRefined)},
		{"draft", false},
	}
	return buildFile(capture.CollectionTIL, fields, c, useRefined)
}

func toNote(c *capture.Capture, useRefined bool) *FileResult {
	t := title(c, useRefined)
	nt := noteType(c, useRefined)

	fields := []field{
		{"title", t},
		{"date", FormatDate(c.CreatedAt)},
		{"tags", tags(c, useRefined)},
		{"type", string(nt)},
		{"featured", false},
		{"draft", false},
	}
	if nt == capture.NoteLink && c.URL != "" {
		fields = append(fields, field{"link", c.URL}, field{"linkTitle", t})
	}
	if useRefined && c.Refined != nil && c.Refined.Takeaway != "" {
		fields = append(fields, field{"takeaway", c.Refined.Takeaway})
	}
	return buildFile(capture.CollectionNotes, fields, c, useRefined)
}

// ImagePath returns the repository path for a capture's inline image.
func ImagePath(c *capture.Capture) string {
	idPrefix := c.ID
	if len(idPrefix) > 8 {
		idPrefix = idPrefix[:8]
	}
	return fmt.Sprintf("public/images/captures/%s-%s.png", FormatDate(c.CreatedAt), idPrefix)
}

// hasInlineImage reports whether the capture carries base64 image data.
func hasInlineImage(c *capture.Capture) (string, bool) {
	for _, img := range c.Images {
		if img.Data != "" {
			return img.Data, true
		}
	}
	return "", false
}

func toProjectActivity(c *capture.Capture, useRefined bool) *ActivityResult {
	t := title(c, useRefined)
	entry := capture.ActivityEntry{
		Date:    FormatDate(c.CreatedAt),
		Title:   t,
		Summary: body(c, useRefined),
		Tags:    tags(c, useRefined),
		Type:    capture.ActivityUpdate,
	}

	result := &ActivityResult{
		ProjectSlug: c.Project,
		Activity:    entry,
	}
	if data, ok := hasInlineImage(c); ok {
		result.ImageData = data
		result.Activity.Image = strings.TrimPrefix(ImagePath(c), "public")
		result.Activity.ImageAlt = t
	}
	return result
}

// Transform converts a capture into its committable form. Collection
// selection prefers the refinement suggestion when useRefined is true.
func Transform(c *capture.Capture, useRefined bool) Output {
	collection := c.InferredCollection
	if useRefined && c.Refined != nil && c.Refined.SuggestedType != "" {
		collection = c.Refined.SuggestedType
	}

	switch collection {
	case capture.CollectionTIL:
		return Output{File: toTIL(c, useRefined)}
	case capture.CollectionProjectUpdate:
		return Output{Project: toProjectActivity(c, useRefined)}
	default:
		return Output{File: toNote(c, useRefined)}
	}
}

// ContentPath returns the repository path of a transformed file inside
// the content root.
func ContentPath(contentRoot string, r *FileResult) string {
	return fmt.Sprintf("%s/%s/%s", contentRoot, r.Collection, r.Filename)
}

// ProjectPath returns the repository path of a project document.
func ProjectPath(contentRoot, slug string) string {
	return fmt.Sprintf("%s/projects/%s.md", contentRoot, slug)
}

// SerializeActivityEntry renders one activity entry as indented YAML
// lines ready to splice into a project document's activity block.
func SerializeActivityEntry(e capture.ActivityEntry) string {
	lines := []string{
		"  - date: " + e.Date,
		"    title: " + quote(e.Title),
		"    summary: " + quote(collapseNewlines(e.Summary)),
	}
	if len(e.Tags) == 0 {
		lines = append(lines, "    tags: []")
	} else {
		lines = append(lines, "    tags:")
		for _, tag := range e.Tags {
			lines = append(lines, "      - "+quote(tag))
		}
	}
	lines = append(lines, "    type: "+string(e.Type))
	if e.Image != "" {
		lines = append(lines, "    image: "+quote(e.Image))
	}
	if e.ImageAlt != "" {
		lines = append(lines, "    imageAlt: "+quote(e.ImageAlt))
	}
	if e.ImageCaption != "" {
		lines = append(lines, "    imageCaption: "+quote(e.ImageCaption))
	}
	return strings.Join(lines, "\n")
}

// collapseNewlines flattens multi-line summaries into a single line so
// the narrow frontmatter parser can read them back.
func collapseNewlines(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
