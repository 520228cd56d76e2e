package newsletter

import (
	"fmt"
	"strings"
	"time"

	"github.com/tendfield/garden/internal/content"
	"github.com/tendfield/garden/internal/frontmatter"
)

// Item is one aggregated digest entry.
type Item struct {
	Kind         string    `json:"kind"` // note, til, project
	Date         time.Time `json:"date"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	URL          string    `json:"url"`
	Image        string    `json:"image,omitempty"`
	ImageCaption string    `json:"imageCaption,omitempty"`
}

// parseItemDate accepts the two date shapes the content emits: a full
// RFC3339 timestamp or a bare YYYY-MM-DD day (read as UTC midnight).
func parseItemDate(raw string) (time.Time, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// collectNotes gathers in-window note items. The summary prefers the
// takeaway field over the body's first sentence.
func collectNotes(root string, w Window) ([]Item, error) {
	docs, err := content.Load(root, "notes")
	if err != nil {
		return nil, err
	}

	items := []Item{}
	for _, doc := range docs {
		dateRaw, ok := frontmatter.Field(doc.Frontmatter, "date")
		if !ok {
			continue
		}
		date, ok := parseItemDate(dateRaw)
		if !ok || !w.Contains(date) {
			continue
		}

		title, _ := frontmatter.Field(doc.Frontmatter, "title")
		if title == "" {
			title = doc.Slug
		}
		summary, _ := frontmatter.Field(doc.Frontmatter, "takeaway")
		if summary == "" {
			summary = firstSentence(doc.Body)
		}

		items = append(items, Item{
			Kind:    "note",
			Date:    date,
			Title:   title,
			Summary: summary,
			URL:     fmt.Sprintf("/notes/%s/", doc.Slug),
		})
	}
	return items, nil
}

func collectTILs(root string, w Window) ([]Item, error) {
	docs, err := content.Load(root, "til")
	if err != nil {
		return nil, err
	}

	items := []Item{}
	for _, doc := range docs {
		dateRaw, ok := frontmatter.Field(doc.Frontmatter, "date")
		if !ok {
			continue
		}
		date, ok := parseItemDate(dateRaw)
		if !ok || !w.Contains(date) {
			continue
		}

		title, _ := frontmatter.Field(doc.Frontmatter, "title")
		if title == "" {
			title = doc.Slug
		}

		items = append(items, Item{
			Kind:    "til",
			Date:    date,
			Title:   title,
			Summary: firstSentence(doc.Body),
			URL:     fmt.Sprintf("/til/%s/", doc.Slug),
		})
	}
	return items, nil
}

// collectProjects yields one item per in-window activity event; a
// project with no activity list falls back to a single item on the
// document's own date.
func collectProjects(root string, w Window) ([]Item, error) {
	docs, err := content.Load(root, "projects")
	if err != nil {
		return nil, err
	}

	items := []Item{}
	for _, doc := range docs {
		title, _ := frontmatter.Field(doc.Frontmatter, "title")
		if title == "" {
			title = doc.Slug
		}
		description, _ := frontmatter.Field(doc.Frontmatter, "description")
		if description == "" {
			description = "Project update"
		}

		events := frontmatter.ParseActivity(doc.Frontmatter)
		if len(events) > 0 {
			for _, ev := range events {
				if ev.Date == "" || ev.Title == "" {
					continue
				}
				date, ok := parseItemDate(ev.Date)
				if !ok || !w.Contains(date) {
					continue
				}

				summary := ev.Summary
				if summary == "" {
					summary = description
				}
				anchor := eventAnchor(doc.Slug, date, ev.Title)
				items = append(items, Item{
					Kind:         "project",
					Date:         date,
					Title:        ev.Title,
					Summary:      summary,
					URL:          fmt.Sprintf("/projects/%s/#%s", doc.Slug, anchor),
					Image:        ev.Image,
					ImageCaption: ev.ImageCaption,
				})
			}
			continue
		}

		dateRaw, ok := frontmatter.Field(doc.Frontmatter, "date")
		if !ok {
			continue
		}
		date, ok := parseItemDate(dateRaw)
		if !ok || !w.Contains(date) {
			continue
		}

		items = append(items, Item{
			Kind:    "project",
			Date:    date,
			Title:   title,
			Summary: description,
			URL:     fmt.Sprintf("/projects/%s/", doc.Slug),
		})
	}
	return items, nil
}

// eventAnchor builds a stable fragment id for one activity event.
func eventAnchor(projectSlug string, date time.Time, title string) string {
	return fmt.Sprintf("event-%s-%s-%s",
		anchorSlug(projectSlug),
		date.UTC().Format("20060102"),
		anchorSlug(title))
}

// anchorSlug is the aggregator's own slug form: unbounded length, "item"
// when nothing survives.
func anchorSlug(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "item"
	}
	return slug
}

// dedupeItems collapses items sharing (url, title), keeping the first
// occurrence.
func dedupeItems(items []Item) []Item {
	seen := map[string]bool{}
	out := []Item{}
	for _, item := range items {
		key := item.URL + "|" + item.Title
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
