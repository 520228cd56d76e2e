// Package newsletter aggregates recently published content into a
// periodic digest: a half-open UTC time window selects dated items from
// the notes, TIL, and project collections, which are deduplicated,
// sorted, and rendered as HTML and plain-text email bodies.
package newsletter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Variant is one rendered digest: the full feed or projects only.
type Variant struct {
	Variant string `json:"variant"`
	Count   int    `json:"count"`
	Items   []Item `json:"items"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Bundle is the machine-readable result of one digest generation.
type Bundle struct {
	Type        Type   `json:"type"`
	GeneratedAt string `json:"generatedAt"`
	Subject     string `json:"subject"`
	Window      struct {
		StartInclusive string `json:"startInclusive"`
		EndExclusive   string `json:"endExclusive"`
		DateLabel      string `json:"dateLabel"`
	} `json:"window"`
	Variants struct {
		All      Variant `json:"all"`
		Projects Variant `json:"projects"`
	} `json:"variants"`
}

// Options configures one digest generation.
type Options struct {
	Type       Type
	DateInput  string // YYYY-MM-DD anchor; empty anchors on Now
	SiteURL    string // optional prefix for absolute links
	ContentDir string // local content root holding notes/, til/, projects/
	Now        time.Time
}

// Generate computes the window, aggregates both variants, and renders
// them.
func Generate(opts Options) (*Bundle, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	w, err := ComputeWindow(opts.Type, opts.DateInput, now)
	if err != nil {
		return nil, err
	}

	projects, err := collectProjects(opts.ContentDir, w)
	if err != nil {
		return nil, err
	}
	notes, err := collectNotes(opts.ContentDir, w)
	if err != nil {
		return nil, err
	}
	tils, err := collectTILs(opts.ContentDir, w)
	if err != nil {
		return nil, err
	}

	all := append(append(append([]Item{}, projects...), notes...), tils...)
	subject := buildSubject(w.Type, w.AnchorDate)
	siteURL := strings.TrimSuffix(opts.SiteURL, "/")

	bundle := &Bundle{
		Type:        w.Type,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Subject:     subject,
	}
	bundle.Window.StartInclusive = w.StartInclusive.Format(time.RFC3339)
	bundle.Window.EndExclusive = w.EndExclusive.Format(time.RFC3339)
	bundle.Window.DateLabel = w.DateLabel()
	bundle.Variants.All = absolutize(buildVariant(subject, w, "all", all), siteURL)
	bundle.Variants.Projects = absolutize(buildVariant(subject, w, "projects", projects), siteURL)
	return bundle, nil
}

// buildVariant dedupes, sorts newest-first, and renders one variant.
func buildVariant(subject string, w Window, variant string, items []Item) Variant {
	sorted := dedupeItems(items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return Variant{
		Variant: variant,
		Count:   len(sorted),
		Items:   sorted,
		HTML:    renderHTML(subject, w, sorted, variant),
		Text:    renderText(subject, w, sorted, variant),
	}
}

// absolutize rewrites site-relative links against the configured site
// URL, in the item list and both rendered bodies.
func absolutize(v Variant, siteURL string) Variant {
	if siteURL == "" {
		return v
	}

	items := make([]Item, len(v.Items))
	for i, item := range v.Items {
		item.URL = siteURL + item.URL
		if item.Image != "" && strings.HasPrefix(item.Image, "/") {
			item.Image = siteURL + item.Image
		}
		items[i] = item
	}
	v.Items = items
	v.HTML = htmlHrefRe.ReplaceAllString(v.HTML, `href="`+siteURL+`/$1"`)
	v.HTML = htmlSrcRe.ReplaceAllString(v.HTML, `src="`+siteURL+`/$1"`)
	v.Text = strings.ReplaceAll(v.Text, "\n  /", "\n  "+siteURL+"/")
	return v
}

// WritePreview writes both variants plus a JSON summary into outDir and
// returns the written paths.
func WritePreview(bundle *Bundle, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	summary, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s-%s", bundle.Type, bundle.Window.DateLabel)
	outputs := []struct {
		name    string
		content string
	}{
		{base + ".all.html", bundle.Variants.All.HTML},
		{base + ".all.txt", bundle.Variants.All.Text},
		{base + ".projects.html", bundle.Variants.Projects.HTML},
		{base + ".projects.txt", bundle.Variants.Projects.Text},
		{base + ".summary.json", string(summary)},
	}

	paths := make([]string, 0, len(outputs))
	for _, out := range outputs {
		path := filepath.Join(outDir, out.name)
		if err := os.WriteFile(path, []byte(out.content), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
