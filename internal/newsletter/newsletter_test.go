package newsletter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tendfield/garden/internal/errors"
)

func TestComputeWindowDaily(t *testing.T) {
	w, err := ComputeWindow(TypeDaily, "2024-03-10", time.Time{})
	if err != nil {
		t.Fatalf("ComputeWindow() error: %v", err)
	}

	wantStart := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if !w.StartInclusive.Equal(wantStart) || !w.EndExclusive.Equal(wantEnd) {
		t.Errorf("window = [%v, %v), want [%v, %v)", w.StartInclusive, w.EndExclusive, wantStart, wantEnd)
	}
	if !w.AnchorDate.Equal(wantStart) {
		t.Errorf("AnchorDate = %v", w.AnchorDate)
	}
	if w.DateLabel() != "2024-03-10..2024-03-10" {
		t.Errorf("DateLabel() = %q", w.DateLabel())
	}
}

func TestComputeWindowWeekly(t *testing.T) {
	w, err := ComputeWindow(TypeWeekly, "2024-03-10", time.Time{})
	if err != nil {
		t.Fatalf("ComputeWindow() error: %v", err)
	}
	wantStart := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if !w.StartInclusive.Equal(wantStart) {
		t.Errorf("StartInclusive = %v, want %v", w.StartInclusive, wantStart)
	}
	if w.DateLabel() != "2024-03-04..2024-03-10" {
		t.Errorf("DateLabel() = %q", w.DateLabel())
	}
}

func TestComputeWindowDefaults(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	w, err := ComputeWindow("biweekly", "", now)
	if err != nil {
		t.Fatalf("ComputeWindow() error: %v", err)
	}
	if w.Type != TypeWeekly {
		t.Errorf("Type = %q, want weekly (unknown cadence normalizes)", w.Type)
	}
	if !w.EndExclusive.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("EndExclusive = %v", w.EndExclusive)
	}
}

func TestComputeWindowBadDate(t *testing.T) {
	_, err := ComputeWindow(TypeDaily, "not-a-date", time.Time{})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want invalid request", err)
	}
}

func TestWindowHalfOpen(t *testing.T) {
	w, _ := ComputeWindow(TypeDaily, "2024-03-09", time.Time{})

	if !w.Contains(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Error("start boundary excluded, want included")
	}
	if !w.Contains(time.Date(2024, 3, 9, 23, 59, 59, 0, time.UTC)) {
		t.Error("last second of window excluded")
	}
	if w.Contains(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Error("end boundary included, want excluded")
	}
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"# Heading\nbody", "Heading body"},
		{"has `inline code` here", "has inline code here"},
		{"```go\nfenced\n```\nafter", "after"},
		{"![alt](/img.png) text", "text"},
		{"[label](https://x.com) tail", "tail"},
		{"> quoted line", "quoted line"},
		{"- item one\n- item two", "item one item two"},
		{"1. first\n2. second", "first second"},
	}
	for _, tt := range tests {
		if got := stripMarkdown(tt.in); got != tt.want {
			t.Errorf("stripMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstSentence(t *testing.T) {
	if got := firstSentence("First point. Second point."); got != "First point." {
		t.Errorf("firstSentence() = %q", got)
	}
	if got := firstSentence(""); got != "" {
		t.Errorf("firstSentence(empty) = %q", got)
	}
	long := strings.Repeat("a", 300)
	if got := firstSentence(long); got != long[:180] {
		t.Errorf("no-boundary fallback len = %d, want 180", len(got))
	}
}

func TestDedupeItems(t *testing.T) {
	a := Item{URL: "/notes/x/", Title: "Same", Summary: "first"}
	b := Item{URL: "/notes/x/", Title: "Same", Summary: "second"}
	c := Item{URL: "/notes/y/", Title: "Same", Summary: "different url"}

	out := dedupeItems([]Item{a, b, c})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Summary != "first" {
		t.Errorf("kept %q, want first occurrence", out[0].Summary)
	}
}

func writeContent(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func fixtureContent(t *testing.T) string {
	root := t.TempDir()

	writeContent(t, root, "notes/a-note.md", `---
title: "A note"
date: "2024-03-09"
takeaway: "The key takeaway."
draft: false
---

Long body. More body.
`)
	writeContent(t, root, "notes/too-old.md", `---
title: "Old"
date: "2024-02-01"
---

Out of window.
`)
	writeContent(t, root, "notes/hidden.md", `---
title: "Hidden"
date: "2024-03-09"
draft: true
---

Draft body.
`)
	writeContent(t, root, "til/learned.md", `---
title: "Learned a thing"
date: "2024-03-09T00:00:00Z"
draft: false
---

Learned something neat. With extra detail.
`)
	writeContent(t, root, "projects/garden.md", `---
title: "Garden"
description: "A digital garden."
activity:
  - date: 2024-03-09
    title: "Shipped digest"
    summary: "Digest generation works."
    image: "/images/captures/2024-03-09-01AAAA.png"
  - date: 2024-01-01
    title: "Kicked off"
draft: false
---

Project body.
`)
	writeContent(t, root, "projects/solo.md", `---
title: "Solo"
description: "No activity list yet."
date: "2024-03-09"
---

Body.
`)
	return root
}

func TestGenerate(t *testing.T) {
	bundle, err := Generate(Options{
		Type:       TypeDaily,
		DateInput:  "2024-03-09",
		ContentDir: fixtureContent(t),
		Now:        time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if bundle.Subject != "[Daily] Notes from the garden — Mar 9, 2024" {
		t.Errorf("Subject = %q", bundle.Subject)
	}
	if bundle.Window.StartInclusive != "2024-03-09T00:00:00Z" || bundle.Window.EndExclusive != "2024-03-10T00:00:00Z" {
		t.Errorf("Window = %+v", bundle.Window)
	}
	if bundle.Window.DateLabel != "2024-03-09..2024-03-09" {
		t.Errorf("DateLabel = %q", bundle.Window.DateLabel)
	}

	all := bundle.Variants.All
	if all.Count != 4 {
		titles := []string{}
		for _, item := range all.Items {
			titles = append(titles, item.Title)
		}
		t.Fatalf("all.Count = %d (%v), want 4", all.Count, titles)
	}

	// Same-day ties keep collection order: projects, notes, tils.
	if all.Items[0].Title != "Shipped digest" {
		t.Errorf("Items[0] = %+v", all.Items[0])
	}
	if all.Items[0].URL != "/projects/garden/#event-garden-20240309-shipped-digest" {
		t.Errorf("event url = %q", all.Items[0].URL)
	}
	if all.Items[0].Image != "/images/captures/2024-03-09-01AAAA.png" {
		t.Errorf("event image = %q", all.Items[0].Image)
	}
	if all.Items[1].Title != "Solo" || all.Items[1].Summary != "No activity list yet." {
		t.Errorf("Items[1] = %+v", all.Items[1])
	}
	if all.Items[2].Summary != "The key takeaway." {
		t.Errorf("note summary = %q, want takeaway preferred", all.Items[2].Summary)
	}
	if all.Items[3].Summary != "Learned something neat." {
		t.Errorf("til summary = %q", all.Items[3].Summary)
	}

	projects := bundle.Variants.Projects
	if projects.Count != 2 {
		t.Errorf("projects.Count = %d, want 2", projects.Count)
	}

	if !strings.Contains(all.HTML, "<strong>Shipped digest</strong>") {
		t.Error("HTML missing item")
	}
	if !strings.Contains(all.Text, "- Shipped digest (2024-03-09)") {
		t.Errorf("Text missing item:\n%s", all.Text)
	}
}

func TestGenerateEmptyWindow(t *testing.T) {
	bundle, err := Generate(Options{
		Type:       TypeDaily,
		DateInput:  "2020-01-01",
		ContentDir: fixtureContent(t),
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if bundle.Variants.All.Count != 0 {
		t.Errorf("Count = %d, want 0", bundle.Variants.All.Count)
	}
	if !strings.Contains(bundle.Variants.All.HTML, "No new updates in this window.") {
		t.Error("empty HTML missing placeholder")
	}
	if !strings.HasSuffix(bundle.Variants.All.Text, "No new updates in this window.") {
		t.Errorf("empty text = %q", bundle.Variants.All.Text)
	}
}

func TestGenerateSiteURL(t *testing.T) {
	bundle, err := Generate(Options{
		Type:       TypeDaily,
		DateInput:  "2024-03-09",
		SiteURL:    "https://example.com/",
		ContentDir: fixtureContent(t),
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	all := bundle.Variants.All
	if all.Items[0].URL != "https://example.com/projects/garden/#event-garden-20240309-shipped-digest" {
		t.Errorf("item url = %q", all.Items[0].URL)
	}
	if all.Items[0].Image != "https://example.com/images/captures/2024-03-09-01AAAA.png" {
		t.Errorf("item image = %q", all.Items[0].Image)
	}
	if strings.Contains(all.HTML, `href="/`) || strings.Contains(all.HTML, `src="/`) {
		t.Error("HTML still has relative links")
	}
	if !strings.Contains(all.Text, "  https://example.com/til/learned/") {
		t.Errorf("text not absolutized:\n%s", all.Text)
	}
}

func TestWritePreview(t *testing.T) {
	bundle, err := Generate(Options{
		Type:       TypeDaily,
		DateInput:  "2024-03-09",
		ContentDir: fixtureContent(t),
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	out := t.TempDir()
	paths, err := WritePreview(bundle, out)
	if err != nil {
		t.Fatalf("WritePreview() error: %v", err)
	}
	if len(paths) != 5 {
		t.Fatalf("paths = %v, want 5 files", paths)
	}

	summaryPath := filepath.Join(out, "daily-2024-03-09..2024-03-09.summary.json")
	raw, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	var decoded Bundle
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("summary not valid JSON: %v", err)
	}
	if decoded.Variants.All.Count != 4 {
		t.Errorf("decoded count = %d", decoded.Variants.All.Count)
	}
}
