package newsletter

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	codeFenceRe   = regexp.MustCompile("(?s)```.*?```")
	imageRe       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkRe        = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)
	inlineCodeRe  = regexp.MustCompile("`([^`]+)`")
	headingRe     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquoteRe  = regexp.MustCompile(`(?m)^>\s*`)
	bulletRe      = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedRe    = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	sentenceRe    = regexp.MustCompile(`[^.!?]+[.!?]`)
	htmlHrefRe    = regexp.MustCompile(`href="/(.*?)"`)
	htmlSrcRe     = regexp.MustCompile(`src="/(.*?)"`)
)

// stripMarkdown flattens markdown to plain text: code blocks and media
// dropped, inline code unwrapped, structural prefixes removed,
// whitespace collapsed.
func stripMarkdown(input string) string {
	s := codeFenceRe.ReplaceAllString(input, " ")
	s = imageRe.ReplaceAllString(s, " ")
	s = linkRe.ReplaceAllString(s, " ")
	s = inlineCodeRe.ReplaceAllString(s, "$1")
	s = headingRe.ReplaceAllString(s, "")
	s = blockquoteRe.ReplaceAllString(s, "")
	s = bulletRe.ReplaceAllString(s, "")
	s = numberedRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// firstSentence extracts the first sentence of stripped text, falling
// back to a 180-char prefix when no sentence boundary exists.
func firstSentence(input string) string {
	clean := stripMarkdown(input)
	if clean == "" {
		return ""
	}
	if m := sentenceRe.FindString(clean); m != "" {
		return strings.TrimSpace(m)
	}
	if len(clean) > 180 {
		return clean[:180]
	}
	return clean
}

// formatHumanDate renders a date the way the subject line shows it:
// "Mar 10, 2024" in UTC.
func formatHumanDate(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006")
}

func formatItemDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// buildSubject is the digest subject line for an anchor date.
func buildSubject(typ Type, anchorDate time.Time) string {
	cadence := "Weekly"
	if typ == TypeDaily {
		cadence = "Daily"
	}
	return fmt.Sprintf("[%s] Notes from the garden — %s", cadence, formatHumanDate(anchorDate))
}

func variantSubtitle(variant string) string {
	if variant == "projects" {
		return "Projects-only updates"
	}
	return "All updates"
}

func windowLine(w Window) string {
	return fmt.Sprintf("Window: %s to %s (UTC)",
		formatHumanDate(w.StartInclusive),
		formatHumanDate(w.EndExclusive.Add(-time.Millisecond)))
}

func renderItemHTML(item Item) string {
	imageHTML := ""
	if item.Image != "" {
		alt := item.ImageCaption
		if alt == "" {
			alt = item.Title
		}
		caption := ""
		if item.ImageCaption != "" {
			caption = fmt.Sprintf(`<p style="margin: 4px 0 0; font-size: 13px; color: #666; font-style: italic;">%s</p>`, item.ImageCaption)
		}
		imageHTML = fmt.Sprintf(`<div style="margin: 8px 0;"><img src="%s" alt="%s" style="max-width: 100%%; height: auto; border-radius: 8px;" />%s</div>`, item.Image, alt, caption)
	}
	return fmt.Sprintf(`<li style="margin: 0 0 20px;"><strong>%s</strong> <span style="color:#888;">(%s)</span><br/>%s%s<br/><a href="%s" style="color: #0066cc;">Read more →</a></li>`,
		item.Title, formatItemDate(item.Date), item.Summary, imageHTML, item.URL)
}

func renderHTML(subject string, w Window, items []Item, variant string) string {
	listHTML := `<p style="margin: 0; color: #666;">No new updates in this window.</p>`
	if len(items) > 0 {
		var b strings.Builder
		b.WriteString(`<ul style="padding-left: 20px; margin: 0;">`)
		for _, item := range items {
			b.WriteString(renderItemHTML(item))
		}
		b.WriteString("</ul>")
		listHTML = b.String()
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8" /><meta name="viewport" content="width=device-width, initial-scale=1" /></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 640px; margin: 0 auto; padding: 32px 20px; color: #111; line-height: 1.5;">
  <h1 style="font-size: 22px; margin: 0 0 10px;">%s</h1>
  <p style="margin: 0 0 4px; color: #444;">%s</p>
  <p style="margin: 0 0 24px; color: #666; font-size: 14px;">%s</p>
  %s
</body>
</html>`, subject, variantSubtitle(variant), windowLine(w), listHTML)
}

func renderText(subject string, w Window, items []Item, variant string) string {
	header := fmt.Sprintf("%s\n%s\n%s\n", subject, variantSubtitle(variant), windowLine(w))
	if len(items) == 0 {
		return header + "\nNo new updates in this window."
	}

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("- %s (%s)\n  %s\n  %s",
			item.Title, formatItemDate(item.Date), item.Summary, item.URL)
	}
	return header + "\n" + strings.Join(lines, "\n\n")
}
