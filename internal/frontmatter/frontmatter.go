// Package frontmatter parses the narrow YAML-like header block used by the
// content collections. It is intentionally not a general YAML parser: it
// handles exactly the shape the transformer emits (scalar fields, flat
// block-sequence arrays, and one nested activity list), guaranteeing an
// exact round-trip with that serializer.
package frontmatter

import (
	"regexp"
	"strings"
)

// Split separates a document into its frontmatter block and body.
// Frontmatter is the content between two "---" lines at the very start.
// The blank separator line the serializer emits after the closing
// delimiter is not part of the body, so splitting a serialized document
// yields its body unchanged. Documents without a frontmatter block
// return ("", raw).
func Split(raw string) (frontmatter, body string) {
	if !strings.HasPrefix(raw, "---\n") {
		return "", raw
	}
	rest := raw[4:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", raw
	}
	frontmatter = rest[:idx]
	body = rest[idx+4:]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")
	return frontmatter, body
}

// unquote strips one layer of surrounding double quotes, then one layer
// of surrounding single quotes.
func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimPrefix(s, `'`)
	s = strings.TrimSuffix(s, `'`)
	return s
}

// Field extracts a top-level scalar field's value. The second return is
// false when the key is absent or has no inline value. The value must
// sit on the key's own line, so a block-list key ("tags:" followed by
// items) does not match.
func Field(frontmatter, key string) (string, bool) {
	re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(key) + `:[ \t]*(.+)$`)
	m := re.FindStringSubmatch(frontmatter)
	if m == nil {
		return "", false
	}
	return unquote(strings.TrimSpace(m[1])), true
}

// Bool parses a top-level field as a boolean. Absent or non-"true"
// values yield false.
func Bool(frontmatter, key string) bool {
	v, ok := Field(frontmatter, key)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// List extracts a flat block-sequence array:
//
//	key:
//	  - "first"
//	  - "second"
//
// The inline empty form `key: []` yields an empty, non-nil slice.
// An absent key yields nil.
func List(frontmatter, key string) []string {
	if v, ok := Field(frontmatter, key); ok {
		if strings.TrimSpace(v) == "[]" {
			return []string{}
		}
		// Scalar value where a list was expected; not a list.
		return nil
	}

	lines := strings.Split(frontmatter, "\n")
	items := []string(nil)
	inList := false
	for _, line := range lines {
		if !inList {
			if strings.TrimRight(line, " ") == key+":" {
				inList = true
				items = []string{}
			}
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(line, "  ") || !strings.HasPrefix(trimmed, "- ") {
			break
		}
		items = append(items, unquote(strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))))
	}
	return items
}

// ActivityEvent is one parsed entry of a project's activity list.
// Only the fields the newsletter needs are extracted.
type ActivityEvent struct {
	Date         string
	Title        string
	Summary      string
	Image        string
	ImageCaption string
}

var (
	activityKeyRe   = regexp.MustCompile(`^activity:\s*$`)
	activityDateRe  = regexp.MustCompile(`^\s*-\s+date:\s*(.+)$`)
	activityFieldRe = regexp.MustCompile(`^\s+(title|summary|image|imageCaption):\s*(.+)$`)
)

// ParseActivity extracts the activity list from a project's frontmatter.
// The list starts at an `activity:` line; each `- date:` line opens a new
// entry; indented field lines fill it in; the list ends at the first
// non-blank, non-indented line.
func ParseActivity(frontmatter string) []ActivityEvent {
	lines := strings.Split(frontmatter, "\n")
	events := []ActivityEvent{}
	inActivity := false
	var current *ActivityEvent

	for _, line := range lines {
		if !inActivity {
			if activityKeyRe.MatchString(line) {
				inActivity = true
			}
			continue
		}

		if !strings.HasPrefix(line, "  ") && strings.TrimSpace(line) != "" {
			if current != nil {
				events = append(events, *current)
				current = nil
			}
			break
		}

		if m := activityDateRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				events = append(events, *current)
			}
			current = &ActivityEvent{Date: strings.TrimSpace(m[1])}
			continue
		}

		if current == nil {
			continue
		}

		if m := activityFieldRe.FindStringSubmatch(line); m != nil {
			value := unquote(strings.TrimSpace(m[2]))
			switch m[1] {
			case "title":
				current.Title = value
			case "summary":
				current.Summary = value
			case "image":
				current.Image = value
			case "imageCaption":
				current.ImageCaption = value
			}
		}
	}

	if current != nil {
		events = append(events, *current)
	}
	return events
}
