package newsletter

import (
	"fmt"
	"time"

	"github.com/tendfield/garden/internal/errors"
)

// Type is the digest cadence.
type Type string

const (
	TypeDaily  Type = "daily"
	TypeWeekly Type = "weekly"
)

// normalizeType treats anything that isn't daily as weekly.
func normalizeType(t Type) Type {
	if t == TypeDaily {
		return TypeDaily
	}
	return TypeWeekly
}

// Window is the half-open UTC interval a digest covers:
// StartInclusive <= date < EndExclusive.
type Window struct {
	Type           Type
	StartInclusive time.Time
	EndExclusive   time.Time
	AnchorDate     time.Time // UTC midnight of the anchor day
}

// ComputeWindow derives the digest window from an anchor date. The end
// boundary is UTC midnight of the day after the anchor; the start is 1
// (daily) or 7 (weekly) days earlier. An empty dateInput anchors on now;
// a malformed one is an input error, never silently defaulted.
func ComputeWindow(typ Type, dateInput string, now time.Time) (Window, error) {
	anchor := now
	if dateInput != "" {
		parsed, err := time.Parse(time.RFC3339, dateInput+"T00:00:00Z")
		if err != nil {
			return Window{}, errors.NewInvalidRequest(fmt.Sprintf("invalid date: %s", dateInput))
		}
		anchor = parsed
	}

	anchor = anchor.UTC()
	y, m, d := anchor.Date()
	end := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)

	days := 7
	normalized := normalizeType(typ)
	if normalized == TypeDaily {
		days = 1
	}

	return Window{
		Type:           normalized,
		StartInclusive: end.Add(-time.Duration(days) * 24 * time.Hour),
		EndExclusive:   end,
		AnchorDate:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}, nil
}

// Contains reports whether t falls inside the window (end exclusive, so
// a later day's midnight never double-counts).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.StartInclusive) && t.Before(w.EndExclusive)
}

// DateLabel renders the window as "YYYY-MM-DD..YYYY-MM-DD" with the end
// shown as the last covered day.
func (w Window) DateLabel() string {
	last := w.EndExclusive.Add(-time.Millisecond)
	return w.StartInclusive.UTC().Format("2006-01-02") + ".." + last.UTC().Format("2006-01-02")
}
