package core

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format accepted at every boundary
const DateLayout = "2006-01-02"

// ID represents a unique identifier
type ID string

// NewID generates a new unique ID
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the string representation of the ID
func (id ID) String() string {
	return string(id)
}

// DateRange is an optional, inclusive time window. A nil bound means the
// window is open on that side.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// NewDateRange builds a range from two optional bounds
func NewDateRange(start, end *time.Time) DateRange {
	return DateRange{Start: start, End: end}
}

// Since returns a range starting at t with no upper bound
func Since(t time.Time) DateRange {
	return DateRange{Start: &t}
}

// IsEmpty reports whether the range can never contain an instant
func (r DateRange) IsEmpty() bool {
	return r.Start != nil && r.End != nil && r.Start.After(*r.End)
}

// IsBounded reports whether both bounds are set
func (r DateRange) IsBounded() bool {
	return r.Start != nil && r.End != nil
}

// Contains reports whether t falls inside the range, bounds included
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// ParseDate parses a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp.
// The boolean result is true when only a date was given.
func ParseDate(value string) (time.Time, bool, error) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, InvalidInput("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t.UTC(), false, nil
}

// ParseDateRange parses optional start and end values. A date-only end is
// extended to the last instant of that day.
func ParseDateRange(start, end string) (DateRange, error) {
	var rng DateRange
	if start != "" {
		t, _, err := ParseDate(start)
		if err != nil {
			return DateRange{}, err
		}
		rng.Start = &t
	}
	if end != "" {
		t, dateOnly, err := ParseDate(end)
		if err != nil {
			return DateRange{}, err
		}
		if dateOnly {
			t = EndOfDay(t)
		}
		rng.End = &t
	}
	return rng, nil
}

// EndOfDay returns the last nanosecond of t's UTC day
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)
}

// FormatDate renders an optional bound as YYYY-MM-DD, or "" when unset
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
