package compliance

import (
	"strings"
	"time"
)

// DefaultWindowMonths is the mandated lookback for dated documents.
const DefaultWindowMonths = 3

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
}

var referenceLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate parses a user-entered document date. Empty or malformed input
// yields ok=false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseReferenceDate parses an API reference date. Only YYYY-MM-DD and
// RFC 3339 are accepted; day-first dates are left to ParseDate.
func ParseReferenceDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsWithinWindow reports whether issueDate lies in
// [referenceDate - windowMonths, referenceDate]. Either date being absent
// or unparseable yields false.
func IsWithinWindow(issueDate, referenceDate string, windowMonths int) bool {
	issue, ok := ParseDate(issueDate)
	if !ok {
		return false
	}
	ref, ok := ParseDate(referenceDate)
	if !ok {
		return false
	}
	return WithinWindow(issue, ref, windowMonths)
}

// WithinWindow is IsWithinWindow on parsed values. Comparison is by
// calendar day; zero times are treated as absent.
func WithinWindow(issue, reference time.Time, windowMonths int) bool {
	if issue.IsZero() || reference.IsZero() {
		return false
	}
	if windowMonths <= 0 {
		windowMonths = DefaultWindowMonths
	}
	issueDay := civilDay(issue)
	refDay := civilDay(reference)
	earliest := subtractMonths(refDay, windowMonths)
	return !issueDay.Before(earliest) && !issueDay.After(refDay)
}

// civilDay drops the clock and zone, keeping the calendar date as written.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// subtractMonths moves back n months, clamping to the last day of the
// target month instead of overflowing into the next one.
func subtractMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
