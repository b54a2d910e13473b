package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsWithinWindowBoundaries(t *testing.T) {
	ref := "2024-06-15"
	cases := []struct {
		name  string
		issue string
		want  bool
	}{
		{"same day as reference", "2024-06-15", true},
		{"exactly three months before", "2024-03-15", true},
		{"one day before window", "2024-03-14", false},
		{"one day after reference", "2024-06-16", false},
		{"inside window", "2024-05-01", true},
		{"four months before", "2024-02-15", false},
		{"uk format", "01/05/2024", true},
		{"rfc3339", "2024-05-01T09:30:00Z", true},
		{"empty", "", false},
		{"malformed", "15th of May", false},
		{"impossible date", "2024-02-30", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsWithinWindow(tc.issue, ref, 3))
		})
	}
}

func TestIsWithinWindowBadReference(t *testing.T) {
	assert.False(t, IsWithinWindow("2024-05-01", "", 3))
	assert.False(t, IsWithinWindow("2024-05-01", "not a date", 3))
}

func TestParseReferenceDate(t *testing.T) {
	got, ok := ParseReferenceDate(" 2024-06-15 ")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseReferenceDate("2024-06-15T10:00:00+01:00")
	assert.True(t, ok)
	assert.Equal(t, 15, got.Day())

	for _, bad := range []string{"", "15/06/2024", "June 15"} {
		_, ok := ParseReferenceDate(bad)
		assert.False(t, ok, bad)
	}
	_, ok = ParseDate("15/06/2024")
	assert.True(t, ok)
}

func TestWithinWindowDefaultsMonths(t *testing.T) {
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	issue := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, WithinWindow(issue, ref, 0))
	assert.True(t, WithinWindow(issue, ref, -1))
	assert.False(t, WithinWindow(issue, ref, 2))
	assert.True(t, WithinWindow(issue, ref, 6))
}

func TestWithinWindowIgnoresClock(t *testing.T) {
	ref := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	issue := time.Date(2024, 6, 15, 23, 59, 0, 0, time.UTC)
	assert.True(t, WithinWindow(issue, ref, 3))

	early := time.Date(2024, 3, 15, 0, 0, 1, 0, time.UTC)
	assert.True(t, WithinWindow(early, ref, 3))
}

func TestWithinWindowZeroTimes(t *testing.T) {
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.False(t, WithinWindow(time.Time{}, ref, 3))
	assert.False(t, WithinWindow(ref, time.Time{}, 3))
}

func TestSubtractMonthsClampsToMonthEnd(t *testing.T) {
	cases := []struct {
		from time.Time
		want time.Time
	}{
		{time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 5, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 10, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, subtractMonths(tc.from, 3), tc.from.Format("2006-01-02"))
	}
}

func TestWithinWindowEndOfMonthReference(t *testing.T) {
	assert.True(t, IsWithinWindow("2024-02-29", "2024-05-31", 3))
	assert.False(t, IsWithinWindow("2024-02-28", "2024-05-31", 3))
}
