package normalize

import (
	"strings"
	"time"
)

// Layouts accepted by ParseDate, tried in order. Fractional seconds are optional in all of them.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseDate returns the calendar date of an ISO-8601 timestamp, as written
// (an offset does not shift the day). Blank or unparseable input yields nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := civilDate(t.Year(), t.Month(), t.Day())
			return &d
		}
	}
	return nil
}

// Today returns the civil date of now in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return civilDate(local.Year(), local.Month(), local.Day())
}

func civilDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// validDate builds a date only when y/m/d name a real calendar day.
func validDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 {
		return time.Time{}, false
	}
	t := civilDate(y, time.Month(m), d)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
