// Package period converts between the portal's compact period strings
// ("01-Aug-25") and the display form ("Aug 2025"), and parses the date-like
// strings found in reconciliation payloads.
//
// All functions are total: input that cannot be parsed is passed through or
// reported with ok=false, never an error.
package period

import (
	"strings"
	"time"
)

const (
	// CompactLayout is the period form used by the portal API.
	CompactLayout = "02-Jan-06"
	// DisplayLayout is the period form shown to users.
	DisplayLayout = "Jan 2006"
	// KeyLayout is the month key used by period filters.
	KeyLayout = "2006-01"
)

// dateLayouts are tried in order by ParseDate. Layouts with a two-digit year
// are flagged so the century can be pinned to 2000-2099.
var dateLayouts = []struct {
	layout    string
	shortYear bool
}{
	{layout: "2006-01-02"},
	{layout: time.RFC3339},
	{layout: "2006-01-02T15:04:05"},
	{layout: "2006-01-02 15:04:05"},
	{layout: "02-Jan-2006"},
	{layout: CompactLayout, shortYear: true},
	{layout: "01/02/2006"},
	{layout: DisplayLayout},
	{layout: "January 2006"},
	{layout: KeyLayout},
}

// ParseDate parses a date-like payload string. The result is truncated to the
// calendar day in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.shortYear && t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		return Day(t), true
	}
	return time.Time{}, false
}

// Day returns midnight UTC of the calendar day t falls on in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ToDisplay converts a compact period to "Mon YYYY". Display-form input is
// returned unchanged and unparsable input is passed through.
func ToDisplay(p string) string {
	t, ok := ParseDate(p)
	if !ok {
		return p
	}
	return t.Format(DisplayLayout)
}

// ToCompact converts a display period to "01-Mon-YY". The day is always the
// first of the month. Unparsable input is passed through.
func ToCompact(p string) string {
	t, ok := ParseDate(p)
	if !ok {
		return p
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.Format(CompactLayout)
}

// MonthRange returns the first and last day of the month a period or date falls in.
func MonthRange(p string) (start, end time.Time, ok bool) {
	t, ok := ParseDate(p)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end, true
}

// MonthKey returns "YYYY-MM" for a date-like string, or "" if it cannot be parsed.
func MonthKey(date string) string {
	t, ok := ParseDate(date)
	if !ok {
		return ""
	}
	return t.Format(KeyLayout)
}

// InRange reports whether t falls within [start, end] at day granularity.
func InRange(t, start, end time.Time) bool {
	d := Day(t)
	return !d.Before(Day(start)) && !d.After(Day(end))
}
