// Package dates provides calendar-date parsing and range helpers used
// by the ingestion pipeline.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical calendar-date layout.
const Layout = "2006-01-02"

// ErrEmptyDate is returned when a date string is blank.
var ErrEmptyDate = errors.New("empty date")

// isoLayouts are the upstream timestamp layouts accepted in addition
// to the plain calendar date.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05",
	Layout,
}

// Parse parses a strict YYYY-MM-DD calendar date in UTC.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}

	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s: %w", s, Layout, err)
	}

	return t, nil
}

// ParseTimestamp parses an upstream ISO-8601 timestamp or calendar
// date, returning the instant in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}

	var lastErr error

	for _, layout := range isoLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}

		lastErr = err
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, lastErr)
}

// Format renders an instant as a YYYY-MM-DD calendar date in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// StartOfDay returns midnight UTC on t's calendar date.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last second of t's calendar date in UTC.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Second)
}

// ValidRange reports whether start..end is ordered and not in the future.
func ValidRange(start, end, now time.Time) bool {
	if start.After(end) {
		return false
	}

	return !end.After(now)
}

// CurrentCongress computes the Congress ordinal in session at t.
// A new Congress convenes every two years; the 1st convened in 1789.
func CurrentCongress(t time.Time) int {
	year := t.UTC().Year()
	if year < 1789 {
		return 1
	}

	return (year-1789)/2 + 1
}
