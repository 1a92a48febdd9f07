package models

import (
	"fmt"
	"time"
)

// Window is a contiguous date range, inclusive on both ends.
// Times are truncated to whole days in UTC.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow builds a window from two instants, truncated to days.
func NewWindow(from, to time.Time) Window {
	return Window{From: truncateDay(from), To: truncateDay(to)}
}

// Days returns the number of calendar days the window covers.
func (w Window) Days() int {
	if w.To.Before(w.From) {
		return 0
	}

	return int(w.To.Sub(w.From).Hours()/24) + 1
}

// Dates returns every day in the window, oldest first.
func (w Window) Dates() []time.Time {
	var dates []time.Time
	for d := w.From; !d.After(w.To); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}

	return dates
}

// Split chunks the window into contiguous sub-windows of at most
// maxDays calendar days each, oldest first.
func (w Window) Split(maxDays int) []Window {
	if maxDays < 1 {
		maxDays = 1
	}

	var parts []Window

	for from := w.From; !from.After(w.To); {
		to := from.AddDate(0, 0, maxDays-1)
		if to.After(w.To) {
			to = w.To
		}

		parts = append(parts, Window{From: from, To: to})
		from = to.AddDate(0, 0, 1)
	}

	return parts
}

// String renders the window as "YYYY-MM-DD..YYYY-MM-DD".
func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.From.Format("2006-01-02"), w.To.Format("2006-01-02"))
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
