// Package runner orchestrates a full ingestion run: it derives the
// date window from the run mode, partitions the work across families
// and sub-windows, and drives fetch, normalize, and write through a
// bounded worker set.
package runner

import (
	"time"

	"congressd/internal/config"
	"congressd/internal/models"
)

// Task is the unit of parallel dispatch: one sub-window of one family.
type Task struct {
	Family models.Family
	Window models.Window
}

// BuildPlan resolves the run's effective window and partitions it into
// tasks, families in their stable order and sub-windows oldest first
// within each family. The requested window is clamped to the
// configured minimum date and split into sub-windows of at most
// max_range_days.
func BuildPlan(cfg *config.Config, req *models.RunRequest, now time.Time) []Task {
	window := resolveWindow(cfg, req, now)
	window = clampWindow(cfg, window)

	families := append([]models.Family(nil), req.Families...)
	models.SortFamilies(families)

	windows := window.Split(cfg.Ingest.DateRanges.MaxRangeDays)

	tasks := make([]Task, 0, len(families)*len(windows))

	for _, family := range families {
		for _, w := range windows {
			tasks = append(tasks, Task{Family: family, Window: w})
		}
	}

	return tasks
}

// Chunk groups tasks into dispatch units of at most size tasks each,
// preserving order.
func Chunk(tasks []Task, size int) [][]Task {
	if size < 1 {
		size = 1
	}

	chunks := make([][]Task, 0, (len(tasks)+size-1)/size)

	for start := 0; start < len(tasks); start += size {
		end := start + size
		if end > len(tasks) {
			end = len(tasks)
		}

		chunks = append(chunks, tasks[start:end])
	}

	return chunks
}

// resolveWindow derives the date window from the run mode.
func resolveWindow(cfg *config.Config, req *models.RunRequest, now time.Time) models.Window {
	switch req.Mode {
	case models.ModeRefresh:
		return models.NewWindow(req.Window.From, req.Window.To)

	case models.ModeBulk:
		return models.NewWindow(cfg.MinDate(), now)

	default: // incremental
		lookback := req.LookbackDays
		if lookback < 1 {
			lookback = cfg.Ingest.DefaultLookbackDays
		}

		return models.NewWindow(now.AddDate(0, 0, -(lookback-1)), now)
	}
}

// clampWindow raises the window's start to the configured minimum date.
func clampWindow(cfg *config.Config, w models.Window) models.Window {
	minDate := cfg.MinDate()
	if w.From.Before(minDate) {
		w.From = minDate
	}

	return w
}
