package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"congressd/internal/config"
	"congressd/internal/logger"
	"congressd/internal/metrics"
	"congressd/internal/models"
	"congressd/internal/normalizer"
	"congressd/internal/store"
	"congressd/internal/traversal"
	"congressd/internal/writer"
)

// Runner drives one ingestion run end to end.
type Runner struct {
	cfg       *config.Config
	log       *logger.Logger
	fetch     traversal.Fetcher
	pacer     traversal.Pacer
	store     store.Store
	processor *normalizer.Processor
	collector *metrics.Collector
	pageCap   int
}

// New wires a runner from its collaborators. pageCap <= 0 disables the
// per-traversal page cap.
func New(cfg *config.Config, log *logger.Logger, fetch traversal.Fetcher, pacer traversal.Pacer, st store.Store, pageCap int) *Runner {
	return &Runner{
		cfg:       cfg,
		log:       log,
		fetch:     fetch,
		pacer:     pacer,
		store:     st,
		processor: normalizer.NewProcessor(),
		collector: metrics.NewCollector(),
		pageCap:   pageCap,
	}
}

// Metrics exposes the run's collector, shared across workers.
func (r *Runner) Metrics() *metrics.Collector {
	return r.collector
}

// Run executes the request: plan, fetch, normalize, write. It returns
// a report in every case; the error is non-nil only for fatal
// conditions (bad request, store auth or missing table, cancellation).
func (r *Runner) Run(ctx context.Context, req *models.RunRequest) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Mode:      req.Mode,
		StartedAt: time.Now(),
		Families:  make(map[models.Family]*FamilyReport),
	}

	if err := req.Validate(); err != nil {
		report.State = StateFailed
		report.FinishedAt = time.Now()

		return report, err
	}

	if err := r.store.DescribeTable(ctx); err != nil {
		report.State = StateFailed
		report.FinishedAt = time.Now()

		return report, err
	}

	tasks := BuildPlan(r.cfg, req, time.Now())
	chunks := Chunk(tasks, r.cfg.Ingest.Parallel.ChunkSize)

	// With a session-wide boundary the set must outlive any one task, so
	// one set per family is shared across workers. The other frequencies
	// scope their sets inside the task.
	dedupe := r.cfg.Store.Deduplication
	sessionSets := make(map[models.Family]*writer.IDSet)

	if dedupe.Enabled && dedupe.ResetFrequency == config.ResetPerSession {
		for _, family := range req.Families {
			sessionSets[family] = writer.NewIDSet(dedupe.MemoryThresholdMB)
		}
	}

	r.log.Info("run starting",
		"run_id", report.RunID,
		"mode", string(req.Mode),
		"tasks", len(tasks),
		"workers", r.cfg.Ingest.Parallel.MaxWorkers,
	)

	queue := make(chan []Task)
	group, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex

	for i := 0; i < r.cfg.Ingest.Parallel.MaxWorkers; i++ {
		group.Go(func() error {
			for chunk := range queue {
				for _, task := range chunk {
					steps := r.runTask(gctx, task, sessionSets[task.Family])

					mu.Lock()
					fr := report.family(task.Family)
					for _, step := range steps {
						fr.absorb(step.window, step.result)
					}
					mu.Unlock()

					for _, step := range steps {
						if isFatal(step.result.Err) {
							return step.result.Err
						}
					}
				}
			}

			return nil
		})
	}

	group.Go(func() error {
		defer close(queue)

		for _, chunk := range chunks {
			select {
			case queue <- chunk:
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		return nil
	})

	err := group.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	report.FinishedAt = time.Now()
	report.Snapshots = r.collector.SnapshotAll()
	report.State = r.finalState(ctx, report, err)

	r.log.Info("run finished",
		"run_id", report.RunID,
		"state", string(report.State),
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String(),
	)

	return report, err
}

// taskStep is one traversed window within a task.
type taskStep struct {
	window models.Window
	result traversal.Result
}

// runTask processes one (family, sub-window) task. With per-date
// resets the task steps day by day with a fresh set per day; per-range
// gets a fresh set for the whole sub-window; per-session shares the
// run-wide family set.
func (r *Runner) runTask(ctx context.Context, task Task, sessionSet *writer.IDSet) []taskStep {
	dedupe := r.cfg.Store.Deduplication

	steps := []models.Window{task.Window}
	if dedupe.Enabled && dedupe.ResetFrequency == config.ResetPerDate {
		steps = dayWindows(task.Window)
	}

	out := make([]taskStep, 0, len(steps))

	for _, step := range steps {
		set := sessionSet
		if set == nil {
			set = writer.NewIDSet(dedupe.MemoryThresholdMB)
		}

		w := writer.New(r.store, set, r.log.With("family", string(task.Family)), writer.Options{
			Enabled:    dedupe.Enabled,
			BatchSize:  r.cfg.Ingest.BatchSize,
			MaxRetries: r.cfg.MaxRetries(),
			RetryDelay: r.cfg.RetryDelay(),
		})

		result := r.runWindow(ctx, task.Family, step, w)
		out = append(out, taskStep{window: step, result: result})

		if result.Terminal == traversal.TerminalCancelled || isFatal(result.Err) {
			break
		}
	}

	return out
}

// runWindow traverses one (family, window) and writes what it emits.
// Records are flushed in batches as they accumulate; a fatal store
// failure cancels the traversal in flight.
func (r *Runner) runWindow(ctx context.Context, family models.Family, window models.Window, w *writer.Writer) traversal.Result {
	stats := r.collector.Family(family)
	engine := traversal.NewEngine(r.fetch, r.pacer, r.log, r.cfg.Ingest.PageSize, r.cfg.MaxRetries(), r.pageCap)

	tctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		buffer   []*models.Record
		writeErr error
	)

	flush := func() {
		if len(buffer) == 0 || writeErr != nil {
			return
		}

		_, err := w.Write(tctx, buffer, stats)
		buffer = buffer[:0]

		if err != nil {
			writeErr = err
			cancel()
		}
	}

	emit := func(raw map[string]any) {
		record, err := r.processor.Process(family, raw)
		if err != nil {
			stats.FailedValidation.Add(1)
			r.log.Warn("record rejected",
				"family", string(family),
				"window", window.String(),
				"error", err.Error(),
			)

			return
		}

		stats.Validated.Add(1)
		buffer = append(buffer, record)

		if len(buffer) >= r.cfg.Ingest.BatchSize {
			flush()
		}
	}

	result := engine.Traverse(tctx, family, window.From, window.To, emit)

	stats.Requested.Add(int64(result.Pages + result.Retries))
	stats.Received.Add(int64(result.Records))
	stats.Retries.Add(int64(result.Retries))
	stats.RateLimitWaits.Add(int64(result.RateLimitWaits))

	flush()

	if writeErr != nil {
		result.Err = writeErr

		// Distinguish a caller cancellation from the traversal cancel
		// triggered by the failed write itself.
		if ctx.Err() == nil {
			result.Terminal = traversal.TerminalFailed
			result.Reason = "store write failed"
		} else {
			result.Terminal = traversal.TerminalCancelled
		}
	}

	return result
}

// finalState folds family terminals and the group error into the run
// state.
func (r *Runner) finalState(ctx context.Context, report *Report, err error) State {
	if ctx.Err() != nil {
		return StateCancelled
	}

	if err != nil {
		return StateFailed
	}

	state := StateOK

	for _, fr := range report.Families {
		switch fr.Terminal {
		case traversal.TerminalFailed, traversal.TerminalPartial:
			state = StatePartial
		case traversal.TerminalCancelled:
			return StateCancelled
		}
	}

	return state
}

// dayWindows splits a window into single-day windows, oldest first.
func dayWindows(w models.Window) []models.Window {
	dates := w.Dates()
	out := make([]models.Window, 0, len(dates))

	for _, d := range dates {
		out = append(out, models.Window{From: d, To: d})
	}

	return out
}

// isFatal reports whether an error must end the whole run.
func isFatal(err error) bool {
	if err == nil {
		return false
	}

	var se *store.Error
	if errors.As(err, &se) {
		return se.Code.Fatal()
	}

	return false
}
