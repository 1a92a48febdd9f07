package writer

import (
	"context"
	"math/rand"
	"time"

	"congressd/internal/logger"
	"congressd/internal/metrics"
	"congressd/internal/models"
	"congressd/internal/store"
)

// backoffJitterFraction bounds the random spread applied to the batch
// retry backoff.
const backoffJitterFraction = 0.25

// Writer batches validated records into the store, suppressing any id
// already stored this session. One Writer serves one run; the IDSet
// is shared with the caller, which decides when it resets.
type Writer struct {
	store      store.Store
	set        *IDSet
	log        *logger.Logger
	enabled    bool
	batchSize  int
	maxRetries int
	retryDelay time.Duration
}

// Options configures a Writer.
type Options struct {
	Enabled    bool
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// New creates a Writer over the given store and processed-ID set.
func New(st store.Store, set *IDSet, log *logger.Logger, opts Options) *Writer {
	return &Writer{
		store:      st,
		set:        set,
		log:        log,
		enabled:    opts.Enabled,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
}

// Result accounts for one Write call.
type Result struct {
	Stored     int
	Duplicates int
	Failed     int
	Retries    int
	FailedIDs  []string
}

// Write stores a slice of records. Duplicates (already stored this
// session, or repeated within the slice) are skipped before any store
// call. Retryable per-item failures are retried with exponential
// backoff up to the retry budget; items rejected by the conditional
// check or store validation are dropped and counted. A returned error
// is fatal for the run (auth, missing table, cancellation).
func (w *Writer) Write(ctx context.Context, records []*models.Record, stats *metrics.FamilyStats) (Result, error) {
	var res Result

	fresh := make([]*models.Record, 0, len(records))
	offered := make(map[string]struct{}, len(records))

	for _, record := range records {
		if w.enabled {
			if _, ok := offered[record.ID]; ok || w.set.Seen(record.ID) {
				res.Duplicates++
				stats.DuplicatesSkip.Add(1)

				continue
			}

			offered[record.ID] = struct{}{}
		}

		fresh = append(fresh, record)
	}

	for start := 0; start < len(fresh); start += w.batchSize {
		end := start + w.batchSize
		if end > len(fresh) {
			end = len(fresh)
		}

		if err := w.writeChunk(ctx, fresh[start:end], stats, &res); err != nil {
			return res, err
		}
	}

	w.checkMemory()

	return res, nil
}

// writeChunk splits one logical batch into store-native batches.
func (w *Writer) writeChunk(ctx context.Context, records []*models.Record, stats *metrics.FamilyStats, res *Result) error {
	for start := 0; start < len(records); start += store.MaxBatchItems {
		end := start + store.MaxBatchItems
		if end > len(records) {
			end = len(records)
		}

		if err := w.writeBatch(ctx, records[start:end], stats, res); err != nil {
			return err
		}
	}

	return nil
}

// writeBatch issues one store batch, retrying retryable per-item
// failures until they succeed or the budget runs out.
func (w *Writer) writeBatch(ctx context.Context, records []*models.Record, stats *metrics.FamilyStats, res *Result) error {
	pending := records

	for attempt := 0; ; attempt++ {
		results, err := w.store.BatchPut(ctx, pending)
		if err != nil {
			return err
		}

		byID := make(map[string]*models.Record, len(pending))
		for _, record := range pending {
			byID[record.ID] = record
		}

		var retryable []*models.Record

		for _, item := range results {
			if item.Err == nil {
				// Only stored ids enter the processed set: an item that
				// is later dropped stays eligible for a retry within the
				// same boundary.
				if w.enabled {
					w.set.Add(item.ID)
				}

				res.Stored++
				stats.Stored.Add(1)

				continue
			}

			if item.Err.Code.Fatal() {
				return item.Err
			}

			if item.Err.Code.Retryable() && attempt < w.maxRetries {
				retryable = append(retryable, byID[item.ID])

				continue
			}

			res.Failed++
			res.FailedIDs = append(res.FailedIDs, item.ID)
			stats.FailedStore.Add(1)
			w.log.Warn("item dropped",
				"id", item.ID,
				"code", string(item.Err.Code),
				"error", item.Err.Error(),
			)
		}

		if len(retryable) == 0 {
			return nil
		}

		res.Retries++
		stats.Retries.Add(1)

		if err := w.sleep(ctx, attempt); err != nil {
			return err
		}

		pending = retryable
	}
}

// sleep blocks for the exponential backoff of the given attempt,
// honoring cancellation.
func (w *Writer) sleep(ctx context.Context, attempt int) error {
	wait := w.retryDelay * time.Duration(1<<attempt)
	wait += time.Duration(rand.Float64() * backoffJitterFraction * float64(wait))

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// checkMemory forces a reset when the processed-ID set has outgrown
// its advisory threshold. The reset narrows the deduplication boundary
// the same way a scheduled reset does: later occurrences of earlier
// ids reach the store again and the newest write lands.
func (w *Writer) checkMemory() {
	if !w.enabled || !w.set.OverThreshold() {
		return
	}

	w.log.Warn("processed-id set over memory threshold, resetting",
		"ids", w.set.Len(),
	)
	w.set.Reset()
}
