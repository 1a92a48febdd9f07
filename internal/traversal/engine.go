// Package traversal walks paginated list endpoints for one family and
// date window, emitting raw records in upstream order and reporting a
// terminal outcome per sub-window.
package traversal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"congressd/internal/congress"
	"congressd/internal/logger"
	"congressd/internal/models"
)

// ErrRetriesExhausted is returned when a page keeps failing after the
// configured retry budget.
var ErrRetriesExhausted = errors.New("page retries exhausted")

// Terminal classifies how a traversal ended.
type Terminal string

// Terminal outcomes.
const (
	TerminalCompleted Terminal = "completed"
	TerminalPartial   Terminal = "partial"
	TerminalFailed    Terminal = "failed"
	TerminalCancelled Terminal = "cancelled"
)

// Result summarizes one traversal call.
type Result struct {
	Terminal       Terminal
	Reason         string
	FailKind       models.Outcome
	Pages          int
	Records        int
	Retries        int
	RateLimitWaits int
	LastOffset     int
	Err            error
}

// Fetcher fetches a single page. *congress.Client satisfies this.
type Fetcher interface {
	FetchPage(ctx context.Context, family models.Family, from, to time.Time, offset, limit int) (*congress.Page, models.Outcome, error)
}

// Pacer provides waits and consumes outcome tags. *governor.Governor
// satisfies this.
type Pacer interface {
	Wait(ctx context.Context, family models.Family) error
	Record(family models.Family, outcome models.Outcome)
	SetRetryAfter(family models.Family, d time.Duration)
}

// Engine enumerates every record in a (family, window) across the
// paginated list endpoint.
type Engine struct {
	fetch      Fetcher
	pacer      Pacer
	log        *logger.Logger
	pageSize   int
	maxRetries int
	pageCap    int
}

// NewEngine creates a traversal engine. pageCap <= 0 disables the cap.
func NewEngine(fetch Fetcher, pacer Pacer, log *logger.Logger, pageSize, maxRetries, pageCap int) *Engine {
	if pageSize < 1 {
		pageSize = 1
	}

	return &Engine{
		fetch:      fetch,
		pacer:      pacer,
		log:        log,
		pageSize:   pageSize,
		maxRetries: maxRetries,
		pageCap:    pageCap,
	}
}

// EmitFunc receives each raw record in upstream list order.
type EmitFunc func(raw map[string]any)

// Traverse walks the family's listing for [from, to]. Each page is
// retried up to maxRetries on retryable outcomes with governor waits
// in between; a permanent failure ends the traversal.
func (e *Engine) Traverse(ctx context.Context, family models.Family, from, to time.Time, emit EmitFunc) Result {
	result := Result{Terminal: TerminalCompleted}

	if to.Before(from) {
		return result
	}

	offset := 0
	pageRetries := 0

	for {
		if err := e.pacer.Wait(ctx, family); err != nil {
			result.Terminal = TerminalCancelled
			result.Err = err

			return result
		}

		page, outcome, err := e.fetch.FetchPage(ctx, family, from, to, offset, e.pageSize)
		e.pacer.Record(family, outcome)

		switch outcome {
		case models.OutcomeOK:
			pageRetries = 0
			result.Pages++

			for _, raw := range page.Records {
				emit(raw)
			}

			result.Records += len(page.Records)
			result.LastOffset = offset

			if len(page.Records) == 0 || !page.HasMore() {
				return result
			}

			offset += len(page.Records)

			if e.pageCap > 0 && result.Pages >= e.pageCap {
				result.Terminal = TerminalPartial
				result.Reason = "page cap reached"

				return result
			}

		case models.OutcomeRateLimited:
			result.RateLimitWaits++

			if page != nil && page.RetryAfter > 0 {
				e.pacer.SetRetryAfter(family, page.RetryAfter)
			}

			if done := e.retryOrFail(&result, &pageRetries, offset, outcome, err); done {
				return result
			}

		case models.OutcomeTransient, models.OutcomeTimeout:
			if done := e.retryOrFail(&result, &pageRetries, offset, outcome, err); done {
				return result
			}

		case models.OutcomeCancelled:
			result.Terminal = TerminalCancelled
			result.Err = err

			return result

		default: // permanent
			e.failPage(&result, offset, outcome, err)

			return result
		}
	}
}

// retryOrFail books one retry attempt against the page budget. It
// returns true when the budget is exhausted and the traversal is over.
func (e *Engine) retryOrFail(result *Result, pageRetries *int, offset int, outcome models.Outcome, err error) bool {
	if *pageRetries < e.maxRetries {
		*pageRetries++
		result.Retries++

		e.log.Debug("retrying page",
			"offset", offset,
			"attempt", *pageRetries,
			"max", e.maxRetries,
			"outcome", string(outcome),
		)

		return false
	}

	e.failPage(result, offset, outcome, fmt.Errorf("%w at offset %d: %v", ErrRetriesExhausted, offset, err))

	return true
}

// failPage closes the traversal with partial or failed depending on
// whether anything was already emitted.
func (e *Engine) failPage(result *Result, offset int, outcome models.Outcome, err error) {
	result.FailKind = outcome
	result.LastOffset = offset
	result.Err = err

	if result.Records > 0 {
		result.Terminal = TerminalPartial
		result.Reason = fmt.Sprintf("page failed at offset %d", offset)

		return
	}

	result.Terminal = TerminalFailed
}
