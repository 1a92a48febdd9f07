// Package governor paces upstream requests. It enforces a per-family
// interval with jitter, escalates an adaptive backoff on consecutive
// failures, and additionally caps total throughput with a process-wide
// token bucket.
package governor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"congressd/internal/models"
)

// Backoff and health-factor bounds.
const (
	jitterFraction       = 0.15
	maxBackoffMultiplier = 120.0
	minHealthFactor      = 1.0
	maxHealthFactor      = 8.0
	healthIncrease       = 0.5
	healthDecay          = 0.9
	hintJitterMax        = 500 * time.Millisecond
)

// RateFunc resolves the configured requests-per-second for a family.
type RateFunc func(models.Family) float64

// familyState is the per-family health entry. Entries are created on
// first use and live for the run.
type familyState struct {
	consecutiveErrors int
	healthFactor      float64
	lastDispatch      time.Time
	retryAfterHint    time.Duration
}

// Governor is the shared pacing and adaptive-backoff component.
// All methods are safe for concurrent use.
type Governor struct {
	mu       sync.Mutex
	families map[models.Family]*familyState
	rateFor  RateFunc
	global   *rate.Limiter
}

// New creates a governor. globalRPS caps total request throughput
// across all families; rateFor supplies per-family pacing.
func New(globalRPS float64, rateFor RateFunc) *Governor {
	burst := int(math.Ceil(globalRPS))
	if burst < 1 {
		burst = 1
	}

	return &Governor{
		families: make(map[models.Family]*familyState),
		rateFor:  rateFor,
		global:   rate.NewLimiter(rate.Limit(globalRPS), burst),
	}
}

// state returns the entry for a family, creating it on first use.
// Callers must hold g.mu.
func (g *Governor) state(family models.Family) *familyState {
	st, ok := g.families[family]
	if !ok {
		st = &familyState{healthFactor: minHealthFactor}
		g.families[family] = st
	}

	return st
}

// NextInterval computes the wait before the next dispatch to a family.
// A pending Retry-After hint overrides the computed backoff.
func (g *Governor) NextInterval(family models.Family) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(family)

	if st.retryAfterHint > 0 {
		hint := st.retryAfterHint + time.Duration(rand.Int63n(int64(hintJitterMax)))
		st.retryAfterHint = 0

		return hint
	}

	base := time.Duration(float64(time.Second) / g.rateFor(family))
	jitter := time.Duration((rand.Float64()*2 - 1) * jitterFraction * float64(base))

	backoff := 1.0
	if st.consecutiveErrors > 0 {
		backoff = math.Min(math.Pow(2, float64(st.consecutiveErrors+1)), maxBackoffMultiplier)
	}

	wait := time.Duration(float64(base+jitter) * st.healthFactor * backoff)
	if wait < 0 {
		wait = 0
	}

	return wait
}

// Wait suspends the caller until the family's interval has elapsed
// since its last dispatch and a global token is available. A cancelled
// context returns promptly with ctx.Err.
func (g *Governor) Wait(ctx context.Context, family models.Family) error {
	interval := g.NextInterval(family)

	g.mu.Lock()
	last := g.state(family).lastDispatch
	g.mu.Unlock()

	if !last.IsZero() {
		target := last.Add(interval)
		if wait := time.Until(target); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	if err := g.global.Wait(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	g.state(family).lastDispatch = time.Now()
	g.mu.Unlock()

	return nil
}

// Record feeds one call outcome back into the family's health entry.
func (g *Governor) Record(family models.Family, outcome models.Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(family)

	switch outcome {
	case models.OutcomeOK:
		st.consecutiveErrors = 0
		st.healthFactor = math.Max(minHealthFactor, st.healthFactor*healthDecay)
	case models.OutcomeTransient, models.OutcomeRateLimited, models.OutcomeTimeout:
		st.consecutiveErrors++
		st.healthFactor = math.Min(maxHealthFactor, st.healthFactor+healthIncrease)
	case models.OutcomePermanent:
		st.consecutiveErrors++
	case models.OutcomeCancelled:
		// Cancellation is not a health signal.
	}
}

// SetRetryAfter records an upstream Retry-After hint; the next wait
// for the family honors it instead of computed backoff.
func (g *Governor) SetRetryAfter(family models.Family, d time.Duration) {
	if d <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.state(family).retryAfterHint = d
}

// ConsecutiveErrors reports the family's current failure streak.
func (g *Governor) ConsecutiveErrors(family models.Family) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state(family).consecutiveErrors
}

// HealthFactor reports the family's current health multiplier.
func (g *Governor) HealthFactor(family models.Family) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state(family).healthFactor
}
