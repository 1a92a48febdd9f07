package governor

import (
	"context"
	"testing"
	"time"

	"congressd/internal/models"
)

func flatRate(rps float64) RateFunc {
	return func(models.Family) float64 { return rps }
}

func TestNextInterval_BaseWithJitter(t *testing.T) {
	g := New(100, flatRate(2.0)) // base 500ms

	for i := 0; i < 50; i++ {
		got := g.NextInterval(models.FamilyBill)

		min := time.Duration(float64(500*time.Millisecond) * (1 - jitterFraction))
		max := time.Duration(float64(500*time.Millisecond) * (1 + jitterFraction))

		if got < min || got > max {
			t.Fatalf("Interval %v outside [%v, %v]", got, min, max)
		}
	}
}

func TestNextInterval_BackoffLowerBound(t *testing.T) {
	g := New(100, flatRate(1.0)) // base 1s

	for _, failures := range []int{1, 2, 3} {
		g.mu.Lock()
		st := g.state(models.FamilyBill)
		st.consecutiveErrors = failures
		st.healthFactor = minHealthFactor
		g.mu.Unlock()

		// The multiplier is 2^(n+1), so even with maximum negative
		// jitter the wait stays at or above base * 2^n.
		floor := time.Duration(float64(time.Second) * float64(int64(1)<<failures))

		for i := 0; i < 20; i++ {
			if got := g.NextInterval(models.FamilyBill); got < floor {
				t.Fatalf("failures=%d: interval %v below floor %v", failures, got, floor)
			}
		}
	}
}

func TestNextInterval_BackoffCapped(t *testing.T) {
	g := New(100, flatRate(1.0))

	g.mu.Lock()
	st := g.state(models.FamilyBill)
	st.consecutiveErrors = 30
	st.healthFactor = minHealthFactor
	g.mu.Unlock()

	ceiling := time.Duration(float64(time.Second) * (1 + jitterFraction) * maxBackoffMultiplier)

	for i := 0; i < 20; i++ {
		if got := g.NextInterval(models.FamilyBill); got > ceiling {
			t.Fatalf("Interval %v above the %v cap", got, ceiling)
		}
	}
}

func TestRecord_HealthFactorClamps(t *testing.T) {
	g := New(100, flatRate(1.0))

	for i := 0; i < 50; i++ {
		g.Record(models.FamilyBill, models.OutcomeTransient)
	}

	if hf := g.HealthFactor(models.FamilyBill); hf != maxHealthFactor {
		t.Errorf("Expected health factor clamped at %v, got %v", maxHealthFactor, hf)
	}

	for i := 0; i < 200; i++ {
		g.Record(models.FamilyBill, models.OutcomeOK)
	}

	if hf := g.HealthFactor(models.FamilyBill); hf != minHealthFactor {
		t.Errorf("Expected health factor decayed to %v, got %v", minHealthFactor, hf)
	}
}

func TestRecord_SuccessResetsStreak(t *testing.T) {
	g := New(100, flatRate(1.0))

	g.Record(models.FamilyBill, models.OutcomeTimeout)
	g.Record(models.FamilyBill, models.OutcomeRateLimited)

	if n := g.ConsecutiveErrors(models.FamilyBill); n != 2 {
		t.Fatalf("Expected streak 2, got %d", n)
	}

	g.Record(models.FamilyBill, models.OutcomeOK)

	if n := g.ConsecutiveErrors(models.FamilyBill); n != 0 {
		t.Errorf("Expected streak reset, got %d", n)
	}
}

func TestRecord_CancelledIsNotAHealthSignal(t *testing.T) {
	g := New(100, flatRate(1.0))

	g.Record(models.FamilyBill, models.OutcomeCancelled)

	if n := g.ConsecutiveErrors(models.FamilyBill); n != 0 {
		t.Errorf("Expected no streak after cancellation, got %d", n)
	}

	if hf := g.HealthFactor(models.FamilyBill); hf != minHealthFactor {
		t.Errorf("Expected untouched health factor, got %v", hf)
	}
}

func TestSetRetryAfter_OneShotOverride(t *testing.T) {
	g := New(100, flatRate(10.0)) // base 100ms

	g.SetRetryAfter(models.FamilyBill, 5*time.Second)

	first := g.NextInterval(models.FamilyBill)
	if first < 5*time.Second || first > 5*time.Second+hintJitterMax {
		t.Fatalf("Expected hinted interval near 5s, got %v", first)
	}

	// The hint is consumed; the next interval falls back to the formula.
	second := g.NextInterval(models.FamilyBill)
	if second >= time.Second {
		t.Errorf("Expected formula interval after hint consumed, got %v", second)
	}
}

func TestFamiliesAreIndependent(t *testing.T) {
	g := New(100, flatRate(1.0))

	for i := 0; i < 5; i++ {
		g.Record(models.FamilyBill, models.OutcomeTransient)
	}

	if n := g.ConsecutiveErrors(models.FamilyMember); n != 0 {
		t.Errorf("Expected member family untouched, got streak %d", n)
	}

	if hf := g.HealthFactor(models.FamilyMember); hf != minHealthFactor {
		t.Errorf("Expected member health factor %v, got %v", minHealthFactor, hf)
	}
}

func TestWait_CancelledContext(t *testing.T) {
	g := New(100, flatRate(0.01)) // base 100s, forces a long wait

	// Prime lastDispatch so Wait has something to wait out.
	if err := g.Wait(context.Background(), models.FamilyBill); err != nil {
		t.Fatalf("First wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()

	err := g.Wait(ctx, models.FamilyBill)
	if err == nil {
		t.Fatal("Expected context error, got nil")
	}

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Wait did not return promptly on cancellation: %v", elapsed)
	}
}

func TestWait_FirstDispatchIsImmediate(t *testing.T) {
	g := New(100, flatRate(0.1)) // base 10s

	start := time.Now()

	if err := g.Wait(context.Background(), models.FamilyBill); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("First dispatch should not wait the full interval: %v", elapsed)
	}
}
