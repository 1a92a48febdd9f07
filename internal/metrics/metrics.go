// Package metrics aggregates per-family run counters. The collector
// is shared by all workers; counters are lock-free once a family's
// entry exists.
package metrics

import (
	"sync"
	"sync/atomic"

	"congressd/internal/models"
)

// FamilyStats holds the live counters for one resource family.
type FamilyStats struct {
	Requested        atomic.Int64
	Received         atomic.Int64
	Validated        atomic.Int64
	Stored           atomic.Int64
	DuplicatesSkip   atomic.Int64
	FailedValidation atomic.Int64
	FailedStore      atomic.Int64
	Retries          atomic.Int64
	RateLimitWaits   atomic.Int64
}

// Snapshot is a point-in-time copy of a family's counters.
type Snapshot struct {
	Requested        int64
	Received         int64
	Validated        int64
	Stored           int64
	DuplicatesSkip   int64
	FailedValidation int64
	FailedStore      int64
	Retries          int64
	RateLimitWaits   int64
}

// Collector aggregates counters across all families in a run.
type Collector struct {
	mu       sync.Mutex
	families map[models.Family]*FamilyStats
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		families: make(map[models.Family]*FamilyStats),
	}
}

// Family returns the live stats entry for a family, creating it on
// first use.
func (c *Collector) Family(f models.Family) *FamilyStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.families[f]
	if !ok {
		stats = &FamilyStats{}
		c.families[f] = stats
	}

	return stats
}

// SnapshotAll copies every family's counters, keyed by family tag.
func (c *Collector) SnapshotAll() map[models.Family]Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[models.Family]Snapshot, len(c.families))
	for f, s := range c.families {
		out[f] = Snapshot{
			Requested:        s.Requested.Load(),
			Received:         s.Received.Load(),
			Validated:        s.Validated.Load(),
			Stored:           s.Stored.Load(),
			DuplicatesSkip:   s.DuplicatesSkip.Load(),
			FailedValidation: s.FailedValidation.Load(),
			FailedStore:      s.FailedStore.Load(),
			Retries:          s.Retries.Load(),
			RateLimitWaits:   s.RateLimitWaits.Load(),
		}
	}

	return out
}

// Totals sums every family's counters into one snapshot.
func (c *Collector) Totals() Snapshot {
	var total Snapshot

	for _, s := range c.SnapshotAll() {
		total.Requested += s.Requested
		total.Received += s.Received
		total.Validated += s.Validated
		total.Stored += s.Stored
		total.DuplicatesSkip += s.DuplicatesSkip
		total.FailedValidation += s.FailedValidation
		total.FailedStore += s.FailedStore
		total.Retries += s.Retries
		total.RateLimitWaits += s.RateLimitWaits
	}

	return total
}
