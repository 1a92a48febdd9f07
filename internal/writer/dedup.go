// Package writer suppresses same-session duplicates and issues
// batched store writes with per-item retry.
package writer

import (
	"sync"
)

// idOverheadBytes approximates per-entry map overhead when estimating
// the set's memory footprint against the advisory threshold.
const idOverheadBytes = 48

// IDSet is the in-session processed-ID registry. It holds only
// identifiers; a reset is the only way it shrinks. Safe for
// concurrent use.
type IDSet struct {
	mu             sync.Mutex
	ids            map[string]struct{}
	approxBytes    int64
	thresholdBytes int64
	resets         int
}

// NewIDSet creates an empty set with an advisory memory threshold.
func NewIDSet(memoryThresholdMB int) *IDSet {
	return &IDSet{
		ids:            make(map[string]struct{}),
		thresholdBytes: int64(memoryThresholdMB) << 20,
	}
}

// Seen reports whether id was already offered to the writer.
func (s *IDSet) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.ids[id]

	return ok
}

// Add records an id as processed.
func (s *IDSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return
	}

	s.ids[id] = struct{}{}
	s.approxBytes += int64(len(id)) + idOverheadBytes
}

// Reset clears the set. Boundary events (per date, per range, or
// forced by the memory threshold) are the only callers.
func (s *IDSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[string]struct{})
	s.approxBytes = 0
	s.resets++
}

// Len reports how many identifiers are held.
func (s *IDSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ids)
}

// Resets reports how many times the set has been cleared.
func (s *IDSet) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resets
}

// OverThreshold reports whether the approximate footprint exceeds the
// advisory memory threshold.
func (s *IDSet) OverThreshold() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.thresholdBytes > 0 && s.approxBytes > s.thresholdBytes
}
