package store

import (
	"context"
	"sort"
	"sync"

	"congressd/internal/models"
)

// MemoryStore is an in-memory Store used by tests and local runs.
// PutHook, when set, is consulted before every write and may inject
// a failure for that item.
type MemoryStore struct {
	mu      sync.Mutex
	items   map[string]map[string]any
	PutHook func(record *models.Record) *Error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]map[string]any),
	}
}

// DescribeTable always succeeds for the in-memory store.
func (s *MemoryStore) DescribeTable(_ context.Context) error {
	return nil
}

// PutItem stores one record, honoring the conditional-version rule.
func (s *MemoryStore) PutItem(_ context.Context, record *models.Record) error {
	if err := s.checkHook(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[record.ID]; ok {
		if version, ok := existing["version"].(int); ok && version >= record.Version {
			return &Error{Code: CodeConditionalFailed, ID: record.ID}
		}
	}

	s.items[record.ID] = record.Item()

	return nil
}

// BatchPut stores up to MaxBatchItems records with per-item outcomes.
func (s *MemoryStore) BatchPut(_ context.Context, records []*models.Record) ([]ItemResult, error) {
	results := make([]ItemResult, 0, len(records))

	for _, record := range records {
		if err := s.checkHook(record); err != nil {
			if err.Code.Fatal() {
				return nil, err
			}

			results = append(results, ItemResult{ID: record.ID, Err: err})

			continue
		}

		s.mu.Lock()
		s.items[record.ID] = record.Item()
		s.mu.Unlock()

		results = append(results, ItemResult{ID: record.ID})
	}

	return results, nil
}

// QueryPrefix iterates stored items whose attribute q.HashKey equals
// q.HashValue, in ascending id order, applying the range predicate
// when present.
func (s *MemoryStore) QueryPrefix(_ context.Context, q Query, fn IterFunc) error {
	s.mu.Lock()

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	matched := make([]map[string]any, 0, len(ids))

	for _, id := range ids {
		item := s.items[id]

		hash, _ := item[q.HashKey].(string)
		if hash != q.HashValue {
			continue
		}

		if q.RangeKey != "" {
			rangeValue, _ := item[q.RangeKey].(string)
			if q.RangeFrom != "" && rangeValue < q.RangeFrom {
				continue
			}

			if q.RangeTo != "" && rangeValue > q.RangeTo {
				continue
			}
		}

		matched = append(matched, item)
	}

	s.mu.Unlock()

	for _, item := range matched {
		if err := fn(item); err != nil {
			return err
		}
	}

	return nil
}

// Len reports how many items are stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

// Get returns a stored item by id.
func (s *MemoryStore) Get(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]

	return item, ok
}

// IDs returns every stored id in ascending order.
func (s *MemoryStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (s *MemoryStore) checkHook(record *models.Record) *Error {
	if s.PutHook == nil {
		return nil
	}

	return s.PutHook(record)
}
