package store

import (
	"context"
	"errors"
	"testing"

	"congressd/internal/models"
)

func record(id string, version int) *models.Record {
	return &models.Record{
		ID:         id,
		Type:       models.FamilyBill,
		Congress:   118,
		UpdateDate: "2024-03-15",
		Version:    version,
	}
}

func TestMemoryStore_PutItem_ConditionalVersion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.PutItem(ctx, record("a", 1)); err != nil {
		t.Fatalf("First put failed: %v", err)
	}

	// Same version is left alone.
	err := s.PutItem(ctx, record("a", 1))

	var se *Error
	if !errors.As(err, &se) || se.Code != CodeConditionalFailed {
		t.Fatalf("Expected conditional_check_failed, got %v", err)
	}

	// A newer schema version replaces the item.
	if err := s.PutItem(ctx, record("a", 2)); err != nil {
		t.Fatalf("Newer version put failed: %v", err)
	}

	item, ok := s.Get("a")
	if !ok || item["version"] != 2 {
		t.Errorf("Expected version 2 stored, got %v", item)
	}
}

func TestMemoryStore_QueryPrefix_RangeFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, r := range []*models.Record{
		{ID: "b1", Type: models.FamilyBill, Congress: 118, UpdateDate: "2024-01-10", Version: 1},
		{ID: "b2", Type: models.FamilyBill, Congress: 118, UpdateDate: "2024-02-10", Version: 1},
		{ID: "n1", Type: models.FamilyNomination, Congress: 118, UpdateDate: "2024-01-15", Version: 1},
	} {
		if err := s.PutItem(ctx, r); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	var got []string

	err := s.QueryPrefix(ctx, Query{
		HashKey:   "type",
		HashValue: "bill",
		RangeKey:  "update_date",
		RangeFrom: "2024-01-01",
		RangeTo:   "2024-01-31",
	}, func(item map[string]any) error {
		got = append(got, item["id"].(string))

		return nil
	})
	if err != nil {
		t.Fatalf("QueryPrefix failed: %v", err)
	}

	if len(got) != 1 || got[0] != "b1" {
		t.Errorf("Expected [b1], got %v", got)
	}
}

func TestErrorCode_Classes(t *testing.T) {
	retryable := []ErrorCode{CodeThroughputExceeded, CodeTransient, CodeTimeout}
	for _, code := range retryable {
		if !code.Retryable() {
			t.Errorf("Expected %s retryable", code)
		}

		if code.Fatal() {
			t.Errorf("Expected %s not fatal", code)
		}
	}

	for _, code := range []ErrorCode{CodeAuthFailed, CodeTableMissing} {
		if !code.Fatal() || code.Retryable() {
			t.Errorf("Expected %s fatal and not retryable", code)
		}
	}

	if CodeConditionalFailed.Retryable() || CodeValidationRejected.Retryable() {
		t.Error("Item-level rejections must not be retryable")
	}
}

func TestCodeOf(t *testing.T) {
	err := &Error{Code: CodeTableMissing, Err: errors.New("missing")}
	if CodeOf(err) != CodeTableMissing {
		t.Errorf("Expected table_missing, got %s", CodeOf(err))
	}

	if CodeOf(errors.New("anonymous")) != CodeTransient {
		t.Error("Expected unclassified errors to map to transient")
	}
}
