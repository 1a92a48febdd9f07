// Package store defines the minimal key-value store capability the
// ingestion core requires, and provides the DynamoDB adapter plus an
// in-memory implementation.
package store

import (
	"context"
	"errors"
	"fmt"

	"congressd/internal/models"
)

// MaxBatchItems is the store-native batch write limit.
const MaxBatchItems = 25

// ErrorCode classifies a store failure for retry and accounting.
type ErrorCode string

// Store failure classes.
const (
	CodeThroughputExceeded ErrorCode = "throughput_exceeded"
	CodeTransient          ErrorCode = "transient_network"
	CodeTimeout            ErrorCode = "timeout"
	CodeConditionalFailed  ErrorCode = "conditional_check_failed"
	CodeValidationRejected ErrorCode = "validation_rejected_by_store"
	CodeAuthFailed         ErrorCode = "auth_failed"
	CodeTableMissing       ErrorCode = "table_missing"
)

// Retryable reports whether a batch carrying this code may be retried.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeThroughputExceeded, CodeTransient, CodeTimeout:
		return true
	default:
		return false
	}
}

// Fatal reports whether this code must abort the whole run.
func (c ErrorCode) Fatal() bool {
	return c == CodeAuthFailed || c == CodeTableMissing
}

// Error is a classified store failure, optionally tied to one item.
type Error struct {
	Code ErrorCode
	ID   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store %s (id=%s): %v", e.Code, e.ID, e.Err)
	}

	return fmt.Sprintf("store %s: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the failure class from any error; unclassified
// errors count as transient.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}

	return CodeTransient
}

// ItemResult is the per-item outcome of a batch write. A nil Err
// means the item was stored.
type ItemResult struct {
	ID  string
	Err *Error
}

// Query addresses a secondary index with an optional range predicate.
type Query struct {
	Index     string
	HashKey   string
	HashValue string
	RangeKey  string
	RangeFrom string
	RangeTo   string
}

// IterFunc receives one stored item at a time; returning an error
// stops the iteration.
type IterFunc func(item map[string]any) error

// Store is the capability set the core requires of any backing store.
type Store interface {
	// DescribeTable verifies the table exists and is reachable.
	DescribeTable(ctx context.Context) error

	// PutItem writes one record with a conditional check so an
	// existing item of equal or newer schema version is left alone.
	PutItem(ctx context.Context, record *models.Record) error

	// BatchPut writes up to MaxBatchItems records and reports
	// per-item outcomes. The returned error is non-nil only when the
	// whole call failed.
	BatchPut(ctx context.Context, records []*models.Record) ([]ItemResult, error)

	// QueryPrefix streams items matching a secondary-index query.
	QueryPrefix(ctx context.Context, q Query, fn IterFunc) error
}
