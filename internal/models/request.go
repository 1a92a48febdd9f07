package models

import (
	"errors"
	"fmt"
)

// Run request validation errors.
var (
	ErrInvalidMode      = errors.New("mode must be one of: incremental, refresh, bulk")
	ErrWindowRequired   = errors.New("refresh mode requires a start and end date")
	ErrLookbackRequired = errors.New("incremental mode requires lookback days >= 1")
	ErrWindowInverted   = errors.New("window start must not be after window end")
	ErrNoFamilies       = errors.New("at least one family is required")
)

// RunMode selects how the run's date window is derived.
type RunMode string

// Supported run modes.
const (
	ModeIncremental RunMode = "incremental"
	ModeRefresh     RunMode = "refresh"
	ModeBulk        RunMode = "bulk"
)

// ParseRunMode converts a mode string into a RunMode.
func ParseRunMode(s string) (RunMode, error) {
	switch RunMode(s) {
	case ModeIncremental, ModeRefresh, ModeBulk:
		return RunMode(s), nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidMode, s)
	}
}

// RunRequest describes one invocation of the ingestion core.
// Window is required for refresh mode; LookbackDays for incremental.
type RunRequest struct {
	Mode         RunMode
	Window       Window
	LookbackDays int
	Families     []Family
}

// Validate checks the request's internal consistency.
func (r *RunRequest) Validate() error {
	switch r.Mode {
	case ModeIncremental:
		if r.LookbackDays < 1 {
			return ErrLookbackRequired
		}
	case ModeRefresh:
		if r.Window.From.IsZero() || r.Window.To.IsZero() {
			return ErrWindowRequired
		}

		if r.Window.From.After(r.Window.To) {
			return ErrWindowInverted
		}
	case ModeBulk:
		// Window derived from the configured minimum date.
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidMode, string(r.Mode))
	}

	if len(r.Families) == 0 {
		return ErrNoFamilies
	}

	return nil
}
