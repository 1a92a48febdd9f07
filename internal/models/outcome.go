package models

// Outcome classifies the result of one upstream call. The traversal
// engine emits these tags; the governor consumes them.
type Outcome string

// Outcome tags.
const (
	OutcomeOK          Outcome = "ok"
	OutcomeTransient   Outcome = "transient"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomePermanent   Outcome = "permanent"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeCancelled   Outcome = "cancelled"
)

// Retryable reports whether a call with this outcome may be retried.
func (o Outcome) Retryable() bool {
	switch o {
	case OutcomeTransient, OutcomeRateLimited, OutcomeTimeout:
		return true
	default:
		return false
	}
}
