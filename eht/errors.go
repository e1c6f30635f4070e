package eht

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateInput: too few usable samples or a covariance that is not
	// positive definite.
	ErrDegenerateInput = errors.New("eht: degenerate input")
	// ErrConvergence: a descent attempt hit its step cap.
	ErrConvergence = errors.New("eht: descent did not converge")
	// ErrSearchExhausted: every column ordering branch was a dead end.
	ErrSearchExhausted = errors.New("eht: column search exhausted")
	// ErrNotInvertible: random completion of B or C never became invertible.
	ErrNotInvertible = errors.New("eht: completion not invertible within trial cap")
	// ErrBoundViolation: a computed z left the coefficient bound.
	ErrBoundViolation = errors.New("eht: bound violation")
	// ErrAcceptanceExhausted: no forgery met the acceptance threshold.
	ErrAcceptanceExhausted = errors.New("eht: acceptance budget exhausted")
	// ErrMalformed: an encoded signature or key does not parse.
	ErrMalformed = errors.New("eht: malformed input")
)

// ContractError reports an algebraic invariant that failed to hold.
type ContractError struct {
	Stage  string
	Detail string
	Index  int
}

func (e *ContractError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("eht: %s: %s (index %d)", e.Stage, e.Detail, e.Index)
	}
	return fmt.Sprintf("eht: %s: %s", e.Stage, e.Detail)
}

// Contract builds a ContractError without an index.
func Contract(stage, detail string) *ContractError {
	return &ContractError{Stage: stage, Detail: detail, Index: -1}
}

// IsRetryable reports failures a caller may retry with fresh randomness.
// Contract errors, bound violations and search exhaustion are not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConvergence) ||
		errors.Is(err, ErrNotInvertible) ||
		errors.Is(err, ErrAcceptanceExhausted)
}
