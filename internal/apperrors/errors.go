// Package apperrors defines the error kinds surfaced by the reconciliation
// core. Callers classify failures with errors.Is.
package apperrors

import "errors"

var (
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTarget reports a match target that does not exist, belongs
	// to another company, or has no outstanding balance left for the
	// transaction amount.
	ErrInvalidTarget = errors.New("invalid match target")

	// ErrAllocationMismatch reports an allocation set whose sum differs
	// from the payment amount, or an allocation exceeding its target's
	// outstanding balance. Nothing is written when it is returned.
	ErrAllocationMismatch = errors.New("allocation mismatch")

	// ErrConcurrentModification reports a lost-update race detected while
	// applying a balance change. The operation can be retried.
	ErrConcurrentModification = errors.New("concurrent modification")
)
