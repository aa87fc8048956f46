package domain

import (
	"errors"
)

// Error taxonomy shared across the intake pipeline. Handlers map these onto
// HTTP statuses; usecases wrap them with context via fmt.Errorf("%w").
var (
	// ErrInvalidInput marks malformed, user-fixable requests (400).
	ErrInvalidInput = errors.New("invalid input")

	// ErrHospitalNotFound marks an unknown target hospital (404).
	ErrHospitalNotFound = errors.New("hospital not found")

	// ErrReceiptNotFound marks an unknown receipt (404).
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrForbidden marks a capability-check failure (403).
	ErrForbidden = errors.New("access denied")

	// ErrQueueBusy marks bounded-wait lock acquisition failure on a
	// hospital partition. Transient: callers retry with backoff before
	// surfacing it (503).
	ErrQueueBusy = errors.New("queue partition busy")

	// ErrInvalidTransition marks a status change that would move a
	// receipt backwards or out of a terminal state (400).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrClassifierUnavailable marks repeated inference failure. The
	// upload flow degrades to the heuristic tier instead of failing.
	ErrClassifierUnavailable = errors.New("severity classifier unavailable")
)
