package service

import "errors"

var (
	// ErrInvalidPayload marks a malformed or incomplete request body.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidSchedule marks a schedule batch that failed validation.
	// The batch is rejected atomically; nothing is applied.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrStoreUnavailable marks a schedule-store operation that failed or
	// timed out. Callers see a 5xx; push actions are dropped.
	ErrStoreUnavailable = errors.New("schedule store unavailable")
)
