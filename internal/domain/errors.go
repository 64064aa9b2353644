package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Identity errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUserNotFound    = errors.New("user not found")

	// Task errors
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")

	// Ledger state errors
	ErrAlreadyCompleted = errors.New("task already completed")
	ErrNoProgress       = errors.New("task has no progress to undo")
	ErrInvalidCount     = errors.New("count must be positive")
	ErrInvalidState     = errors.New("invalid task state")
)
