package types

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation loses a race for a
	// candidate batch or a sequence slot. The caller may retry.
	ErrConflict = errors.New("conflict: concurrent modification detected")

	// ErrUnavailable is returned when the store is unreachable. Retryable
	// by the caller; the backend never retries internally.
	ErrUnavailable = errors.New("store unavailable")

	// ErrTimeout is returned when a store operation exceeds its deadline,
	// typically while waiting on a lock. Retryable by the caller.
	ErrTimeout = errors.New("operation timed out")
)
