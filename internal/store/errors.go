package store

import "errors"

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned by CompareAndSwapLink when the guarded field
	// no longer holds the expected value (a concurrent writer won the race).
	ErrConflict = errors.New("link record changed concurrently")

	// ErrUnavailable wraps I/O failures talking to the backing store. It must
	// surface to the caller; it is never downgraded to a false success.
	ErrUnavailable = errors.New("store unavailable")
)
