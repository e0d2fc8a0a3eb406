package domain

import "errors"

// Sentinel errors shared by the store and the HTTP layer. Operations wrap
// these with context; callers classify with errors.Is.
var (
	// ErrInvalidArgument marks missing or malformed input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict marks a duplicate unique key on create.
	ErrConflict = errors.New("already exists")

	// ErrNotFound marks an operation that referenced a nonexistent question.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks an unreachable or failing storage backend.
	ErrUnavailable = errors.New("storage unavailable")
)
