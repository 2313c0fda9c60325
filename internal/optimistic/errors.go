package optimistic

import (
	"errors"
	"fmt"
)

// Failure classes a confirmation can end with. Confirmers should wrap one of
// the first three; anything unclassified is treated as a network failure.
var (
	ErrNetworkFailure = errors.New("network failure")
	ErrRejected       = errors.New("rejected by server")
	ErrNotFound       = errors.New("task not found")

	// ErrPermissionDenied marks a rejection caused by missing capabilities.
	// Confirmers wrap it together with ErrRejected.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCreatePending is the cause when an update or delete targets a task
	// whose create has not been confirmed yet. It comes with ErrRejected.
	ErrCreatePending = errors.New("create not yet confirmed")

	// ErrStaleConfirmation is never returned to callers. It marks a late
	// confirmation that was dropped because a newer mutation superseded it.
	ErrStaleConfirmation = errors.New("stale confirmation")
)

// Classify maps err onto ErrNotFound, ErrRejected or ErrNetworkFailure.
// It returns nil for a nil error.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrRejected), errors.Is(err, ErrPermissionDenied):
		return ErrRejected
	default:
		return ErrNetworkFailure
	}
}

// Error is surfaced by a ticket whose confirmation failed. It matches its
// failure class and the underlying cause with errors.Is.
type Error struct {
	Kind   Kind
	TaskID string
	Class  error
	Err    error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, e.Class) {
		return fmt.Sprintf("%s task %s: %v", e.Kind, e.TaskID, e.Err)
	}
	return fmt.Sprintf("%s task %s: %v: %v", e.Kind, e.TaskID, e.Class, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Class, e.Err}
}
