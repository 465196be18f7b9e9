// Package apperr defines the error kinds shared by the ledger, the swap
// engine and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: bad time ranges, empty titles, self-swaps.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an entity that does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks an operation against an entity whose status forbids it.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict marks a violation of slot mutual exclusion or an edit of a locked slot.
	ErrConflict = errors.New("conflict")
	// ErrConsistency marks a broken storage invariant, e.g. a slot vanishing mid-negotiation.
	ErrConsistency = errors.New("consistency violation")
	// ErrUnauthorized marks missing or bad credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a kind and a message that is safe to show to the caller.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.kind.Error() + ": " + e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Message is the caller-facing part of the error.
func (e *Error) Message() string { return e.msg }

func newError(kind error, format string, args []any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validation returns an ErrValidation error.
func Validation(format string, args ...any) error { return newError(ErrValidation, format, args) }

// NotFound returns an ErrNotFound error.
func NotFound(format string, args ...any) error { return newError(ErrNotFound, format, args) }

// InvalidState returns an ErrInvalidState error.
func InvalidState(format string, args ...any) error {
	return newError(ErrInvalidState, format, args)
}

// Conflict returns an ErrConflict error.
func Conflict(format string, args ...any) error { return newError(ErrConflict, format, args) }

// Consistency returns an ErrConsistency error.
func Consistency(format string, args ...any) error {
	return newError(ErrConsistency, format, args)
}

// Unauthorized returns an ErrUnauthorized error.
func Unauthorized(format string, args ...any) error {
	return newError(ErrUnauthorized, format, args)
}

// Kind returns a short machine-readable name for the error kind of err.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrConsistency):
		return "consistency"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}

// Message returns the caller-facing message of err, or "" when err carries none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return ""
}
