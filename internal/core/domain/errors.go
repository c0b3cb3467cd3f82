package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent storage contract failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates no value is stored at the requested identifier.
	// Callers that hold defaults recover from this locally.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTypeMismatch indicates an increment or toggle was attempted
	// against a stored value of the wrong shape.
	ErrTypeMismatch = errors.New("stored value has wrong type")

	// ErrConfirmationRequired indicates a bulk destructive operation was
	// invoked without explicit confirmation. Rejected before any I/O.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrUnsupportedType indicates an unknown backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDriverClosed indicates an operation was issued after Close.
	ErrDriverClosed = errors.New("driver closed")
)

// BackendError wraps any non-success backend response: a non-200 HTTP
// status, a malformed body, or a transport failure. Detail carries the
// raw diagnostic text verbatim and is never interpreted further.
type BackendError struct {
	Op     string
	Detail string
	Err    error
}

// Error returns the operation, diagnostic text, and wrapped cause.
func (e *BackendError) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("backend %s: %s: %v", e.Op, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("backend %s: %s", e.Op, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("backend %s failed", e.Op)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *BackendError) Unwrap() error {
	return e.Err
}
