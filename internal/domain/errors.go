// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState is returned when a lifecycle transition is attempted
	// from a status that does not permit it (for example accepting a task
	// that is not taken, or claiming a task that is already terminal).
	ErrInvalidState = errors.New("invalid task state for this transition")

	// ErrNotOwner is returned when an executor attempts a transition on a
	// task that is assigned to somebody else.
	ErrNotOwner = errors.New("actor is not the task's assignee")

	// ErrQuotaExceeded is returned when an executor already holds the
	// configured maximum number of taken tasks.
	ErrQuotaExceeded = errors.New("executor active task quota exceeded")

	// ErrAlreadyTaken is returned when a claim loses the race: the task
	// left "new" status between the caller's read and the claim's write.
	// This is an expected first-class outcome, not a failure.
	ErrAlreadyTaken = errors.New("task already claimed by another executor")

	// ErrInvalidStatus is returned when a task status value is not one of
	// the known statuses.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidPublishMode is returned when a publish mode is not "open"
	// or "direct".
	ErrInvalidPublishMode = errors.New("invalid publish mode")
)

// ValidationError provides field-level context for a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
