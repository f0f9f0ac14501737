// Package services provides the action processor and the read side of phase traceability.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/phasetrack/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotesRequired  = errors.New("notes are required to return a phase")
	ErrInvalidAction  = errors.New("invalid action")

	// Not Found Errors (404 Not Found).
	ErrReferenceNotFound = persistence.ErrReferenceNotFound
	ErrUserNotFound      = persistence.ErrUserNotFound
	ErrPhaseNotFound     = errors.New("phase not found")

	// Business Logic Conflicts (409 Conflict).
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrNoOpenPhase       = errors.New("no open record for phase")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNotesRequired) ||
		errors.Is(err, ErrInvalidAction)
}

// IsNotFoundError checks if an error means the addressed entity does not exist (HTTP 404).
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrReferenceNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrPhaseNotFound)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNoOpenPhase) ||
		persistence.IsAlreadyExists(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func newTransitionError(op, message string) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "invalid_transition",
		Message: message,
		Err:     ErrInvalidTransition,
	}
}

func newNotFoundError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
