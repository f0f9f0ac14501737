// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrReferenceNotFound indicates a reference was not found by the given identifier.
	ErrReferenceNotFound = errors.New("reference not found")

	// ErrReferenceAlreadyExists indicates a reference with the same code already exists.
	ErrReferenceAlreadyExists = errors.New("reference already exists")

	// ErrRecordNotFound indicates no traceability record matched the lookup.
	ErrRecordNotFound = errors.New("traceability record not found")

	// ErrUserNotFound indicates a user was not found by the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same code or email already exists.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// ReferenceError wraps reference-related errors with additional context.
type ReferenceError struct {
	Op          string // Operation being performed (e.g., "ReferenceByID", "UpdateReference")
	ReferenceID int64  // Reference ID if applicable
	Code        string // Reference code if applicable
	Err         error  // Underlying error
}

func (e *ReferenceError) Error() string {
	target := fmt.Sprintf("%d", e.ReferenceID)
	if e.Code != "" {
		target = fmt.Sprintf("code %s", e.Code)
	}

	return fmt.Sprintf("%s operation failed for reference %s: %v", e.Op, target, e.Err)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for reference errors.
func (e *ReferenceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewReferenceError creates a new reference error with context.
func NewReferenceError(op string, referenceID int64, err error) *ReferenceError {
	return &ReferenceError{
		Op:          op,
		ReferenceID: referenceID,
		Err:         err,
	}
}

// NewReferenceCodeError creates a new reference error for lookups by code.
func NewReferenceCodeError(op, code string, err error) *ReferenceError {
	return &ReferenceError{
		Op:   op,
		Code: code,
		Err:  err,
	}
}

// RecordError wraps traceability record errors with additional context.
type RecordError struct {
	Op          string // Operation being performed
	ReferenceID int64  // Owning reference ID
	PhaseSlug   string // Phase slug
	Err         error  // Underlying error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for phase %s of reference %d: %v", e.Op, e.PhaseSlug, e.ReferenceID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// UserError wraps user-related errors with additional context.
type UserError struct {
	Op     string // Operation being performed
	UserID int64  // User ID
	Err    error  // Underlying error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s operation failed for user %d: %v", e.Op, e.UserID, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func (e *UserError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsReferenceNotFound checks if an error indicates a reference was not found.
func IsReferenceNotFound(err error) bool {
	return errors.Is(err, ErrReferenceNotFound)
}

// IsRecordNotFound checks if an error indicates a traceability record was not found.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsUserNotFound checks if an error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsAlreadyExists checks if an error indicates a uniqueness conflict.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrReferenceAlreadyExists) || errors.Is(err, ErrUserAlreadyExists)
}
