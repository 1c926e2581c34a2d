// Package errs defines the error taxonomy shared by services and controllers.
//
// Each category has a sentinel error. Richer error types carry details about
// the failing field or object and unwrap to their sentinel, so callers can use
// errors.Is to classify any error coming out of the service layer.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationRequired is returned when the caller has no identity.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrForbidden is returned when the caller is known but the policy denies the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidationFailed is returned for malformed input. No partial writes happen.
	ErrValidationFailed = errors.New("validation failed")
	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("conflict")
	// ErrNotificationDeliveryFailed is non-fatal: it is logged and never aborts an update.
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
	// ErrSubscriptionPending is returned when the chat session could not be resolved yet.
	ErrSubscriptionPending = errors.New("subscription pending")
	// ErrUnavailable is returned when an optional integration is not configured.
	ErrUnavailable = errors.New("unavailable")
)

// ValidationError describes an invalid field value.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidationFailed, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ObjectNotFoundError describes a missing record.
type ObjectNotFoundError struct {
	Kind string
	ID   any
}

// NewObjectNotFoundError creates an ObjectNotFoundError.
func NewObjectNotFoundError(kind string, id any) *ObjectNotFoundError {
	return &ObjectNotFoundError{Kind: kind, ID: id}
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Kind, e.ID, ErrNotFound)
}

func (e *ObjectNotFoundError) Unwrap() error {
	return ErrNotFound
}

// Forbidden wraps ErrForbidden with a reason.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// Conflict wraps ErrConflict with a reason.
func Conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}
