package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a payment or plan does not exist or is not
	// visible to the acting user.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the acting principal lacks the privilege
	// for the attempted operation.
	ErrForbidden = errors.New("forbidden")

	// ErrWindowExpired is returned when a receipt upload arrives after the
	// transfer window lapsed. The record may still read pending until the
	// sweep passes, but the claim can no longer be resurrected.
	ErrWindowExpired = errors.New("transfer window expired")

	// ErrStorageFailure is returned when the evidence storage backend is
	// unavailable. Callers may retry with backoff; the expiry sweep is the
	// backstop for records that never get their receipt stored.
	ErrStorageFailure = errors.New("evidence storage unavailable")
)

// ValidationError carries a caller-facing description of malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InvalidTransitionError is returned when a state-machine guard failed: the
// record is not in the status the event requires. The caller should re-fetch
// current state rather than retry blindly.
type InvalidTransitionError struct {
	Event  string
	Status string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a payment in status %q", e.Event, e.Status)
}

// DuplicateActiveClaimError is returned when a user already holds a
// non-terminal payment for the plan. ExistingID lets the client resume the
// open claim instead of retrying creation.
type DuplicateActiveClaimError struct {
	ExistingID string
}

func (e *DuplicateActiveClaimError) Error() string {
	return fmt.Sprintf("an open payment for this plan already exists (id %s)", e.ExistingID)
}
