// Package apperr defines the typed error taxonomy shared by the engine's
// services. Handlers map these onto HTTP statuses; callers branch with
// errors.As / errors.Is rather than string matching.
package apperr

import (
	"errors"
	"fmt"
)

// ConfigurationError reports malformed manager configuration, such as a
// criterion whose operator or expected value does not fit the referenced
// question's response type. Surfaced at save time, never dropped.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// NewConfiguration builds a ConfigurationError from a format string.
func NewConfiguration(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports invalid input data rejected before persistence,
// such as overlapping availability blocks or a missing required field.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// NewValidation builds a ValidationError from a format string.
func NewValidation(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StateError reports a workflow transition attempted from a status where it
// is not defined. CurrentStatus is echoed back to the caller.
type StateError struct {
	CurrentStatus string
	Attempted     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid transition %q from status %q", e.Attempted, e.CurrentStatus)
}

// Token errors, surfaced verbatim to the public booking page so the tenant
// sees an actionable message.
var (
	ErrTokenNotFound        = errors.New("booking token not found")
	ErrTokenExpired         = errors.New("booking token expired")
	ErrTokenAlreadyConsumed = errors.New("booking token already used")
	ErrSlotNoLongerOpen     = errors.New("slot no longer available")
)

// ErrConcurrencyConflict reports an overlap detected at confirmation time
// despite prior availability. The booking service retries once by
// re-offering fresh slots, never against the same slot.
var ErrConcurrencyConflict = errors.New("concurrent booking conflict")
