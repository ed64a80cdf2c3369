// Package domain holds the error vocabulary shared by the numeric core and its callers.
package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel wrapped by every ValidationError.
// Callers test for it with errors.Is to separate bad requests from faults.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError describes a rejected input field. Cause, when set, is a
// package sentinel callers can match with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidInput, e.Cause}
	}
	return []error{ErrInvalidInput}
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InvalidBecause builds a ValidationError for field that also matches cause.
func InvalidBecause(field string, cause error) error {
	return &ValidationError{Field: field, Reason: cause.Error(), Cause: cause}
}

// IsValidation reports whether err stems from rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
