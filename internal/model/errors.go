package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("model: validation failed")
	ErrNotFound      = errors.New("model: not found")
	ErrInvalidOffset = errors.New("model: invalid offset")
)

// ValidationError reports a missing or malformed field on create/update.
// It always matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func required(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
