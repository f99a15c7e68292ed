package endpoint

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates the caller supplied invalid input.
	// Mapped to HTTP 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates no endpoint exists for the (owner, endpoint) key.
	// Mapped to HTTP 404 Not Found.
	ErrNotFound = errors.New("endpoint not found")
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
