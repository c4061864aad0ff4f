package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
)

// FieldError is a single failed constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every failed constraint of one record or request.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Merge appends the fields of another validation failure; other errors are ignored.
func (e *ValidationError) Merge(err error) {
	var other *ValidationError
	if errors.As(err, &other) {
		e.Fields = append(e.Fields, other.Fields...)
	}
}

// OrNil returns nil when nothing was added, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// StorageError wraps a persistence failure. Retryable marks transient causes
// (lost connection, lock timeout, deadlock); retrying is left to the caller.
type StorageError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *StorageError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}
	return fmt.Sprintf("storage %s (%s): %v", e.Op, kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a transient StorageError.
func IsRetryable(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Retryable
}
