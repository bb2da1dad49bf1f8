package entity

import (
	"errors"
	"fmt"
)

// Domain-specific errors for entity operations.
var (
	// ErrNotFound is returned when a repository has no row with the requested id.
	ErrNotFound = errors.New("entity: not found")

	// ErrShapeViolation is matched by every ShapeViolationError.
	ErrShapeViolation = errors.New("entity: shape violation")

	// ErrUnknownField is matched when a write names a field the shape does not declare.
	ErrUnknownField = errors.New("entity: unknown field")

	// ErrReadOnly is matched when a declared setter targets a read-only field.
	ErrReadOnly = errors.New("entity: read-only field")
)

// ShapeViolationError reports a write that does not fit the declared shape:
// an unknown field, nil into a non-null field, or a value of the wrong type.
// It signals a mismatch between caller and entity definition and is never
// retried.
type ShapeViolationError struct {
	Shape  string
	Field  string
	Reason string

	cause error
}

func (e *ShapeViolationError) Error() string {
	return fmt.Sprintf("entity: %s.%s: %s", e.Shape, e.Field, e.Reason)
}

// Is matches ErrShapeViolation and, where relevant, ErrUnknownField or ErrReadOnly.
func (e *ShapeViolationError) Is(target error) bool {
	return target == ErrShapeViolation || (e.cause != nil && target == e.cause)
}

func violation(shape *Shape, field, reason string) *ShapeViolationError {
	return &ShapeViolationError{Shape: shape.Name(), Field: field, Reason: reason}
}

func unknownField(shape *Shape, field string) *ShapeViolationError {
	return &ShapeViolationError{Shape: shape.Name(), Field: field, Reason: "no such field", cause: ErrUnknownField}
}

func readOnlyField(shape *Shape, field string) *ShapeViolationError {
	return &ShapeViolationError{Shape: shape.Name(), Field: field, Reason: "field is read-only", cause: ErrReadOnly}
}
