package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation: failed")

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every failed check of one validation scope, in the
// order the checks ran.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return fmt.Sprintf("validation: %d error(s): %s", len(e.Errors), strings.Join(parts, "; "))
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Fields returns the names of the failed fields in order, once each.
func (e *ValidationError) Fields() []string {
	var out []string
	seen := make(map[string]bool)
	for _, fe := range e.Errors {
		if !seen[fe.Field] {
			seen[fe.Field] = true
			out = append(out, fe.Field)
		}
	}
	return out
}

// ScopeError is the panic value of a validation API used outside the scope
// it needs, or on a value it cannot check.
type ScopeError struct {
	Op     string
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Op, e.Reason)
}

func misuse(op, reason string) *ScopeError {
	return &ScopeError{Op: op, Reason: reason}
}
