package instances

import (
	"errors"
	"fmt"
	"reflect"
)

// Domain-specific errors for capability resolution.
var (
	// ErrNoInstance is matched by every NoInstanceError.
	ErrNoInstance = errors.New("instances: no instance bound")

	// ErrTypeMismatch is returned when a factory builds a value that does not
	// satisfy the requested capability.
	ErrTypeMismatch = errors.New("instances: factory returned wrong type")

	// ErrUnknownImplementation is returned when a config binding names an
	// implementation that was never provided.
	ErrUnknownImplementation = errors.New("instances: unknown implementation")
)

// NoInstanceError reports that nothing could be resolved for Type.
type NoInstanceError struct {
	Type reflect.Type

	// Hint is set when the lookup failed inside a test binary.
	Hint string
}

func (e *NoInstanceError) Error() string {
	msg := fmt.Sprintf("instances: no instance bound for %s", TypeName(e.Type))
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Is makes errors.Is(err, ErrNoInstance) true.
func (e *NoInstanceError) Is(target error) bool {
	return target == ErrNoInstance
}
