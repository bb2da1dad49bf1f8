package entity

import (
	"time"

	"github.com/nerrad567/entitykit/internal/instances"
)

// Clock supplies the time repositories stamp onto records.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// ClockFrom returns the Clock bound in reg, or SystemClock when none is.
func ClockFrom(reg *instances.Registry) Clock {
	if !instances.IsRegistered[Clock](reg) {
		return SystemClock{}
	}
	c, err := instances.Get[Clock](reg)
	if err != nil {
		return SystemClock{}
	}
	return c
}
