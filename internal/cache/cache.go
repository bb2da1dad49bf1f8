// Package cache is the key/value cache capability.
//
// Values are kept as strings: a string is stored as is and anything else is
// JSON encoded on the way in. GetAs decodes a stored value back into a Go
// type. The capability is resolved like any other, so tests and
// deployments swap the implementation through the registry:
//
//	c := cache.From(instances.Default())
//	c.Set("session:42", session, time.Hour)
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/nerrad567/entitykit/internal/instances"
)

// NoTTL keeps an entry until it is deleted or overwritten.
const NoTTL time.Duration = 0

// ErrEncode is returned when a value cannot be JSON encoded.
var ErrEncode = errors.New("cache: value not encodable")

// Cache stores string values by key with an optional time to live.
type Cache interface {
	// Connected reports whether the backend is reachable.
	Connected() bool

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string)

	// Set stores value under key, replacing any previous entry.
	Set(key string, value any, ttl time.Duration) error

	// Add stores value only if key is absent.
	Add(key string, value any, ttl time.Duration) error

	// Update stores value only if key is present.
	Update(key string, value any, ttl time.Duration) error

	// Get returns the stored string for key.
	Get(key string) (string, bool)
}

// GetAs decodes the value stored under key into T. A string T receives the
// stored text unchanged.
func GetAs[T any](c Cache, key string) (T, bool, error) {
	var out T
	raw, ok := c.Get(key)
	if !ok {
		return out, false, nil
	}
	if s, isString := any(&out).(*string); isString {
		*s = raw
		return out, true, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, true, fmt.Errorf("decoding cache entry %q: %w", key, err)
	}
	return out, true, nil
}

// From returns the Cache registered in reg.
func From(reg *instances.Registry) (Cache, error) {
	return instances.Get[Cache](reg)
}

// encode renders value in its stored form.
func encode(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return string(data), nil
}
