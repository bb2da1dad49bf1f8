package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultCleanupInterval = time.Minute

// Memory is an in-process Cache. Expired entries stop being visible at
// their deadline and are swept every cleanup interval.
type Memory struct {
	items *gocache.Cache
}

// NewMemory returns an empty cache sweeping expired entries every
// cleanupInterval (one minute when zero).
func NewMemory(cleanupInterval time.Duration) *Memory {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	return &Memory{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

// Connected implements Cache. Always true.
func (m *Memory) Connected() bool { return true }

// Delete implements Cache.
func (m *Memory) Delete(key string) {
	m.items.Delete(key)
}

// Set implements Cache.
func (m *Memory) Set(key string, value any, ttl time.Duration) error {
	s, err := encode(value)
	if err != nil {
		return err
	}
	m.items.Set(key, s, expiration(ttl))
	return nil
}

// Add implements Cache. An existing key is left untouched.
func (m *Memory) Add(key string, value any, ttl time.Duration) error {
	s, err := encode(value)
	if err != nil {
		return err
	}
	// go-cache reports an existing key as an error; Add is a no-op then.
	_ = m.items.Add(key, s, expiration(ttl))
	return nil
}

// Update implements Cache. A missing key stays missing.
func (m *Memory) Update(key string, value any, ttl time.Duration) error {
	s, err := encode(value)
	if err != nil {
		return err
	}
	_ = m.items.Replace(key, s, expiration(ttl))
	return nil
}

// Get implements Cache.
func (m *Memory) Get(key string) (string, bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Len returns the number of entries, expired ones included until swept.
func (m *Memory) Len() int {
	return m.items.ItemCount()
}

var _ Cache = (*Memory)(nil)
