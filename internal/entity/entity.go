package entity

import (
	"time"

	"github.com/google/uuid"
)

// Entity is any value backed by a Record.
type Entity interface {
	Record() *Record
}

// Base is embedded by entity types to satisfy Entity and expose the base
// fields.
//
//	type Something struct{ entity.Base }
//
//	var Somethings = entity.NewFactory(somethingShape, func(r *entity.Record) *Something {
//		return &Something{Base: entity.NewBase(r)}
//	})
type Base struct {
	rec *Record
}

// NewBase wraps r.
func NewBase(r *Record) Base {
	return Base{rec: r}
}

// Record returns the backing record.
func (b Base) Record() *Record { return b.rec }

// ID returns the entity identifier.
func (b Base) ID() uuid.UUID { return b.rec.ID() }

// CreatedAt returns when the entity was first persisted.
func (b Base) CreatedAt() time.Time { return b.rec.CreatedAt() }

// UpdatedAt returns when the entity was last persisted.
func (b Base) UpdatedAt() time.Time { return b.rec.UpdatedAt() }

// Equal reports whether a and b share a shape and hold equal fields.
// Computed values never take part.
func Equal(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Record().Equal(b.Record())
}

// Hash returns a hash of e consistent with Equal.
func Hash(e Entity) uint64 {
	return e.Record().Hash()
}

// IDs returns the identifiers of list in order.
func IDs[T Entity](list []T) []uuid.UUID {
	ids := make([]uuid.UUID, len(list))
	for i, e := range list {
		ids[i] = e.Record().ID()
	}
	return ids
}

// LazyValue returns the cached value called name, running loader and caching
// its result when nothing is cached yet.
func LazyValue[T any](e Entity, name string, loader func() T) T {
	rec := e.Record()
	if v, ok := rec.lazyValue(name); ok {
		typed, _ := v.(T)
		return typed
	}
	v := loader()
	rec.setLazy(name, v)
	return v
}

// IsLazyValueLoaded reports whether a value called name is cached on e.
func IsLazyValueLoaded(e Entity, name string) bool {
	_, ok := e.Record().lazyValue(name)
	return ok
}

// IfLazyValueLoaded returns the cached value called name without loading it.
func IfLazyValueLoaded[T any](e Entity, name string) (T, bool) {
	v, ok := e.Record().lazyValue(name)
	if !ok {
		var zero T
		return zero, false
	}
	typed, _ := v.(T)
	return typed, true
}

// SetLazyValue caches v under name, replacing any cached value.
func SetLazyValue(e Entity, name string, v any) {
	e.Record().setLazy(name, v)
}

// ClearLazyValue drops the cached value called name. Stored fields are never
// touched.
func ClearLazyValue(e Entity, name string) {
	e.Record().clearLazy(name)
}

// ClearLazyValues drops every cached value of e.
func ClearLazyValues(e Entity) {
	e.Record().clearAllLazy()
}

// ClearLazyValueAll drops the cached value called name from every element.
func ClearLazyValueAll[T Entity](list []T, name string) []T {
	for _, e := range list {
		ClearLazyValue(e, name)
	}
	return list
}

// ClearLazyValuesAll drops every cached value from every element.
func ClearLazyValuesAll[T Entity](list []T) []T {
	for _, e := range list {
		ClearLazyValues(e)
	}
	return list
}

// PreloadLazyValue loads the lazy value called name for every element of
// list that does not have it cached yet, with a single lookup.
//
// lookup receives the elements still to load and returns the related items;
// mapper picks the value of one element from those items. Elements that
// already hold a cached value are left alone, so a preload never overwrites
// what an earlier read or preload produced.
func PreloadLazyValue[T Entity, I, V any](list []T, name string, lookup func([]T) []I, mapper func(T, []I) V) []T {
	pending := make([]T, 0, len(list))
	for _, e := range list {
		if !IsLazyValueLoaded(e, name) {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		return list
	}

	items := lookup(pending)
	for _, e := range pending {
		e.Record().setLazy(name, mapper(e, items))
	}
	return list
}

// PreloadLazyList is PreloadLazyValue for associations holding a list of
// the looked-up items.
func PreloadLazyList[T Entity, I any](list []T, name string, lookup func([]T) []I, mapper func(T, []I) []I) []T {
	return PreloadLazyValue(list, name, lookup, mapper)
}
