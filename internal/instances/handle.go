package instances

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Handle is a deferred reference to a capability.
//
// A handle starts unbound. While unbound, every Get re-attempts resolution
// through its registry; the first successful result is published once and
// every later Get returns it without touching the registry again. Racing
// resolvers may each build a delegate, but only the first one published is
// ever returned.
type Handle struct {
	registry *Registry
	typ      reflect.Type
	bound    atomic.Pointer[delegate]
}

type delegate struct {
	value any
}

// Type returns the capability type the handle stands for.
func (h *Handle) Type() reflect.Type {
	return h.typ
}

// Bound reports whether a delegate has been resolved and cached.
func (h *Handle) Bound() bool {
	return h.bound.Load() != nil
}

// Get returns the delegate, resolving it if the handle is still unbound.
func (h *Handle) Get() (any, error) {
	if d := h.bound.Load(); d != nil {
		return d.value, nil
	}

	v, err := h.registry.Instance(h.typ)
	if err != nil {
		return nil, err
	}

	h.bound.CompareAndSwap(nil, &delegate{value: v})
	return h.bound.Load().value, nil
}

// Deferred is the typed form of Handle.
type Deferred[T any] struct {
	handle *Handle
}

// Get returns the delegate, resolving it if needed.
func (d *Deferred[T]) Get() (T, error) {
	var zero T

	v, err := d.handle.Get()
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: want %s, got %T", ErrTypeMismatch, TypeName(d.handle.typ), v)
	}
	return typed, nil
}

// MustGet is Get for call sites with no error return; it panics with the
// resolution error.
func (d *Deferred[T]) MustGet() T {
	v, err := d.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Bound reports whether the delegate has been resolved.
func (d *Deferred[T]) Bound() bool {
	return d.handle.Bound()
}
