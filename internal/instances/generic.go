package instances

import "reflect"

// Register binds an exact factory for T.
//
// Example:
//
//	instances.Register[entity.Clock](reg, func() entity.Clock { return entity.SystemClock{} })
func Register[T any](r *Registry, factory func() T) {
	r.Register(reflect.TypeFor[T](), func() any { return factory() })
}

// RegisterResolver binds resolver for every type in the family F.
func RegisterResolver[F any](r *Registry, resolver Resolver) {
	r.RegisterResolver(reflect.TypeFor[F](), resolver)
}

// IsRegistered reports whether T can currently be resolved.
func IsRegistered[T any](r *Registry) bool {
	return r.IsRegistered(reflect.TypeFor[T]())
}

// Get resolves T eagerly.
func Get[T any](r *Registry) (T, error) {
	return Lookup[T](r).Get()
}

// MustGet resolves T eagerly and panics when it cannot.
func MustGet[T any](r *Registry) T {
	return Lookup[T](r).MustGet()
}

// Lookup returns an unbound deferred handle for T. It never fails and never
// resolves anything until the handle is used.
func Lookup[T any](r *Registry) *Deferred[T] {
	return &Deferred[T]{handle: r.Handle(reflect.TypeFor[T]())}
}

// Resolve returns a handle for T that is already bound when T can be
// resolved now, and otherwise stays deferred until first use.
func Resolve[T any](r *Registry) *Deferred[T] {
	d := Lookup[T](r)
	_, _ = d.Get() //nolint:errcheck // Unbound handles retry on use
	return d
}
