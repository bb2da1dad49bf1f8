package entity

import (
	"reflect"
	"sync"

	"github.com/nerrad567/entitykit/internal/instances"
)

var typeAnyRepository = reflect.TypeFor[AnyRepository]()

// Resolver serves repository types to a registry. Backends bind a builder
// per repository type; the first resolution of a type builds it and later
// resolutions share that instance until Reset.
type Resolver struct {
	mu       sync.Mutex
	builders map[reflect.Type]func() any
	built    map[reflect.Type]any
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		builders: make(map[reflect.Type]func() any),
		built:    make(map[reflect.Type]any),
	}
}

// Bind sets the builder for t and drops any instance already built for it.
func (r *Resolver) Bind(t reflect.Type, build func() any) {
	r.mu.Lock()
	r.builders[t] = build
	delete(r.built, t)
	r.mu.Unlock()
}

// Bind sets the builder for R.
func Bind[R any](r *Resolver, build func() R) {
	r.Bind(reflect.TypeFor[R](), func() any { return build() })
}

// Instance returns the shared instance for t, building it on first use.
// Builders run outside the lock, so one builder may ask for another type.
func (r *Resolver) Instance(t reflect.Type) (any, bool) {
	r.mu.Lock()
	if v, ok := r.built[t]; ok {
		r.mu.Unlock()
		return v, true
	}
	build, ok := r.builders[t]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	v := build()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.built[t]; ok {
		return existing, true
	}
	r.built[t] = v
	return v, true
}

// Instance returns the shared instance bound for R.
func Instance[R any](r *Resolver) (R, bool) {
	v, ok := r.Instance(reflect.TypeFor[R]())
	if !ok {
		var zero R
		return zero, false
	}
	typed, ok := v.(R)
	return typed, ok
}

// Resolve is an instances.Resolver. It declines the bare family type and
// every type without a builder.
func (r *Resolver) Resolve(t reflect.Type) (instances.Factory, bool) {
	if t == typeAnyRepository {
		return nil, false
	}
	r.mu.Lock()
	_, ok := r.builders[t]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return func() any {
		v, _ := r.Instance(t)
		return v
	}, true
}

// Install registers the resolver for the AnyRepository family.
func (r *Resolver) Install(reg *instances.Registry) {
	instances.RegisterResolver[AnyRepository](reg, r.Resolve)
}

// Reset drops every built instance. Builders stay bound, so the next
// resolution starts from an empty repository.
func (r *Resolver) Reset() {
	r.mu.Lock()
	clear(r.built)
	r.mu.Unlock()
}

// Provide binds Repository[T] in res to a StoreRepository over store. A nil
// clock is resolved from the default registry when the repository is built.
func Provide[T Entity](res *Resolver, store Store, factory *Factory[T], clock Clock) {
	Bind(res, func() Repository[T] {
		c := clock
		if c == nil {
			c = ClockFrom(instances.Default())
		}
		return NewStoreRepository(store, factory, c)
	})
}
