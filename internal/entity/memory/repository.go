package memory

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/nerrad567/entitykit/internal/entity"
	"github.com/nerrad567/entitykit/internal/instances"
)

// UnsupportedOperationError is the panic value of a domain-specific
// repository method called without a mock expectation.
type UnsupportedOperationError struct {
	Type     string
	Method   string
	ArgTypes []string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("no mock supplied for `%s.%s(%s)`", e.Type, e.Method, strings.Join(e.ArgTypes, ","))
}

// Repository is the in-memory test double of entity.Repository[T].
//
// The contract methods run against a private Store. Domain-specific methods
// of wrapping repository types go through Invoke, which answers from testify
// expectations set with On and panics when none was set.
type Repository[T entity.Entity] struct {
	mock.Mock
	*entity.StoreRepository[T]

	store *Store
	name  string
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	clock entity.Clock
}

// WithClock fixes the clock used for timestamps. Without it the Clock bound
// in the default registry is used, or the system clock.
func WithClock(c entity.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// NewRepository returns an empty repository for factory's shape.
func NewRepository[T entity.Entity](factory *entity.Factory[T], opts ...Option) *Repository[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = entity.ClockFrom(instances.Default())
	}

	store := NewStore()
	return &Repository[T]{
		StoreRepository: entity.NewStoreRepository(store, factory, o.clock),
		store:           store,
		name:            instances.TypeName(reflect.TypeFor[entity.Repository[T]]()),
	}
}

// Store returns the backing store.
func (r *Repository[T]) Store() *Store {
	return r.store
}

// Mocked reports whether an expectation set with On matches method called
// with args.
func (r *Repository[T]) Mocked(method string, args ...any) bool {
	for _, call := range r.ExpectedCalls {
		if call.Method != method || call.Repeatability < 0 {
			continue
		}
		if _, diffs := call.Arguments.Diff(args); diffs == 0 {
			return true
		}
	}
	return false
}

// Invoke answers a domain-specific method from the matching expectation.
// It panics with *UnsupportedOperationError when no expectation matches.
func (r *Repository[T]) Invoke(method string, args ...any) mock.Arguments {
	if !r.Mocked(method, args...) {
		panic(&UnsupportedOperationError{Type: r.name, Method: method, ArgTypes: argTypes(args)})
	}
	return r.MethodCalled(method, args...)
}

func argTypes(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			out[i] = "nil"
			continue
		}
		out[i] = fmt.Sprintf("%T", a)
	}
	return out
}

// Provide binds *Repository[T] and entity.Repository[T] in res. Both
// resolve to the same instance until res is reset.
func Provide[T entity.Entity](res *entity.Resolver, factory *entity.Factory[T], opts ...Option) {
	entity.Bind(res, func() *Repository[T] {
		return NewRepository(factory, opts...)
	})
	entity.Bind(res, func() entity.Repository[T] {
		base, _ := entity.Instance[*Repository[T]](res)
		return base
	})
}

// ProvideAs binds the domain repository type R, built by wrap around the
// shared *Repository[T]. Unsupported-operation panics name R.
func ProvideAs[R entity.AnyRepository, T entity.Entity](res *entity.Resolver, factory *entity.Factory[T], wrap func(*Repository[T]) R, opts ...Option) {
	Provide(res, factory, opts...)
	name := instances.TypeName(reflect.TypeFor[R]())
	entity.Bind(res, func() R {
		base, _ := entity.Instance[*Repository[T]](res)
		base.name = name
		return wrap(base)
	})
}
