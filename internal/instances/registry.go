package instances

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
)

// configPrefix is the configuration key prefix for implementation bindings.
// The full key is instances.<TypeName>, for example instances.entity.Clock.
const configPrefix = "instances."

// Factory builds one instance of a capability.
type Factory func() any

// Resolver builds factories for the members of a capability family.
// It reports false when it cannot serve t, letting later resolvers try.
type Resolver func(t reflect.Type) (Factory, bool)

// Source is the configuration lookup used for implementation bindings.
// *config.Config satisfies it.
type Source interface {
	Value(key string) (string, bool)
}

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

type resolverBinding struct {
	family  reflect.Type
	resolve Resolver
}

// Registry maps capability types to the code that builds them.
//
// Resolution order for a type is always:
//  1. the exact factory registered for the type
//  2. family resolvers, in the order they were registered; the first one
//     whose family matches and which returns a factory wins
//  3. a configuration binding instances.<TypeName> naming a provided
//     implementation
//
// When all three fail, eager lookups return a *NoInstanceError and deferred
// handles stay unbound until a later attempt succeeds.
//
// All public methods are thread-safe. Factories are invoked outside the lock,
// so a factory may itself resolve other capabilities.
type Registry struct {
	mu        sync.RWMutex
	factories map[reflect.Type]Factory
	resolvers []resolverBinding
	catalog   map[string]Factory
	source    Source

	// matches memoizes, per type, the indexes of resolvers whose family
	// matches it. Cleared whenever a resolver is registered.
	matches map[reflect.Type][]int

	logger  Logger
	metrics *Metrics
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[reflect.Type]Factory),
		catalog:   make(map[string]Factory),
		matches:   make(map[reflect.Type][]int),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// SetMetrics attaches resolution metrics. A nil value disables them.
func (r *Registry) SetMetrics(m *Metrics) {
	r.mu.Lock()
	r.metrics = m
	r.mu.Unlock()
}

// SetSource binds the configuration used for instances.<TypeName> keys.
func (r *Registry) SetSource(src Source) {
	r.mu.Lock()
	r.source = src
	r.mu.Unlock()
}

// Register binds an exact factory for t, replacing any earlier exact binding.
// Resolver bindings are not affected.
func (r *Registry) Register(t reflect.Type, factory Factory) {
	r.mu.Lock()
	r.factories[t] = factory
	logger := r.logger
	r.mu.Unlock()

	logger.Debug("factory registered", "type", TypeName(t))
}

// RegisterResolver binds resolver for every type assignable to family.
//
// Resolvers are tried in registration order, so when two families overlap
// the one registered first is asked first.
func (r *Registry) RegisterResolver(family reflect.Type, resolver Resolver) {
	r.mu.Lock()
	r.resolvers = append(r.resolvers, resolverBinding{family: family, resolve: resolver})
	clear(r.matches)
	logger := r.logger
	r.mu.Unlock()

	logger.Debug("resolver registered", "family", TypeName(family))
}

// Provide adds a named implementation that configuration can select with
// instances.<TypeName>: <name>.
func (r *Registry) Provide(name string, factory Factory) {
	r.mu.Lock()
	r.catalog[name] = factory
	r.mu.Unlock()
}

// IsRegistered reports whether t has an exact factory, a resolver whose
// family matches it, or a configuration binding to a provided implementation.
func (r *Registry) IsRegistered(t reflect.Type) bool {
	r.mu.RLock()
	_, exact := r.factories[t]
	r.mu.RUnlock()
	if exact {
		return true
	}

	if len(r.matching(t)) > 0 {
		return true
	}

	_, ok, _ := r.configured(t)
	return ok
}

// Instance resolves t eagerly.
//
// Returns:
//   - any: A value assignable to t
//   - error: *NoInstanceError when nothing is bound, ErrTypeMismatch when a
//     factory builds the wrong type, ErrUnknownImplementation when
//     configuration names an implementation that was never provided
func (r *Registry) Instance(t reflect.Type) (any, error) {
	r.mu.RLock()
	exact, hasExact := r.factories[t]
	resolvers := r.resolvers
	logger, metrics := r.logger, r.metrics
	r.mu.RUnlock()

	if hasExact {
		metrics.observe(sourceFactory)
		return checked(t, exact())
	}

	for _, idx := range r.matching(t) {
		if idx >= len(resolvers) {
			continue
		}
		if factory, ok := resolvers[idx].resolve(t); ok {
			metrics.observe(sourceResolver)
			logger.Debug("resolved through family", "type", TypeName(t), "family", TypeName(resolvers[idx].family))
			return checked(t, factory())
		}
	}

	factory, ok, err := r.configured(t)
	if err != nil {
		logger.Warn("configured implementation not provided", "type", TypeName(t), "error", err)
		return nil, err
	}
	if ok {
		metrics.observe(sourceConfig)
		return checked(t, factory())
	}

	metrics.observe(sourceMiss)
	return nil, noInstance(t)
}

// Handle returns a deferred handle for t. It never fails; resolution is
// attempted when the handle is used.
func (r *Registry) Handle(t reflect.Type) *Handle {
	return &Handle{registry: r, typ: t}
}

// Binding describes one registration, for diagnostics.
type Binding struct {
	Type   string `json:"type"`
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
}

// Bindings returns the exact and resolver bindings, sorted by type.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Binding, 0, len(r.factories)+len(r.resolvers))
	for t := range r.factories {
		out = append(out, Binding{Type: TypeName(t), Kind: sourceFactory})
	}
	for i, rb := range r.resolvers {
		out = append(out, Binding{Type: TypeName(rb.family), Kind: sourceResolver, Target: fmt.Sprintf("#%d", i+1)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Type < out[j].Type
	})
	return out
}

// matching returns the indexes of resolvers whose family matches t, in
// registration order.
func (r *Registry) matching(t reflect.Type) []int {
	r.mu.RLock()
	idx, ok := r.matches[t]
	r.mu.RUnlock()
	if ok {
		return idx
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.matches[t]; ok {
		return idx
	}
	idx = []int{}
	for i, rb := range r.resolvers {
		if inFamily(t, rb.family) {
			idx = append(idx, i)
		}
	}
	r.matches[t] = idx
	return idx
}

// configured looks up the instances.<TypeName> binding for t.
func (r *Registry) configured(t reflect.Type) (Factory, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.source == nil {
		return nil, false, nil
	}
	name, ok := r.source.Value(configPrefix + TypeName(t))
	if !ok || name == "" {
		return nil, false, nil
	}
	factory, ok := r.catalog[name]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s%s=%s", ErrUnknownImplementation, configPrefix, TypeName(t), name)
	}
	return factory, true, nil
}

func inFamily(t, family reflect.Type) bool {
	if t == family {
		return true
	}
	if family.Kind() == reflect.Interface {
		return t.Implements(family)
	}
	return t.AssignableTo(family)
}

func checked(t reflect.Type, v any) (any, error) {
	if v == nil || !reflect.TypeOf(v).AssignableTo(t) {
		return nil, fmt.Errorf("%w: want %s, got %T", ErrTypeMismatch, TypeName(t), v)
	}
	return v, nil
}

func noInstance(t reflect.Type) *NoInstanceError {
	err := &NoInstanceError{Type: t}
	if testing.Testing() {
		err.Hint = fmt.Sprintf("did you forget to register a mock or factory for %s?", TypeName(t))
	}
	return err
}

// TypeName renders t the way configuration keys refer to it: the package
// name and type name, for example entity.Clock.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

var (
	defaultMu       sync.RWMutex
	defaultRegistry = New()
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultRegistry
}

// SetDefault replaces the process-wide registry and returns a function that
// restores the previous one. Tests use it to isolate their bindings.
func SetDefault(r *Registry) (restore func()) {
	defaultMu.Lock()
	prev := defaultRegistry
	defaultRegistry = r
	defaultMu.Unlock()

	return func() {
		defaultMu.Lock()
		defaultRegistry = prev
		defaultMu.Unlock()
	}
}
