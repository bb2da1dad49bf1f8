package entity

import (
	"fmt"

	"github.com/nerrad567/entitykit/internal/instances"
)

// FactoryOption configures a Factory.
type FactoryOption func(*factoryConfig)

type factoryConfig struct {
	materializer Materializer
}

// WithMaterializer fixes the materializer used by the factory. Without it
// the factory uses the Materializer bound in the default registry, falling
// back to DefaultMaterializer.
func WithMaterializer(m Materializer) FactoryOption {
	return func(c *factoryConfig) {
		c.materializer = m
	}
}

// Factory builds unpersisted instances of T for one shape.
type Factory[T Entity] struct {
	shape        *Shape
	wrap         func(*Record) T
	materializer Materializer
}

// NewFactory returns a factory for shape. wrap turns a record into T and is
// usually a one-line struct literal embedding Base.
func NewFactory[T Entity](shape *Shape, wrap func(*Record) T, opts ...FactoryOption) *Factory[T] {
	var cfg factoryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Factory[T]{shape: shape, wrap: wrap, materializer: cfg.materializer}
}

// Shape returns the shape the factory materializes.
func (f *Factory[T]) Shape() *Shape {
	return f.shape
}

// New materializes an instance with a fresh id and applies init in order.
func (f *Factory[T]) New(init ...func(T)) T {
	rec, err := f.materialize(nil)
	if err != nil {
		panic(err)
	}
	e := f.wrap(rec)
	for _, fn := range init {
		fn(e)
	}
	return e
}

// FromMap materializes an instance seeded with fields. Values must already
// have their declared types; use PopulateFrom for loosely typed input.
func (f *Factory[T]) FromMap(fields map[string]any) (T, error) {
	rec, err := f.materialize(fields)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.wrap(rec), nil
}

// Wrap turns an existing record of the factory's shape into T.
func (f *Factory[T]) Wrap(rec *Record) T {
	if rec.shape != f.shape {
		panic(fmt.Sprintf("entity: cannot wrap %s record as %s", rec.shape, f.shape))
	}
	return f.wrap(rec)
}

// Copy returns an equal instance with an independent field map and an empty
// lazy cache.
func (f *Factory[T]) Copy(e T) T {
	return f.wrap(e.Record().Copy())
}

func (f *Factory[T]) materialize(fields map[string]any) (*Record, error) {
	m := f.materializer
	if m == nil {
		m = defaultMaterializer()
	}
	rec, err := m.Materialize(f.shape, fields)
	if err != nil {
		return nil, fmt.Errorf("materializing %s: %w", f.shape.Name(), err)
	}
	return rec, nil
}

func defaultMaterializer() Materializer {
	reg := instances.Default()
	if !instances.IsRegistered[Materializer](reg) {
		return DefaultMaterializer{}
	}
	if m, err := instances.Get[Materializer](reg); err == nil {
		return m
	}
	return DefaultMaterializer{}
}
