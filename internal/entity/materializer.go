package entity

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator produces identifiers for new records.
type IDGenerator func() uuid.UUID

// NewID returns a time-ordered UUIDv7, so ids sort roughly by creation.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Materializer builds records for a shape.
type Materializer interface {
	Materialize(shape *Shape, init map[string]any) (*Record, error)
}

// DefaultMaterializer seeds a fresh field map from init.
//
// Every value in init is checked against its field the way SetProperty
// checks it, so read-only fields such as id may be supplied. A missing id is
// generated; other missing fields hold their zero value, or nil when the
// field is nullable. Timestamps stay unset until a repository stamps them.
type DefaultMaterializer struct {
	NewID IDGenerator
}

// Materialize implements Materializer.
func (m DefaultMaterializer) Materialize(shape *Shape, init map[string]any) (*Record, error) {
	rec := &Record{
		shape:  shape,
		fields: make(map[string]any, len(shape.fields)),
	}

	for name, v := range init {
		if name == FieldID && v == nil {
			continue
		}
		f, ok := shape.Field(name)
		if !ok {
			return nil, unknownField(shape, name)
		}
		value, err := f.accept(shape, cloneValue(v))
		if err != nil {
			return nil, err
		}
		rec.fields[name] = value
	}

	if _, ok := rec.fields[FieldID]; !ok {
		gen := m.NewID
		if gen == nil {
			gen = NewID
		}
		rec.fields[FieldID] = gen()
	}

	for _, f := range shape.fields {
		if _, ok := rec.fields[f.Name]; !ok {
			rec.fields[f.Name] = f.zero()
		}
	}

	return rec, nil
}

// Materialize builds a record with the default materializer.
func Materialize(shape *Shape, init map[string]any) (*Record, error) {
	rec, err := DefaultMaterializer{}.Materialize(shape, init)
	if err != nil {
		return nil, fmt.Errorf("materializing %s: %w", shape.Name(), err)
	}
	return rec, nil
}
