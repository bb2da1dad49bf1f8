package entity

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Record is the backing store of one entity instance: the shape it was
// materialized from, its stored field values, and a separate cache of
// computed values.
//
// Equality, hashing and copying are derived from the shape and the stored
// fields only; the lazy cache never takes part.
//
// A Record is not safe for concurrent mutation.
type Record struct {
	shape  *Shape
	fields map[string]any
	lazy   map[string]any
}

// Shape returns the shape the record was materialized from.
func (r *Record) Shape() *Shape {
	return r.shape
}

// Get returns the stored value of a declared field. It panics with a
// *ShapeViolationError when the shape has no such field.
func (r *Record) Get(name string) any {
	if _, ok := r.shape.Field(name); !ok {
		panic(unknownField(r.shape, name))
	}
	return r.fields[name]
}

// Set is the declared-setter path. It panics with a *ShapeViolationError when
// the field is unknown or read-only, or when v does not fit the field.
func (r *Record) Set(name string, v any) {
	f, ok := r.shape.Field(name)
	if !ok {
		panic(unknownField(r.shape, name))
	}
	if f.ReadOnly {
		panic(readOnlyField(r.shape, name))
	}
	value, err := f.accept(r.shape, v)
	if err != nil {
		panic(err)
	}
	r.fields[name] = value
}

// SetProperty writes a field without running domain validation. It performs
// the same type and nullability checks as Set but may also write read-only
// fields, which makes it the setup path for tests and persistence code.
func (r *Record) SetProperty(name string, v any) error {
	f, ok := r.shape.Field(name)
	if !ok {
		return unknownField(r.shape, name)
	}
	value, err := f.accept(r.shape, v)
	if err != nil {
		return err
	}
	r.fields[name] = value
	return nil
}

// Fields returns a deep copy of the stored fields.
func (r *Record) Fields() map[string]any {
	return cloneFields(r.fields)
}

// Document returns the stored fields for serialization: a deep copy with
// enum values replaced by their names.
func (r *Record) Document() map[string]any {
	out := cloneFields(r.fields)
	for _, f := range r.shape.fields {
		if v := out[f.Name]; len(f.Enum) > 0 && v != nil {
			out[f.Name] = fmt.Sprint(v)
		}
	}
	return out
}

// ID returns the record identifier.
func (r *Record) ID() uuid.UUID {
	id, _ := r.fields[FieldID].(uuid.UUID)
	return id
}

// CreatedAt returns when the record was first persisted, or the zero time.
func (r *Record) CreatedAt() time.Time {
	t, _ := r.fields[FieldCreatedAt].(time.Time)
	return t
}

// UpdatedAt returns when the record was last persisted, or the zero time.
func (r *Record) UpdatedAt() time.Time {
	t, _ := r.fields[FieldUpdatedAt].(time.Time)
	return t
}

// Touch stamps persistence timestamps. A create sets both created_at and
// updated_at to now; an update only moves updated_at.
func (r *Record) Touch(now time.Time, create bool) {
	if create {
		r.fields[FieldCreatedAt] = now
	}
	r.fields[FieldUpdatedAt] = now
}

// Copy returns a record with the same shape, an independent deep copy of the
// fields and an empty lazy cache.
func (r *Record) Copy() *Record {
	return &Record{
		shape:  r.shape,
		fields: cloneFields(r.fields),
	}
}

// Equal reports whether both records share a shape and hold equal fields.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.shape != other.shape || len(r.fields) != len(other.fields) {
		return false
	}
	for name, v := range r.fields {
		ov, ok := other.fields[name]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// Hash returns a hash consistent with Equal.
func (r *Record) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(r.shape.name)
	for _, f := range r.shape.fields {
		_, _ = d.WriteString("\x00" + f.Name + "=")
		_, _ = d.WriteString(canonical(r.fields[f.Name]))
	}
	return d.Sum64()
}

// String renders the record as Shape{field=value, ...} in declaration order.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.shape.name)
	b.WriteByte('{')
	for i, f := range r.shape.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(canonical(r.fields[f.Name]))
	}
	b.WriteByte('}')
	return b.String()
}

func (r *Record) lazyValue(name string) (any, bool) {
	v, ok := r.lazy[name]
	return v, ok
}

func (r *Record) setLazy(name string, v any) {
	if r.lazy == nil {
		r.lazy = make(map[string]any)
	}
	r.lazy[name] = v
}

func (r *Record) clearLazy(name string) {
	delete(r.lazy, name)
}

func (r *Record) clearAllLazy() {
	clear(r.lazy)
}

func valuesEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case string:
		return fmt.Sprintf("%q", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
