package entity

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Base field names present on every shape.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

var (
	typeUUID = reflect.TypeFor[uuid.UUID]()
	typeTime = reflect.TypeFor[time.Time]()
)

// Field is one stored field of a shape.
type Field struct {
	Name     string
	Type     reflect.Type
	Nullable bool

	// ReadOnly fields can only be written by the materializer, the
	// persistence layer and the SetProperty bypass.
	ReadOnly bool

	// Enum lists the permitted values of an enum field. Population matches
	// incoming strings against their names.
	Enum []any
}

// Property is anything a Shape can declare: a stored field or a computed value.
type Property interface {
	propertyName() string
	storedField() (Field, bool)
}

// Shape is the declared structure of an entity type: its stored fields in
// order, and the names of its computed properties.
//
// Shapes are compared by identity. Two records are only ever equal when
// they share the same *Shape.
type Shape struct {
	name     string
	fields   []Field
	index    map[string]int
	computed map[string]bool
}

// NewShape declares a shape. The base fields id, created_at and updated_at
// are added first, followed by props in the order given.
//
// NewShape panics on duplicate property names; shapes are declared at
// package level, so this is a programming error.
func NewShape(name string, props ...Property) *Shape {
	s := &Shape{
		name:     name,
		index:    make(map[string]int),
		computed: make(map[string]bool),
	}

	s.add(Field{Name: FieldID, Type: typeUUID, ReadOnly: true})
	s.add(Field{Name: FieldCreatedAt, Type: typeTime, Nullable: true, ReadOnly: true})
	s.add(Field{Name: FieldUpdatedAt, Type: typeTime, Nullable: true, ReadOnly: true})

	for _, p := range props {
		if f, stored := p.storedField(); stored {
			s.add(f)
			continue
		}
		name := p.propertyName()
		if s.declared(name) {
			panic(fmt.Sprintf("entity: shape %s declares %q twice", s.name, name))
		}
		s.computed[name] = true
	}

	return s
}

func (s *Shape) add(f Field) {
	if s.declared(f.Name) {
		panic(fmt.Sprintf("entity: shape %s declares %q twice", s.name, f.Name))
	}
	s.index[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
}

func (s *Shape) declared(name string) bool {
	_, stored := s.index[name]
	return stored || s.computed[name]
}

// Name returns the shape name.
func (s *Shape) Name() string {
	return s.name
}

// Fields returns the stored fields in declaration order.
func (s *Shape) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the stored field called name.
func (s *Shape) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// IsComputed reports whether name is a computed property of the shape.
func (s *Shape) IsComputed(name string) bool {
	return s.computed[name]
}

func (s *Shape) String() string {
	return s.name
}

// accept checks v against f and returns the value to store.
// The only implicit conversion is widening a narrower integer into int64.
func (f Field) accept(shape *Shape, v any) (any, error) {
	if v == nil {
		if f.Nullable {
			return nil, nil
		}
		return nil, violation(shape, f.Name, "cannot be null")
	}

	vt := reflect.TypeOf(v)
	switch {
	case vt == f.Type:
		return v, nil
	case f.Type.Kind() == reflect.Interface && vt.Implements(f.Type):
		return v, nil
	case f.Type.Kind() == reflect.Int64 && isNarrowInt(vt):
		return reflect.ValueOf(v).Convert(f.Type).Interface(), nil
	}

	return nil, violation(shape, f.Name, fmt.Sprintf("expects %s, got %s", f.Type, vt))
}

func isNarrowInt(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return true
	default:
		return false
	}
}

// zero returns the value an unset field holds after materialization.
func (f Field) zero() any {
	if f.Nullable || f.Type.Kind() == reflect.Interface {
		return nil
	}
	return reflect.Zero(f.Type).Interface()
}
