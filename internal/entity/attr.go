package entity

import "reflect"

// Attribute is a non-null stored field of type T with typed accessors.
//
//	var somethingName = entity.Attr[string]("name")
//
//	func (s *Something) Name() string     { return somethingName.Get(s) }
//	func (s *Something) SetName(v string) { somethingName.Set(s, v) }
type Attribute[T any] struct {
	field Field
}

// Attr declares a non-null field.
func Attr[T any](name string) *Attribute[T] {
	return &Attribute[T]{field: Field{Name: name, Type: reflect.TypeFor[T]()}}
}

// EnumAttr declares a non-null enum field whose permitted values are values.
// Population matches incoming strings against fmt.Sprint of each value.
func EnumAttr[T comparable](name string, values ...T) *Attribute[T] {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &Attribute[T]{field: Field{Name: name, Type: reflect.TypeFor[T](), Enum: enum}}
}

// Name returns the field name.
func (a *Attribute[T]) Name() string { return a.field.Name }

// Get reads the field from e.
func (a *Attribute[T]) Get(e Entity) T {
	v, _ := e.Record().Get(a.field.Name).(T)
	return v
}

// Set writes the field on e through the declared-setter path.
func (a *Attribute[T]) Set(e Entity, v T) {
	e.Record().Set(a.field.Name, v)
}

func (a *Attribute[T]) propertyName() string       { return a.field.Name }
func (a *Attribute[T]) storedField() (Field, bool) { return a.field, true }

// OptionalAttribute is a nullable stored field of type T, read and written
// as *T. The pointer is never stored; the record keeps the value or nil.
type OptionalAttribute[T any] struct {
	field Field
}

// Optional declares a nullable field.
func Optional[T any](name string) *OptionalAttribute[T] {
	return &OptionalAttribute[T]{field: Field{Name: name, Type: reflect.TypeFor[T](), Nullable: true}}
}

// OptionalEnum declares a nullable enum field.
func OptionalEnum[T comparable](name string, values ...T) *OptionalAttribute[T] {
	a := Optional[T](name)
	for _, v := range values {
		a.field.Enum = append(a.field.Enum, v)
	}
	return a
}

// Name returns the field name.
func (a *OptionalAttribute[T]) Name() string { return a.field.Name }

// Get returns a pointer to a copy of the value, or nil.
func (a *OptionalAttribute[T]) Get(e Entity) *T {
	v, ok := a.Value(e)
	if !ok {
		return nil
	}
	return &v
}

// Value returns the value and whether it is set.
func (a *OptionalAttribute[T]) Value(e Entity) (T, bool) {
	v, ok := e.Record().Get(a.field.Name).(T)
	return v, ok
}

// Set writes *v, or clears the field when v is nil.
func (a *OptionalAttribute[T]) Set(e Entity, v *T) {
	if v == nil {
		e.Record().Set(a.field.Name, nil)
		return
	}
	e.Record().Set(a.field.Name, *v)
}

func (a *OptionalAttribute[T]) propertyName() string       { return a.field.Name }
func (a *OptionalAttribute[T]) storedField() (Field, bool) { return a.field, true }

// ComputedProperty is a lazily computed value of entities of type E. The
// first Get per instance runs the loader and caches the result in the
// record's lazy cache; later reads return the cached value until cleared.
type ComputedProperty[E Entity, T any] struct {
	name string
	load func(E) T
}

// Computed declares a computed property. The loader must not refer to the
// shape or factory that declares the property, or package initialization
// would be cyclic.
func Computed[E Entity, T any](name string, load func(E) T) *ComputedProperty[E, T] {
	return &ComputedProperty[E, T]{name: name, load: load}
}

// Name returns the property name.
func (c *ComputedProperty[E, T]) Name() string { return c.name }

// Get returns the cached value, computing it on first access.
func (c *ComputedProperty[E, T]) Get(e E) T {
	return LazyValue(e, c.name, func() T { return c.load(e) })
}

// Loaded reports whether e has a cached value.
func (c *ComputedProperty[E, T]) Loaded(e E) bool {
	return IsLazyValueLoaded(e, c.name)
}

// Clear drops the cached value of e.
func (c *ComputedProperty[E, T]) Clear(e E) {
	ClearLazyValue(e, c.name)
}

func (c *ComputedProperty[E, T]) propertyName() string       { return c.name }
func (c *ComputedProperty[E, T]) storedField() (Field, bool) { return Field{}, false }
