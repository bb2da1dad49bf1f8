package entity

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
)

// localDateTimeLayout is an ISO local date-time without offset.
const localDateTimeLayout = "2006-01-02T15:04:05.999999999"

var typeDate = reflect.TypeFor[Date]()

type coercionKey struct {
	from, to reflect.Type
}

type coercion func(v any) (any, error)

// coercions lists every implicit conversion population applies, keyed by
// the runtime type of the incoming value and the declared field type.
// Anything not listed is passed through unchanged and must already match.
var coercions = map[coercionKey]coercion{
	{reflect.TypeFor[string](), typeDate}: func(v any) (any, error) {
		return ParseDate(v.(string))
	},
	{reflect.TypeFor[string](), typeTime}: func(v any) (any, error) {
		return parseDateTime(v.(string))
	},
	{reflect.TypeFor[string](), typeUUID}: func(v any) (any, error) {
		return uuid.Parse(v.(string))
	},
	{reflect.TypeFor[int](), reflect.TypeFor[int64]()}: func(v any) (any, error) {
		return int64(v.(int)), nil
	},
	{reflect.TypeFor[int32](), reflect.TypeFor[int64]()}: func(v any) (any, error) {
		return int64(v.(int32)), nil
	},
	{reflect.TypeFor[float32](), reflect.TypeFor[float64]()}: func(v any) (any, error) {
		return float64(v.(float32)), nil
	},
	// Decoded JSON numbers arrive as float64.
	{reflect.TypeFor[float64](), reflect.TypeFor[int64]()}: func(v any) (any, error) {
		n, err := integral(v.(float64))
		return n, err
	},
	{reflect.TypeFor[float64](), reflect.TypeFor[int]()}: func(v any) (any, error) {
		n, err := integral(v.(float64))
		return int(n), err
	},
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(localDateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date-time %q: %w", s, err)
	}
	return t, nil
}

// Coerce converts v for storage in f using the coercion table. Enum fields
// additionally accept the name of one of their values.
func Coerce(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	vt := reflect.TypeOf(v)
	if vt == f.Type {
		return v, nil
	}

	if name, ok := v.(string); ok && len(f.Enum) > 0 {
		for _, candidate := range f.Enum {
			if fmt.Sprint(candidate) == name {
				return candidate, nil
			}
		}
		return nil, fmt.Errorf("%q is not a value of %s", name, f.Name)
	}

	if c, ok := coercions[coercionKey{from: vt, to: f.Type}]; ok {
		out, err := c(v)
		if err != nil {
			return nil, fmt.Errorf("coercing %s: %w", f.Name, err)
		}
		return out, nil
	}
	return v, nil
}

// PopulateFrom assigns the writable fields of e found in data, coercing each
// value first. When only is non-empty, fields not named in it are skipped.
// Read-only fields are never written.
func PopulateFrom(e Entity, data map[string]any, only ...string) error {
	rec := e.Record()
	for _, f := range rec.shape.fields {
		if f.ReadOnly || (len(only) > 0 && !slices.Contains(only, f.Name)) {
			continue
		}
		v, ok := data[f.Name]
		if !ok {
			continue
		}
		if err := assign(rec, f, v); err != nil {
			return err
		}
	}
	return nil
}

// PopulateFromEntity copies the writable fields of dst that src also
// declares. The shapes need not match.
func PopulateFromEntity(dst, src Entity, only ...string) error {
	to, from := dst.Record(), src.Record()
	for _, f := range to.shape.fields {
		if f.ReadOnly || (len(only) > 0 && !slices.Contains(only, f.Name)) {
			continue
		}
		if _, ok := from.shape.Field(f.Name); !ok {
			continue
		}
		if err := assign(to, f, cloneValue(from.fields[f.Name])); err != nil {
			return err
		}
	}
	return nil
}

func assign(rec *Record, f Field, v any) error {
	coerced, err := Coerce(f, v)
	if err != nil {
		return &ShapeViolationError{Shape: rec.shape.name, Field: f.Name, Reason: err.Error(), cause: err}
	}
	value, err := f.accept(rec.shape, coerced)
	if err != nil {
		return err
	}
	rec.fields[f.Name] = value
	return nil
}
