package entity

import "reflect"

// cloneFields deep-copies a field map so the copy shares no mutable state
// with the original.
func cloneFields(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies maps, slices, arrays and pointers reachable from v.
// Scalars, strings and struct values are returned as-is; the field types used
// by shapes (time.Time, uuid.UUID, Date) are immutable values.
func cloneValue(v any) any {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	}

	src := reflect.ValueOf(v)
	switch src.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Array:
		return cloneReflect(src).Interface()
	default:
		return v
	}
}

func cloneReflect(src reflect.Value) reflect.Value {
	switch src.Kind() {
	case reflect.Map:
		if src.IsNil() {
			return src
		}
		out := reflect.MakeMapWithSize(src.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneReflect(iter.Value()))
		}
		return out
	case reflect.Slice:
		if src.IsNil() {
			return src
		}
		out := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			out.Index(i).Set(cloneReflect(src.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(src.Type()).Elem()
		for i := 0; i < src.Len(); i++ {
			out.Index(i).Set(cloneReflect(src.Index(i)))
		}
		return out
	case reflect.Pointer:
		if src.IsNil() {
			return src
		}
		out := reflect.New(src.Type().Elem())
		out.Elem().Set(cloneReflect(src.Elem()))
		return out
	case reflect.Interface:
		if src.IsNil() {
			return src
		}
		inner := cloneReflect(src.Elem())
		out := reflect.New(src.Type()).Elem()
		out.Set(inner)
		return out
	default:
		return src
	}
}
