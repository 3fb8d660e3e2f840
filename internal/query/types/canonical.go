package types

import (
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalValue maps an arbitrary Go value onto the catalog and returns it
// in the canonical runtime representation for its kind: int32, uint32, int64,
// uint64, float32, float64, decimal.Decimal, string, rune, bool, time.Time,
// time.Duration. Pointers are dereferenced and make the type nullable; a nil
// value or pointer yields (nil, nullable/null type). Records and slices pass
// through unchanged.
func CanonicalValue(v any) (any, Type) {
	if v == nil {
		return nil, Of(Null)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		t := FromReflect(rv.Type())
		if rv.IsNil() {
			return nil, t
		}
		cv, _ := CanonicalValue(rv.Elem().Interface())
		return cv, t
	}
	t := FromReflect(rv.Type())
	return canonical(rv, t.Kind), t
}

func canonical(rv reflect.Value, k Kind) any {
	switch k {
	case Bool:
		return rv.Bool()
	case Int:
		return int32(rv.Int())
	case UInt:
		return uint32(rv.Uint())
	case Long:
		return rv.Int()
	case ULong:
		return rv.Uint()
	case Float:
		return float32(rv.Float())
	case Double:
		return rv.Float()
	case Decimal:
		return rv.Interface().(decimal.Decimal)
	case String:
		return rv.String()
	case Time:
		return rv.Interface().(time.Time)
	case Duration:
		return time.Duration(rv.Int())
	}
	return rv.Interface()
}

// CanonicalField converts a struct field value (reached by index path) to
// canonical form. The second result is false when a nil pointer was crossed,
// which evaluates as null.
func CanonicalField(root reflect.Value, index []int) (any, bool) {
	rv := root
	for _, i := range index {
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return nil, false
			}
			rv = rv.Elem()
		}
		rv = rv.Field(i)
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return canonical(rv, FromReflect(rv.Type()).Kind), true
}
