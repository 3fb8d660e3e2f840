// Package types implements the static type system of the query language: the
// closed catalog of supported kinds, the implicit conversion rules, and the
// overload resolver that picks an operator signature for given operand types.
//
// The set of types and operators is small and fixed, so resolution works over
// an enumerated signature table rather than reflection.
package types

import (
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	Invalid Kind = iota
	Null         // the type of the null literal, convertible to any nullable type
	Bool
	Int     // 32-bit signed
	UInt    // 32-bit unsigned
	Long    // 64-bit signed
	ULong   // 64-bit unsigned
	Float   // float32
	Double  // float64
	Decimal // shopspring decimal
	String
	Char // single rune
	Time
	Duration
	Record // a Go struct (the root entity or a nested struct)
	Slice  // a Go slice or array
)

var kindNames = map[Kind]string{
	Invalid:  "invalid",
	Null:     "null",
	Bool:     "bool",
	Int:      "int",
	UInt:     "uint",
	Long:     "long",
	ULong:    "ulong",
	Float:    "float",
	Double:   "double",
	Decimal:  "decimal",
	String:   "string",
	Char:     "char",
	Time:     "datetime",
	Duration: "timespan",
	Record:   "record",
	Slice:    "slice",
}

// Type is the static type of an expression node. Nullable marks types whose
// runtime value may be nil (mapped from Go pointer fields). Record and Slice
// types carry the underlying Go type for member and element resolution.
type Type struct {
	Kind     Kind
	Nullable bool
	Go       reflect.Type // set for Record and Slice kinds only
}

func (t Type) String() string {
	name := kindNames[t.Kind]
	if t.Kind == Record && t.Go != nil {
		name = t.Go.Name()
	}
	if t.Nullable {
		return name + "?"
	}
	return name
}

// Of builds a non-nullable type of the given kind.
func Of(k Kind) Type { return Type{Kind: k} }

// NullableOf builds a nullable type of the given kind.
func NullableOf(k Kind) Type { return Type{Kind: k, Nullable: true} }

// IsNumeric reports whether k participates in arithmetic.
func (k Kind) IsNumeric() bool {
	switch k {
	case Int, UInt, Long, ULong, Float, Double, Decimal:
		return true
	}
	return false
}

var (
	decimalType  = reflect.TypeOf(decimal.Decimal{})
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// FromReflect maps a Go type onto the catalog. Pointer types become the
// nullable form of their element type. Unsupported types map to Invalid.
func FromReflect(rt reflect.Type) Type {
	if rt == nil {
		return Type{}
	}
	if rt.Kind() == reflect.Ptr {
		t := FromReflect(rt.Elem())
		t.Nullable = true
		return t
	}
	switch rt {
	case decimalType:
		return Of(Decimal)
	case timeType:
		return Of(Time)
	case durationType:
		return Of(Duration)
	}
	switch rt.Kind() {
	case reflect.Bool:
		return Of(Bool)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return Of(Int)
	case reflect.Int, reflect.Int64:
		return Of(Long)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return Of(UInt)
	case reflect.Uint, reflect.Uint64:
		return Of(ULong)
	case reflect.Float32:
		return Of(Float)
	case reflect.Float64:
		return Of(Double)
	case reflect.String:
		return Of(String)
	case reflect.Struct:
		return Type{Kind: Record, Go: rt}
	case reflect.Slice, reflect.Array:
		return Type{Kind: Slice, Go: rt}
	}
	return Type{}
}

// FromValue maps a runtime Go value (an external parameter) onto the catalog.
// A nil value has the Null type.
func FromValue(v any) Type {
	if v == nil {
		return Of(Null)
	}
	return FromReflect(reflect.TypeOf(v))
}

// Elem returns the element type of a Slice, or the Invalid type. Indexing a
// string yields a char, which the parser handles separately.
func (t Type) Elem() Type {
	if t.Kind != Slice || t.Go == nil {
		return Type{}
	}
	return FromReflect(t.Go.Elem())
}

// Member resolves a field name on a Record type, case-insensitively, and
// returns the field's type together with its index path for evaluation.
func (t Type) Member(name string) (Type, []int, bool) {
	if t.Kind != Record || t.Go == nil {
		return Type{}, nil, false
	}
	f, ok := t.Go.FieldByNameFunc(func(fn string) bool {
		return strings.EqualFold(fn, name)
	})
	if !ok || !f.IsExported() {
		return Type{}, nil, false
	}
	return FromReflect(f.Type), f.Index, true
}
