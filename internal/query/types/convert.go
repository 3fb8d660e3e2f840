package types

// widening enumerates the implicit numeric conversions, following the C#
// numeric promotion rules the source language used: signed types widen to
// wider signed, float and decimal; unsigned types additionally widen to the
// signed types that can hold them; float widens to double only; nothing
// implicitly leaves double or decimal.
var widening = map[Kind][]Kind{
	Int:   {Long, Float, Double, Decimal},
	UInt:  {Long, ULong, Float, Double, Decimal},
	Long:  {Float, Double, Decimal},
	ULong: {Float, Double, Decimal},
	Float: {Double},
	Char:  {Int, UInt, Long, ULong, Float, Double, Decimal},
}

// kindConvertible reports whether a value of kind from is implicitly usable
// where kind to is expected, ignoring nullability.
func kindConvertible(from, to Kind) bool {
	if from == to {
		return true
	}
	for _, k := range widening[from] {
		if k == to {
			return true
		}
	}
	return false
}

// Convertible reports whether from is implicitly convertible to to:
// identity, numeric widening, non-nullable to nullable wrapping, and the
// null literal to any nullable type.
func Convertible(from, to Type) bool {
	if from.Kind == Null {
		return to.Nullable
	}
	if from.Nullable && !to.Nullable {
		return false
	}
	return kindConvertible(from.Kind, to.Kind)
}

// Common returns the common type of two branches (the ternary result rule):
// the branch type the other branch converts to. ok is false when neither
// converts to the other.
func Common(a, b Type) (Type, bool) {
	if a.Kind == Null {
		c := b
		c.Nullable = true
		return c, b.Kind != Null
	}
	if b.Kind == Null {
		c := a
		c.Nullable = true
		return c, true
	}
	if Convertible(a, b) {
		return b, true
	}
	if Convertible(b, a) {
		return a, true
	}
	return Type{}, false
}
