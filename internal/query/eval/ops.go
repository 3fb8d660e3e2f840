package eval

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openconf/confq/internal/query/ast"
	"github.com/openconf/confq/internal/query/types"
)

// Null semantics for lifted operations: arithmetic with a null operand
// yields null; relational comparison with null is false; equality treats
// null as an ordinary comparable value; a null condition in && / || is
// false.

func compileBinary(n *ast.Binary) (Fn, error) {
	left, err := compile(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := compile(n.Right)
	if err != nil {
		return nil, err
	}
	op := n.Op
	kind := n.Left.Type().Kind

	switch op {
	case "&&":
		return func(root reflect.Value) (any, error) {
			lv, err := left(root)
			if err != nil {
				return nil, err
			}
			if b, ok := lv.(bool); !ok || !b {
				return false, nil
			}
			rv, err := right(root)
			if err != nil {
				return nil, err
			}
			b, ok := rv.(bool)
			return ok && b, nil
		}, nil
	case "||":
		return func(root reflect.Value) (any, error) {
			lv, err := left(root)
			if err != nil {
				return nil, err
			}
			if b, ok := lv.(bool); ok && b {
				return true, nil
			}
			rv, err := right(root)
			if err != nil {
				return nil, err
			}
			b, ok := rv.(bool)
			return ok && b, nil
		}, nil
	case "==", "!=":
		neg := op == "!="
		return func(root reflect.Value) (any, error) {
			lv, err := left(root)
			if err != nil {
				return nil, err
			}
			rv, err := right(root)
			if err != nil {
				return nil, err
			}
			eq := equal(lv, rv)
			return eq != neg, nil
		}, nil
	case "<", "<=", ">", ">=":
		return func(root reflect.Value) (any, error) {
			lv, err := left(root)
			if err != nil {
				return nil, err
			}
			rv, err := right(root)
			if err != nil {
				return nil, err
			}
			if lv == nil || rv == nil {
				return false, nil
			}
			c, err := Compare(lv, rv, kind)
			if err != nil {
				return nil, err
			}
			switch op {
			case "<":
				return c < 0, nil
			case "<=":
				return c <= 0, nil
			case ">":
				return c > 0, nil
			default:
				return c >= 0, nil
			}
		}, nil
	}

	// Arithmetic.
	return func(root reflect.Value) (any, error) {
		lv, err := left(root)
		if err != nil {
			return nil, err
		}
		rv, err := right(root)
		if err != nil {
			return nil, err
		}
		if lv == nil || rv == nil {
			return nil, nil
		}
		return arith(op, kind, lv, rv)
	}, nil
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case decimal.Decimal:
		return av.Equal(b.(decimal.Decimal))
	case time.Time:
		return av.Equal(b.(time.Time))
	}
	return a == b
}

// Compare orders two non-nil canonical values of the same kind. It returns
// a negative, zero, or positive result like strings.Compare.
func Compare(a, b any, k types.Kind) (int, error) {
	switch k {
	case types.Int:
		return cmpOrdered(a.(int32), b.(int32)), nil
	case types.UInt:
		return cmpOrdered(a.(uint32), b.(uint32)), nil
	case types.Long:
		return cmpOrdered(a.(int64), b.(int64)), nil
	case types.ULong:
		return cmpOrdered(a.(uint64), b.(uint64)), nil
	case types.Float:
		return cmpOrdered(a.(float32), b.(float32)), nil
	case types.Double:
		return cmpOrdered(a.(float64), b.(float64)), nil
	case types.Decimal:
		return a.(decimal.Decimal).Cmp(b.(decimal.Decimal)), nil
	case types.String:
		return strings.Compare(a.(string), b.(string)), nil
	case types.Char:
		return cmpOrdered(a.(rune), b.(rune)), nil
	case types.Time:
		at, bt := a.(time.Time), b.(time.Time)
		switch {
		case at.Before(bt):
			return -1, nil
		case at.After(bt):
			return 1, nil
		}
		return 0, nil
	case types.Duration:
		return cmpOrdered(a.(time.Duration), b.(time.Duration)), nil
	case types.Bool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0, nil
		case bb:
			return -1, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("eval: values of kind %v are not comparable", k)
}

func cmpOrdered[T int32 | uint32 | int64 | uint64 | float32 | float64 | time.Duration](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func arith(op string, k types.Kind, a, b any) (any, error) {
	switch k {
	case types.Int:
		return intArith(op, int64(a.(int32)), int64(b.(int32)), func(v int64) any { return int32(v) })
	case types.Long:
		return intArith(op, a.(int64), b.(int64), func(v int64) any { return v })
	case types.UInt:
		return uintArith(op, uint64(a.(uint32)), uint64(b.(uint32)), func(v uint64) any { return uint32(v) })
	case types.ULong:
		return uintArith(op, a.(uint64), b.(uint64), func(v uint64) any { return v })
	case types.Float:
		return floatArith(op, float64(a.(float32)), float64(b.(float32)), func(v float64) any { return float32(v) })
	case types.Double:
		return floatArith(op, a.(float64), b.(float64), func(v float64) any { return v })
	case types.Decimal:
		return decimalArith(op, a.(decimal.Decimal), b.(decimal.Decimal))
	case types.String:
		if op == "+" {
			return a.(string) + b.(string), nil
		}
	case types.Time:
		at := a.(time.Time)
		switch op {
		case "+":
			return at.Add(b.(time.Duration)), nil
		case "-":
			if bd, ok := b.(time.Duration); ok {
				return at.Add(-bd), nil
			}
			return at.Sub(b.(time.Time)), nil
		}
	case types.Duration:
		ad, bd := a.(time.Duration), b.(time.Duration)
		switch op {
		case "+":
			return ad + bd, nil
		case "-":
			return ad - bd, nil
		}
	}
	return nil, fmt.Errorf("eval: operator %q is not defined for kind %v", op, k)
}

func intArith(op string, a, b int64, wrap func(int64) any) (any, error) {
	switch op {
	case "+":
		return wrap(a + b), nil
	case "-":
		return wrap(a - b), nil
	case "*":
		return wrap(a * b), nil
	case "/":
		if b == 0 {
			return nil, fmt.Errorf("eval: division by zero")
		}
		return wrap(a / b), nil
	case "%":
		if b == 0 {
			return nil, fmt.Errorf("eval: division by zero")
		}
		return wrap(a % b), nil
	}
	return nil, fmt.Errorf("eval: unknown operator %q", op)
}

func uintArith(op string, a, b uint64, wrap func(uint64) any) (any, error) {
	switch op {
	case "+":
		return wrap(a + b), nil
	case "-":
		return wrap(a - b), nil
	case "*":
		return wrap(a * b), nil
	case "/":
		if b == 0 {
			return nil, fmt.Errorf("eval: division by zero")
		}
		return wrap(a / b), nil
	case "%":
		if b == 0 {
			return nil, fmt.Errorf("eval: division by zero")
		}
		return wrap(a % b), nil
	}
	return nil, fmt.Errorf("eval: unknown operator %q", op)
}

func floatArith(op string, a, b float64, wrap func(float64) any) (any, error) {
	switch op {
	case "+":
		return wrap(a + b), nil
	case "-":
		return wrap(a - b), nil
	case "*":
		return wrap(a * b), nil
	case "/":
		return wrap(a / b), nil
	case "%":
		return nil, fmt.Errorf("eval: operator %% is not defined for floating point")
	}
	return nil, fmt.Errorf("eval: unknown operator %q", op)
}

func decimalArith(op string, a, b decimal.Decimal) (any, error) {
	switch op {
	case "+":
		return a.Add(b), nil
	case "-":
		return a.Sub(b), nil
	case "*":
		return a.Mul(b), nil
	case "/":
		if b.IsZero() {
			return nil, fmt.Errorf("eval: division by zero")
		}
		return a.Div(b), nil
	case "%":
		if b.IsZero() {
			return nil, fmt.Errorf("eval: division by zero")
		}
		return a.Mod(b), nil
	}
	return nil, fmt.Errorf("eval: unknown operator %q", op)
}

func unaryOp(op string, k types.Kind, v any) (any, error) {
	switch op {
	case "u!":
		return !v.(bool), nil
	case "u-":
		switch k {
		case types.Int:
			return -v.(int32), nil
		case types.Long:
			return -v.(int64), nil
		case types.Float:
			return -v.(float32), nil
		case types.Double:
			return -v.(float64), nil
		case types.Decimal:
			return v.(decimal.Decimal).Neg(), nil
		}
	}
	return nil, fmt.Errorf("eval: unknown unary operator %q for kind %v", op, k)
}

// convert coerces a non-nil canonical value between kinds; it backs the
// Convert nodes the parser inserts for implicit widening.
func convert(v any, from, to types.Kind) (any, error) {
	if from == to {
		return v, nil
	}
	// Everything implicitly convertible is reachable through one of three
	// intermediates: signed, unsigned, or float.
	switch from {
	case types.Int:
		return fromSigned(int64(v.(int32)), to)
	case types.Long:
		return fromSigned(v.(int64), to)
	case types.Char:
		return fromSigned(int64(v.(rune)), to)
	case types.UInt:
		return fromUnsigned(uint64(v.(uint32)), to)
	case types.ULong:
		return fromUnsigned(v.(uint64), to)
	case types.Float:
		if to == types.Double {
			return float64(v.(float32)), nil
		}
	}
	return nil, fmt.Errorf("eval: no conversion from %v to %v", from, to)
}

func fromSigned(v int64, to types.Kind) (any, error) {
	switch to {
	case types.Int:
		return int32(v), nil
	case types.Long:
		return v, nil
	case types.UInt:
		return uint32(v), nil
	case types.ULong:
		return uint64(v), nil
	case types.Float:
		return float32(v), nil
	case types.Double:
		return float64(v), nil
	case types.Decimal:
		return decimal.NewFromInt(v), nil
	}
	return nil, fmt.Errorf("eval: no conversion to %v", to)
}

func fromUnsigned(v uint64, to types.Kind) (any, error) {
	switch to {
	case types.Long:
		return int64(v), nil
	case types.ULong:
		return v, nil
	case types.Float:
		return float32(v), nil
	case types.Double:
		return float64(v), nil
	case types.Decimal:
		return decimal.NewFromUint64(v), nil
	}
	return nil, fmt.Errorf("eval: no conversion to %v", to)
}
