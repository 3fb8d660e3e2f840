// Package eval turns typed expression trees into executable closures. A tree
// is compiled once and may be evaluated against any number of records; the
// closures are pure and safe for concurrent use.
//
// Runtime values use the canonical representation per kind (int32, uint32,
// int64, uint64, float32, float64, decimal.Decimal, string, rune, bool,
// time.Time, time.Duration); nil stands for null.
package eval

import (
	"fmt"
	"reflect"

	"github.com/araddon/dateparse"

	"github.com/openconf/confq/internal/query/ast"
	"github.com/openconf/confq/internal/query/record"
	"github.com/openconf/confq/internal/query/types"
)

// Fn evaluates a compiled expression against one record.
type Fn func(root reflect.Value) (any, error)

// Compiled pairs an expression tree with its executable form.
type Compiled struct {
	Tree ast.Expr
	fn   Fn
}

// Compile builds the executable form of expr.
func Compile(expr ast.Expr) (*Compiled, error) {
	fn, err := compile(expr)
	if err != nil {
		return nil, err
	}
	return &Compiled{Tree: expr, fn: fn}, nil
}

// Eval runs the compiled expression against v, which must be the record type
// the expression was parsed for (or a pointer to it).
func (c *Compiled) Eval(v any) (any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("eval: nil record")
		}
		rv = rv.Elem()
	}
	return c.fn(rv)
}

// EvalBool runs a predicate. A null result is false.
func (c *Compiled) EvalBool(v any) (bool, error) {
	out, err := c.Eval(v)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, nil
	}
	return b, nil
}

func compile(e ast.Expr) (Fn, error) {
	switch n := e.(type) {
	case *ast.Literal:
		v := n.Value
		return func(reflect.Value) (any, error) { return v, nil }, nil

	case *ast.Root:
		return func(root reflect.Value) (any, error) { return root.Interface(), nil }, nil

	case *ast.Member:
		target, err := compile(n.Target)
		if err != nil {
			return nil, err
		}
		index := n.Index
		return func(root reflect.Value) (any, error) {
			tv, err := target(root)
			if err != nil {
				return nil, err
			}
			if tv == nil {
				return nil, nil
			}
			v, ok := types.CanonicalField(reflect.ValueOf(tv), index)
			if !ok {
				return nil, nil
			}
			return v, nil
		}, nil

	case *ast.Index:
		return compileIndex(n)

	case *ast.Convert:
		operand, err := compile(n.Operand)
		if err != nil {
			return nil, err
		}
		from, to := n.Operand.Type().Kind, n.Typ.Kind
		return func(root reflect.Value) (any, error) {
			v, err := operand(root)
			if err != nil || v == nil {
				return v, err
			}
			return convert(v, from, to)
		}, nil

	case *ast.Unary:
		operand, err := compile(n.Operand)
		if err != nil {
			return nil, err
		}
		kind := n.Operand.Type().Kind
		op := n.Op
		return func(root reflect.Value) (any, error) {
			v, err := operand(root)
			if err != nil || v == nil {
				return v, err
			}
			return unaryOp(op, kind, v)
		}, nil

	case *ast.Binary:
		return compileBinary(n)

	case *ast.Conditional:
		cond, err := compile(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := compile(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := compile(n.Else)
		if err != nil {
			return nil, err
		}
		return func(root reflect.Value) (any, error) {
			c, err := cond(root)
			if err != nil {
				return nil, err
			}
			if b, ok := c.(bool); ok && b {
				return then(root)
			}
			return els(root)
		}, nil

	case *ast.Call:
		return compileCall(n)

	case *ast.NewRecord:
		return compileNewRecord(n)
	}
	return nil, fmt.Errorf("eval: unsupported node %T", e)
}

func compileIndex(n *ast.Index) (Fn, error) {
	target, err := compile(n.Target)
	if err != nil {
		return nil, err
	}
	key, err := compile(n.Key)
	if err != nil {
		return nil, err
	}
	onString := n.Target.Type().Kind == types.String
	return func(root reflect.Value) (any, error) {
		tv, err := target(root)
		if err != nil {
			return nil, err
		}
		kv, err := key(root)
		if err != nil {
			return nil, err
		}
		if tv == nil || kv == nil {
			return nil, nil
		}
		i := kv.(int64)
		if onString {
			runes := []rune(tv.(string))
			if i < 0 || i >= int64(len(runes)) {
				return nil, fmt.Errorf("eval: string index %d out of range", i)
			}
			return runes[i], nil
		}
		rv := reflect.ValueOf(tv)
		if i < 0 || i >= int64(rv.Len()) {
			return nil, fmt.Errorf("eval: index %d out of range (length %d)", i, rv.Len())
		}
		v, _ := types.CanonicalValue(rv.Index(int(i)).Interface())
		return v, nil
	}, nil
}

func compileCall(n *ast.Call) (Fn, error) {
	args := make([]Fn, len(n.Args))
	for i, a := range n.Args {
		fn, err := compile(a)
		if err != nil {
			return nil, err
		}
		args[i] = fn
	}
	switch n.Name {
	case "datetime":
		return func(root reflect.Value) (any, error) {
			v, err := args[0](root)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return nil, nil
			}
			t, err := dateparse.ParseAny(v.(string))
			if err != nil {
				return nil, fmt.Errorf("eval: DateTime: %w", err)
			}
			return t, nil
		}, nil
	case "len":
		onString := n.Args[0].Type().Kind == types.String
		return func(root reflect.Value) (any, error) {
			v, err := args[0](root)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return nil, nil
			}
			if onString {
				return int32(len([]rune(v.(string)))), nil
			}
			return int32(reflect.ValueOf(v).Len()), nil
		}, nil
	}
	return nil, fmt.Errorf("eval: unknown builtin %q", n.Name)
}

func compileNewRecord(n *ast.NewRecord) (Fn, error) {
	values := make([]Fn, len(n.Values))
	for i, v := range n.Values {
		fn, err := compile(v)
		if err != nil {
			return nil, err
		}
		values[i] = fn
	}
	names := n.Names
	schema := n.Schema
	return func(root reflect.Value) (any, error) {
		r := record.New(schema)
		for i, fn := range values {
			v, err := fn(root)
			if err != nil {
				return nil, err
			}
			r.Set(names[i], v)
		}
		return r, nil
	}, nil
}
