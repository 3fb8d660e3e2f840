// Package query is the entry point of the dynamic query language: it turns
// textual predicates, orderings and projections into compiled, strongly
// typed functions over an entity type, and applies them to in-memory
// sequences with filter, stable multi-key sort and pagination.
//
// Parsing either succeeds completely or fails with one of the errors from
// internal/query/errors; there is no partial success and nothing is retried.
package query

import (
	"reflect"
	"sort"

	"github.com/openconf/confq/internal/query/ast"
	"github.com/openconf/confq/internal/query/eval"
	"github.com/openconf/confq/internal/query/parser"
	"github.com/openconf/confq/internal/query/record"
	"github.com/openconf/confq/internal/query/types"
)

// Predicate is a compiled boolean expression over T.
type Predicate[T any] struct {
	c *eval.Compiled
}

// ParsePredicate compiles a textual predicate against T's fields. Positional
// values bind to {0}, {1}, ... placeholders in the text.
func ParsePredicate[T any](text string, values ...any) (*Predicate[T], error) {
	return ParsePredicateNamed[T](text, nil, values...)
}

// ParsePredicateNamed is ParsePredicate with additional named external
// values, resolved case-insensitively before record members.
func ParsePredicateNamed[T any](text string, named map[string]any, values ...any) (*Predicate[T], error) {
	expr, err := parse[T](text, named, values, types.Of(types.Bool))
	if err != nil {
		return nil, err
	}
	c, err := eval.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Predicate[T]{c: c}, nil
}

// Matches evaluates the predicate against one record.
func (p *Predicate[T]) Matches(v T) (bool, error) {
	return p.c.EvalBool(v)
}

// Tree exposes the expression tree, mainly for tests and diagnostics.
func (p *Predicate[T]) Tree() ast.Expr { return p.c.Tree }

// Expr is a compiled expression of any result type over T, used for
// projections and computed values.
type Expr[T any] struct {
	c *eval.Compiled
}

// ParseExpr compiles a textual expression without constraining its result
// type.
func ParseExpr[T any](text string, values ...any) (*Expr[T], error) {
	expr, err := parse[T](text, nil, values, types.Type{})
	if err != nil {
		return nil, err
	}
	c, err := eval.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Expr[T]{c: c}, nil
}

// Eval evaluates the expression against one record. Projection expressions
// yield *record.Record values.
func (e *Expr[T]) Eval(v T) (any, error) {
	return e.c.Eval(v)
}

// Tree exposes the expression tree.
func (e *Expr[T]) Tree() ast.Expr { return e.c.Tree }

// Schema returns the record shape produced by a projection expression, or
// nil when the expression is not a projection.
func (e *Expr[T]) Schema() *record.Schema {
	if n, ok := e.c.Tree.(*ast.NewRecord); ok {
		return n.Schema
	}
	return nil
}

type orderKey struct {
	c    *eval.Compiled
	kind types.Kind
	desc bool
}

// Ordering is a compiled multi-key sort: the first key is primary, each
// following key breaks ties among elements equal on all prior keys.
type Ordering[T any] struct {
	keys []orderKey
}

// ParseOrdering compiles an ordering list such as "Status, ConferenceId
// desc".
func ParseOrdering[T any](text string, values ...any) (*Ordering[T], error) {
	var zero T
	p, err := parser.New(reflect.TypeOf(zero), text, types.NewSymbols(nil, values))
	if err != nil {
		return nil, err
	}
	list, err := p.ParseOrdering()
	if err != nil {
		return nil, err
	}
	o := &Ordering[T]{}
	for _, entry := range list {
		c, err := eval.Compile(entry.Key)
		if err != nil {
			return nil, err
		}
		o.keys = append(o.keys, orderKey{c: c, kind: entry.Key.Type().Kind, desc: entry.Desc})
	}
	return o, nil
}

// Sort orders items in place, stably: elements equal on every key keep
// their original relative order. Null key values sort first in ascending
// order.
func (o *Ordering[T]) Sort(items []T) error {
	if len(o.keys) == 0 || len(items) < 2 {
		return nil
	}
	// Decorate: evaluate every key once per element so the comparator stays
	// error-free.
	keys := make([][]any, len(items))
	for i := range items {
		keys[i] = make([]any, len(o.keys))
		for j, k := range o.keys {
			v, err := k.c.Eval(items[i])
			if err != nil {
				return err
			}
			keys[i][j] = v
		}
	}
	var cmpErr error
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for j, k := range o.keys {
			c, err := compareKeys(keys[idx[a]][j], keys[idx[b]][j], k.kind)
			if err != nil {
				if cmpErr == nil {
					cmpErr = err
				}
				return false
			}
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if cmpErr != nil {
		return cmpErr
	}
	out := make([]T, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	copy(items, out)
	return nil
}

func compareKeys(a, b any, k types.Kind) (int, error) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		}
		return 1, nil
	}
	return eval.Compare(a, b, k)
}

func parse[T any](text string, named map[string]any, values []any, want types.Type) (ast.Expr, error) {
	var zero T
	p, err := parser.New(reflect.TypeOf(zero), text, types.NewSymbols(named, values))
	if err != nil {
		return nil, err
	}
	return p.ParseExpression(want)
}

// Spec describes one find-all request over a sequence: optional predicate,
// optional ordering, then either a page or a plain result limit.
type Spec[T any] struct {
	Predicate *Predicate[T]
	Order     *Ordering[T]
	Limit     int // take first N; ignored when paging is set
	Page      int // 1-based page index
	PageSize  int
}

// Apply runs a Spec against items: filter first, then stable sort, then
// pagination or limit, in that order and never earlier. The input slice is
// not modified.
func Apply[T any](items []T, spec Spec[T]) ([]T, error) {
	out := make([]T, 0, len(items))
	if spec.Predicate != nil {
		for _, it := range items {
			ok, err := spec.Predicate.Matches(it)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, it)
			}
		}
	} else {
		out = append(out, items...)
	}
	if spec.Order != nil {
		if err := spec.Order.Sort(out); err != nil {
			return nil, err
		}
	}
	if spec.Page > 0 && spec.PageSize > 0 {
		skip := (spec.Page - 1) * spec.PageSize
		if skip >= len(out) {
			return []T{}, nil
		}
		out = out[skip:]
		if len(out) > spec.PageSize {
			out = out[:spec.PageSize]
		}
		return out, nil
	}
	if spec.Limit > 0 && len(out) > spec.Limit {
		out = out[:spec.Limit]
	}
	return out, nil
}

// Count returns the number of items matching pred; a nil pred counts all.
func Count[T any](items []T, pred *Predicate[T]) (int, error) {
	if pred == nil {
		return len(items), nil
	}
	n := 0
	for _, it := range items {
		ok, err := pred.Matches(it)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// Exists reports whether any item matches pred, stopping at the first
// match.
func Exists[T any](items []T, pred *Predicate[T]) (bool, error) {
	if pred == nil {
		return len(items) > 0, nil
	}
	for _, it := range items {
		ok, err := pred.Matches(it)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
