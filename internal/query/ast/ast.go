// Package ast defines the typed expression trees produced by the parser.
// Trees are immutable once built; parents own their children exclusively and
// nodes are only ever composed into larger trees or handed to the evaluator.
package ast

import (
	"github.com/openconf/confq/internal/query/record"
	"github.com/openconf/confq/internal/query/types"
)

// Expr is the base interface for all expression nodes. Every node knows its
// static type, fixed during parsing by the overload resolver.
type Expr interface {
	Type() types.Type
}

// Literal is a constant value: a source literal, or an external value bound
// through a placeholder or named parameter. Value uses the canonical runtime
// representation for its kind (int32, int64, float64, decimal.Decimal, ...).
type Literal struct {
	Value any
	Typ   types.Type
}

func (l *Literal) Type() types.Type { return l.Typ }

// Root references the record the expression is evaluated against.
type Root struct {
	Typ types.Type
}

func (r *Root) Type() types.Type { return r.Typ }

// Member is a field access on a record. Index is the reflect field index
// path resolved at parse time.
type Member struct {
	Target Expr
	Name   string
	Index  []int
	Typ    types.Type
}

func (m *Member) Type() types.Type { return m.Typ }

// Index is an indexer application on a slice, array or string.
type Index struct {
	Target Expr
	Key    Expr
	Typ    types.Type
}

func (i *Index) Type() types.Type { return i.Typ }

// Unary is !x, -x and their word forms.
type Unary struct {
	Op      string
	Operand Expr
	Typ     types.Type
}

func (u *Unary) Type() types.Type { return u.Typ }

// Binary is a binary operation with both operands already converted to the
// resolved signature's parameter types.
type Binary struct {
	Op          string
	Left, Right Expr
	Typ         types.Type
}

func (b *Binary) Type() types.Type { return b.Typ }

// Conditional is cond ? then : else, also produced for iif(cond,a,b).
type Conditional struct {
	Cond, Then, Else Expr
	Typ              types.Type
}

func (c *Conditional) Type() types.Type { return c.Typ }

// Call applies one of the closed set of builtin functions.
type Call struct {
	Name string
	Args []Expr
	Typ  types.Type
}

func (c *Call) Type() types.Type { return c.Typ }

// Convert adapts its operand to the target type Typ. The parser inserts one
// wherever an operand's static type does not exactly match the resolved
// signature parameter.
type Convert struct {
	Operand Expr
	Typ     types.Type
}

func (c *Convert) Type() types.Type { return c.Typ }

// NewRecord is a projection: new(expr as Name, ...). Values are evaluated in
// declaration order and stored in the compiled schema's canonical field
// order.
type NewRecord struct {
	Names  []string
	Values []Expr
	Schema *record.Schema
}

func (n *NewRecord) Type() types.Type { return types.Of(types.Record) }

// Ordering is one sort key of an ordering list, in source order.
type Ordering struct {
	Key  Expr
	Desc bool
}
