// Package filter is a fluent builder for parameterized SQL conditions,
// consumed by the repository layer. It never splices values into SQL text:
// every comparison renders as "column op ?" with the value passed as a bind
// argument.
package filter

import (
	"fmt"
	"strings"
)

// Expr is a composable condition. SQL returns the fragment with '?'
// placeholders, Args the bind values in matching order.
type Expr interface {
	SQL() string
	Args() []any
}

// Column starts a condition on a database column.
func Column(name string) *ColumnRef {
	return &ColumnRef{name: name}
}

// ColumnRef is a column waiting for its comparison.
type ColumnRef struct {
	name string
}

func (c *ColumnRef) cond(op string, v any) Expr {
	return &cond{column: c.name, op: op, value: v}
}

func (c *ColumnRef) Eq(v any) Expr  { return c.cond("=", v) }
func (c *ColumnRef) Ne(v any) Expr  { return c.cond("<>", v) }
func (c *ColumnRef) Lt(v any) Expr  { return c.cond("<", v) }
func (c *ColumnRef) Lte(v any) Expr { return c.cond("<=", v) }
func (c *ColumnRef) Gt(v any) Expr  { return c.cond(">", v) }
func (c *ColumnRef) Gte(v any) Expr { return c.cond(">=", v) }

// Like renders a LIKE comparison; the caller supplies any wildcards.
func (c *ColumnRef) Like(pattern string) Expr { return c.cond("LIKE", pattern) }

// In renders an IN list. An empty list renders as a always-false condition,
// keeping the overall expression well-formed.
func (c *ColumnRef) In(values ...any) Expr {
	return &inCond{column: c.name, values: values}
}

// IsNull renders an IS NULL test.
func (c *ColumnRef) IsNull() Expr { return &nullCond{column: c.name, negate: false} }

// NotNull renders an IS NOT NULL test.
func (c *ColumnRef) NotNull() Expr { return &nullCond{column: c.name, negate: true} }

type cond struct {
	column string
	op     string
	value  any
}

func (c *cond) SQL() string { return c.column + " " + c.op + " ?" }
func (c *cond) Args() []any { return []any{c.value} }

type inCond struct {
	column string
	values []any
}

func (c *inCond) SQL() string {
	if len(c.values) == 0 {
		return "1 = 0"
	}
	return c.column + " IN (" + strings.TrimSuffix(strings.Repeat("?,", len(c.values)), ",") + ")"
}

func (c *inCond) Args() []any {
	if len(c.values) == 0 {
		return nil
	}
	return c.values
}

type nullCond struct {
	column string
	negate bool
}

func (c *nullCond) SQL() string {
	if c.negate {
		return c.column + " IS NOT NULL"
	}
	return c.column + " IS NULL"
}

func (c *nullCond) Args() []any { return nil }

// And combines conditions conjunctively.
func And(exprs ...Expr) Expr { return &junction{op: "AND", exprs: exprs} }

// Or combines conditions disjunctively.
func Or(exprs ...Expr) Expr { return &junction{op: "OR", exprs: exprs} }

// Not negates a condition.
func Not(e Expr) Expr { return &negation{e} }

type junction struct {
	op    string
	exprs []Expr
}

func (j *junction) SQL() string {
	if len(j.exprs) == 0 {
		return "1 = 1"
	}
	parts := make([]string, len(j.exprs))
	for i, e := range j.exprs {
		parts[i] = "(" + e.SQL() + ")"
	}
	return strings.Join(parts, " "+j.op+" ")
}

func (j *junction) Args() []any {
	var args []any
	for _, e := range j.exprs {
		args = append(args, e.Args()...)
	}
	return args
}

type negation struct {
	expr Expr
}

func (n *negation) SQL() string { return "NOT (" + n.expr.SQL() + ")" }
func (n *negation) Args() []any { return n.expr.Args() }

// Order is one ORDER BY entry.
type Order struct {
	Column string
	Desc   bool
}

// OrderSQL renders an ordered list of sort keys, primary key first.
func OrderSQL(orders []Order) string {
	if len(orders) == 0 {
		return ""
	}
	parts := make([]string, len(orders))
	for i, o := range orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s %s", o.Column, dir)
	}
	return strings.Join(parts, ", ")
}
