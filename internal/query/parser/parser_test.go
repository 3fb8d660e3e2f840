package parser

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/openconf/confq/internal/query/ast"
	qerrors "github.com/openconf/confq/internal/query/errors"
	"github.com/openconf/confq/internal/query/types"
)

type conference struct {
	ConferenceId int
	Status       int
	Name         string
	Fee          decimal.Decimal
	City         *string
	StartsAt     time.Time
	Tags         []string
}

var confType = reflect.TypeOf(conference{})

func parseExpr(t *testing.T, text string, want types.Type, values ...any) ast.Expr {
	t.Helper()
	p, err := New(confType, text, types.NewSymbols(nil, values))
	if err != nil {
		t.Fatalf("New(%q): %v", text, err)
	}
	expr, err := p.ParseExpression(want)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return expr
}

func TestPredicateTypesAndConversions(t *testing.T) {
	expr := parseExpr(t, "ConferenceId < 100", types.Of(types.Bool))
	bin, ok := expr.(*ast.Binary)
	if !ok {
		t.Fatalf("expected Binary root, got %T", expr)
	}
	if bin.Typ.Kind != types.Bool {
		t.Fatalf("expected bool result, got %v", bin.Typ)
	}
	// ConferenceId is a Go int (long); the int literal 100 must have been
	// widened to match.
	if bin.Left.Type().Kind != types.Long {
		t.Fatalf("expected long left operand, got %v", bin.Left.Type())
	}
	if _, ok := bin.Right.(*ast.Convert); !ok {
		t.Fatalf("expected Convert around literal, got %T", bin.Right)
	}
}

func TestLeftAssociativity(t *testing.T) {
	// 10 - 4 - 3 must parse as (10 - 4) - 3.
	expr := parseExpr(t, "10 - 4 - 3", types.Type{})
	outer, ok := expr.(*ast.Binary)
	if !ok {
		t.Fatalf("expected Binary root, got %T", expr)
	}
	if _, ok := outer.Left.(*ast.Binary); !ok {
		t.Fatalf("expected nested Binary on the left, got %T", outer.Left)
	}
	if _, ok := outer.Right.(*ast.Binary); ok {
		t.Fatal("right operand must be a leaf for left-associative parse")
	}
}

func TestPrecedence(t *testing.T) {
	// && binds looser than ==, which binds looser than +.
	expr := parseExpr(t, "Status == 1 && ConferenceId + 1 < 10", types.Of(types.Bool))
	root, ok := expr.(*ast.Binary)
	if !ok || root.Op != "&&" {
		t.Fatalf("expected && at root, got %T", expr)
	}
}

func TestWordAliases(t *testing.T) {
	expr := parseExpr(t, "Status == 1 or not (Status == 2) and Status <> 3", types.Of(types.Bool))
	root := expr.(*ast.Binary)
	if root.Op != "||" {
		t.Fatalf("'or' must resolve to ||, got %q", root.Op)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	const text = `Status == 1 && (Name == "go" || ConferenceId * 2 >= 10)`
	a := parseExpr(t, text, types.Of(types.Bool))
	b := parseExpr(t, text, types.Of(types.Bool))
	sameGoType := cmp.Comparer(func(x, y reflect.Type) bool { return x == y })
	if diff := cmp.Diff(a, b, sameGoType); diff != "" {
		t.Fatalf("identical input must parse identically (-first +second):\n%s", diff)
	}
}

func TestErrorOffsetAtEndOfInput(t *testing.T) {
	text := "ConferenceId <"
	p, err := New(confType, text, types.NewSymbols(nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.ParseExpression(types.Of(types.Bool))
	var parseErr *qerrors.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Offset != len(text) {
		t.Fatalf("expected offset %d (end of input), got %d", len(text), parseErr.Offset)
	}
}

func TestUnknownIdentifier(t *testing.T) {
	p, _ := New(confType, "Bogus == 1", types.NewSymbols(nil, nil))
	_, err := p.ParseExpression(types.Of(types.Bool))
	var parseErr *qerrors.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Offset != 0 {
		t.Fatalf("expected offset 0, got %d", parseErr.Offset)
	}
}

func TestUnknownMember(t *testing.T) {
	p, _ := New(confType, "StartsAt.Bogus == 1", types.NewSymbols(nil, nil))
	_, err := p.ParseExpression(types.Of(types.Bool))
	var memberErr *qerrors.UnknownMemberError
	if !errors.As(err, &memberErr) {
		t.Fatalf("expected UnknownMemberError, got %v", err)
	}
	if memberErr.Member != "Bogus" {
		t.Fatalf("expected member Bogus, got %q", memberErr.Member)
	}
}

func TestIncompatibleOperands(t *testing.T) {
	p, _ := New(confType, `Name + 1`, types.NewSymbols(nil, nil))
	_, err := p.ParseExpression(types.Type{})
	var opErr *qerrors.IncompatibleOperandsError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected IncompatibleOperandsError, got %v", err)
	}
}

func TestEmptyTextFailsAtBoundary(t *testing.T) {
	_, err := New(confType, "   ", types.NewSymbols(nil, nil))
	var parseErr *qerrors.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for empty text, got %v", err)
	}
}

func TestResultTypeCoercion(t *testing.T) {
	p, _ := New(confType, "ConferenceId + 1", types.NewSymbols(nil, nil))
	if _, err := p.ParseExpression(types.Of(types.Bool)); err == nil {
		t.Fatal("arithmetic expression must not be accepted as predicate")
	}
}

func TestPlaceholders(t *testing.T) {
	expr := parseExpr(t, "ConferenceId < {0}", types.Of(types.Bool), int64(100))
	bin := expr.(*ast.Binary)
	if bin.Left.Type().Kind != types.Long || bin.Right.Type().Kind != types.Long {
		t.Fatalf("expected long comparison, got %v and %v", bin.Left.Type(), bin.Right.Type())
	}

	p, _ := New(confType, "ConferenceId < {1}", types.NewSymbols(nil, []any{1}))
	_, err := p.ParseExpression(types.Of(types.Bool))
	var parseErr *qerrors.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("missing placeholder value must be a ParseError, got %v", err)
	}
}

func TestNamedValues(t *testing.T) {
	p, err := New(confType, "Status == minStatus", types.NewSymbols(map[string]any{"MinStatus": 2}, nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.ParseExpression(types.Of(types.Bool)); err != nil {
		t.Fatalf("named value lookup must be case-insensitive: %v", err)
	}
}

func TestNullComparison(t *testing.T) {
	expr := parseExpr(t, "City == null", types.Of(types.Bool))
	if expr.Type().Kind != types.Bool || expr.Type().Nullable {
		t.Fatalf("null equality must yield plain bool, got %v", expr.Type())
	}
}

func TestNumericLiterals(t *testing.T) {
	tests := []struct {
		text string
		kind types.Kind
	}{
		{"42", types.Int},
		{"2147483648", types.Long},
		{"42L", types.Long},
		{"42U", types.UInt},
		{"42UL", types.ULong},
		{"0x2A", types.Int},
		{"3.14", types.Double},
		{"2.5F", types.Float},
		{"9.99M", types.Decimal},
		{"1e9", types.Double},
	}
	for _, tt := range tests {
		expr := parseExpr(t, tt.text, types.Type{})
		if expr.Type().Kind != tt.kind {
			t.Errorf("%q - expected kind %v, got %v", tt.text, tt.kind, expr.Type().Kind)
		}
	}
}

func TestTernaryAndIif(t *testing.T) {
	expr := parseExpr(t, `Status == 2 ? "live" : "other"`, types.Type{})
	if expr.Type().Kind != types.String {
		t.Fatalf("expected string result, got %v", expr.Type())
	}
	expr = parseExpr(t, `iif(Status == 2, 1, 0L)`, types.Type{})
	if expr.Type().Kind != types.Long {
		t.Fatalf("iif branches must find a common type, got %v", expr.Type())
	}
}

func TestIndexerTyping(t *testing.T) {
	expr := parseExpr(t, "Tags[0]", types.Type{})
	if expr.Type().Kind != types.String {
		t.Fatalf("expected string element, got %v", expr.Type())
	}
	expr = parseExpr(t, "Name[0] == 'g'", types.Of(types.Bool))
	if expr.Type().Kind != types.Bool {
		t.Fatalf("expected bool, got %v", expr.Type())
	}
}

func TestProjectionParsing(t *testing.T) {
	expr := parseExpr(t, "new(Name, Fee as Price)", types.Type{})
	proj, ok := expr.(*ast.NewRecord)
	if !ok {
		t.Fatalf("expected NewRecord, got %T", expr)
	}
	if proj.Schema.NumFields() != 2 {
		t.Fatalf("expected 2 fields, got %d", proj.Schema.NumFields())
	}
	if _, ok := proj.Schema.FieldIndex("price"); !ok {
		t.Fatal("renamed field Price missing from schema")
	}

	p, _ := New(confType, "new(Status + 1)", types.NewSymbols(nil, nil))
	if _, err := p.ParseExpression(types.Type{}); err == nil {
		t.Fatal("unnamed computed projection field must fail")
	}
}

func TestOrderingList(t *testing.T) {
	p, err := New(confType, "Status, ConferenceId desc", types.NewSymbols(nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	list, err := p.ParseOrdering()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(list))
	}
	if list[0].Desc {
		t.Fatal("first key must default to ascending")
	}
	if !list[1].Desc {
		t.Fatal("second key must be descending")
	}

	p, _ = New(confType, "Status asc,", types.NewSymbols(nil, nil))
	if _, err := p.ParseOrdering(); err == nil {
		t.Fatal("trailing comma must fail")
	}
}
