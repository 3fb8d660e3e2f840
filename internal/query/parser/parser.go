// Package parser builds typed expression trees from query text. The grammar
// is parsed by recursive descent with one function per precedence level,
// lowest first: ternary, logical or, logical and, equality, relational,
// additive, multiplicative, unary, then postfix and primary forms. Each
// level loops while the current token is one of its operators, which makes
// binary operators left-associative.
package parser

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/openconf/confq/internal/query/ast"
	qerrors "github.com/openconf/confq/internal/query/errors"
	"github.com/openconf/confq/internal/query/lexer"
	"github.com/openconf/confq/internal/query/record"
	"github.com/openconf/confq/internal/query/token"
	"github.com/openconf/confq/internal/query/types"
)

type Parser struct {
	l        *lexer.Lexer
	cur      token.Token
	peek     token.Token
	rootType types.Type
	syms     *types.Symbols
}

// New prepares a parser for one expression or ordering list over the given
// record type. Construction validates its arguments immediately: empty text
// and nil record types never reach the grammar.
func New(rootType reflect.Type, text string, syms *types.Symbols) (*Parser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &qerrors.ParseError{Offset: 0, Message: "empty expression"}
	}
	rt := types.FromReflect(rootType)
	if rt.Kind != types.Record {
		return nil, fmt.Errorf("parser: record type must be a struct, got %v", rootType)
	}
	p := &Parser{
		l:        lexer.New(text),
		rootType: rt,
		syms:     syms,
	}
	// Prime cur and peek.
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseExpression parses a single expression and coerces its result to want.
// A want of the Invalid kind accepts any result type. The whole input must
// be consumed.
func (p *Parser) ParseExpression(want types.Type) (ast.Expr, error) {
	expr, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.EOF {
		return nil, p.errorf(p.cur.Pos.Offset, "unexpected token %q", p.cur.Literal)
	}
	if want.Kind == types.Invalid {
		return expr, nil
	}
	if !types.Convertible(expr.Type(), want) {
		return nil, p.errorf(0, "expression of type %s cannot be used as %s", expr.Type(), want)
	}
	return coerce(expr, want), nil
}

// ParseOrdering parses a comma-separated ordering list: each entry is an
// expression optionally followed by asc/ascending/desc/descending, default
// ascending. Source order is preserved as primary, secondary, ... key order.
func (p *Parser) ParseOrdering() ([]ast.Ordering, error) {
	var list []ast.Ordering
	for {
		keyPos := p.cur.Pos.Offset
		key, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if !orderable(key.Type()) {
			return nil, p.errorf(keyPos, "expressions of type %s cannot be ordered", key.Type())
		}
		entry := ast.Ordering{Key: key}
		switch p.cur.Type {
		case token.ASC:
			if err := p.next(); err != nil {
				return nil, err
			}
		case token.DESC:
			entry.Desc = true
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		list = append(list, entry)
		if p.cur.Type != token.COMMA {
			break
		}
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if p.cur.Type != token.EOF {
		return nil, p.errorf(p.cur.Pos.Offset, "unexpected token %q", p.cur.Literal)
	}
	return list, nil
}

func orderable(t types.Type) bool {
	switch t.Kind {
	case types.String, types.Char, types.Time, types.Duration, types.Bool:
		return true
	}
	return t.Kind.IsNumeric()
}

func (p *Parser) next() error {
	p.cur = p.peek
	p.peek = p.l.NextToken()
	return p.l.Err()
}

func (p *Parser) expect(typ token.TokenType, what string) error {
	if p.cur.Type != typ {
		return p.errorf(p.cur.Pos.Offset, "expected %s", what)
	}
	return p.next()
}

func (p *Parser) errorf(offset int, format string, args ...any) error {
	return &qerrors.ParseError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// ===== precedence levels =====

func (p *Parser) parseTernary() (ast.Expr, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.QUESTION {
		return cond, nil
	}
	qPos := p.cur.Pos.Offset
	if err := p.next(); err != nil {
		return nil, err
	}
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.COLON, "':' of conditional"); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return p.conditional(qPos, cond, then, els)
}

func (p *Parser) parseOr() (ast.Expr, error) {
	return p.parseBinaryLevel([]token.TokenType{token.OR}, p.parseAnd)
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	return p.parseBinaryLevel([]token.TokenType{token.AND}, p.parseEquality)
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	return p.parseBinaryLevel([]token.TokenType{token.EQ, token.NOT_EQ}, p.parseRelational)
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	return p.parseBinaryLevel([]token.TokenType{token.LT, token.LT_EQ, token.GT, token.GT_EQ}, p.parseAdditive)
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	return p.parseBinaryLevel([]token.TokenType{token.PLUS, token.MINUS}, p.parseMultiplicative)
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	return p.parseBinaryLevel([]token.TokenType{token.ASTERISK, token.SLASH, token.PERCENT}, p.parseUnary)
}

func (p *Parser) parseBinaryLevel(ops []token.TokenType, higher func() (ast.Expr, error)) (ast.Expr, error) {
	left, err := higher()
	if err != nil {
		return nil, err
	}
	for matches(p.cur.Type, ops) {
		op := opName(p.cur.Type)
		opPos := p.cur.Pos.Offset
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := higher()
		if err != nil {
			return nil, err
		}
		left, err = p.binary(opPos, op, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func matches(t token.TokenType, ops []token.TokenType) bool {
	for _, op := range ops {
		if t == op {
			return true
		}
	}
	return false
}

// opName maps operator tokens to catalog keys. Word aliases share their
// symbolic spelling.
func opName(t token.TokenType) string {
	return string(t)
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur.Type {
	case token.MINUS, token.BANG, token.NOT:
		op := "u!"
		if p.cur.Type == token.MINUS {
			op = "u-"
		}
		opPos := p.cur.Pos.Offset
		opText := p.cur.Literal
		if err := p.next(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		r, err := types.Resolve(op, []types.Type{operand.Type()})
		if err != nil {
			return nil, p.resolutionError(err, opPos, opText, operand.Type())
		}
		return &ast.Unary{Op: op, Operand: coerce(operand, r.Params[0]), Typ: r.Result}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) binary(opPos int, op string, left, right ast.Expr) (ast.Expr, error) {
	r, err := types.Resolve(op, []types.Type{left.Type(), right.Type()})
	if err != nil {
		return nil, p.resolutionError(err, opPos, op, left.Type(), right.Type())
	}
	return &ast.Binary{
		Op:    op,
		Left:  coerce(left, r.Params[0]),
		Right: coerce(right, r.Params[1]),
		Typ:   r.Result,
	}, nil
}

func (p *Parser) conditional(qPos int, cond, then, els ast.Expr) (ast.Expr, error) {
	if !types.Convertible(cond.Type(), types.Of(types.Bool)) {
		return nil, p.errorf(qPos, "condition of type %s is not boolean", cond.Type())
	}
	common, ok := types.Common(then.Type(), els.Type())
	if !ok {
		return nil, &qerrors.IncompatibleOperandsError{
			Offset:   qPos,
			Operator: "?:",
			Operands: []string{then.Type().String(), els.Type().String()},
		}
	}
	return &ast.Conditional{
		Cond: coerce(cond, types.Of(types.Bool)),
		Then: coerce(then, common),
		Else: coerce(els, common),
		Typ:  common,
	}, nil
}

func (p *Parser) resolutionError(err error, offset int, op string, operands ...types.Type) error {
	names := make([]string, len(operands))
	for i, t := range operands {
		names[i] = t.String()
	}
	if err == types.ErrAmbiguous {
		return &qerrors.AmbiguousOperatorError{Offset: offset, Operator: op, Operands: names}
	}
	return &qerrors.IncompatibleOperandsError{Offset: offset, Operator: op, Operands: names}
}

// coerce wraps expr in a Convert node unless its type already matches
// exactly.
func coerce(expr ast.Expr, to types.Type) ast.Expr {
	from := expr.Type()
	if from.Kind == to.Kind && from.Nullable == to.Nullable {
		return expr
	}
	return &ast.Convert{Operand: expr, Typ: to}
}

// ===== postfix: member access, indexers =====

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Type {
		case token.DOT:
			if err := p.next(); err != nil {
				return nil, err
			}
			if p.cur.Type != token.IDENT {
				return nil, p.errorf(p.cur.Pos.Offset, "expected member name after '.'")
			}
			name := p.cur.Literal
			namePos := p.cur.Pos.Offset
			if err := p.next(); err != nil {
				return nil, err
			}
			m, err := p.member(namePos, expr, name)
			if err != nil {
				return nil, err
			}
			expr = m
		case token.LBRACKET:
			openPos := p.cur.Pos.Offset
			if err := p.next(); err != nil {
				return nil, err
			}
			key, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if err := p.expect(token.RBRACKET, "']'"); err != nil {
				return nil, err
			}
			idx, err := p.index(openPos, expr, key)
			if err != nil {
				return nil, err
			}
			expr = idx
		default:
			return expr, nil
		}
	}
}

func (p *Parser) member(offset int, target ast.Expr, name string) (ast.Expr, error) {
	t, index, ok := target.Type().Member(name)
	if !ok {
		return nil, &qerrors.UnknownMemberError{Offset: offset, Member: name, Type: target.Type().String()}
	}
	if t.Kind == types.Invalid {
		return nil, p.errorf(offset, "member %q has an unsupported type", name)
	}
	return &ast.Member{Target: target, Name: name, Index: index, Typ: t}, nil
}

func (p *Parser) index(offset int, target ast.Expr, key ast.Expr) (ast.Expr, error) {
	switch key.Type().Kind {
	case types.Int, types.UInt, types.Long, types.ULong:
	default:
		return nil, p.errorf(offset, "index of type %s is not integral", key.Type())
	}
	var elem types.Type
	switch target.Type().Kind {
	case types.Slice:
		elem = target.Type().Elem()
		if elem.Kind == types.Invalid {
			return nil, p.errorf(offset, "elements of %s have an unsupported type", target.Type())
		}
	case types.String:
		elem = types.Of(types.Char)
	default:
		return nil, p.errorf(offset, "type %s cannot be indexed", target.Type())
	}
	return &ast.Index{Target: target, Key: coerce(key, types.Of(types.Long)), Typ: elem}, nil
}

// ===== primary =====

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur
	switch tok.Type {
	case token.INT, token.REAL:
		if err := p.next(); err != nil {
			return nil, err
		}
		return p.numberLiteral(tok)
	case token.STRING:
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: tok.Literal, Typ: types.Of(types.String)}, nil
	case token.CHAR:
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: []rune(tok.Literal)[0], Typ: types.Of(types.Char)}, nil
	case token.TRUE, token.FALSE:
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: tok.Type == token.TRUE, Typ: types.Of(types.Bool)}, nil
	case token.NULL:
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: nil, Typ: types.Of(types.Null)}, nil
	case token.LPAREN:
		if err := p.next(); err != nil {
			return nil, err
		}
		expr, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case token.LBRACE:
		return p.parsePlaceholder()
	case token.IIF:
		return p.parseIif()
	case token.NEW:
		return p.parseNew()
	case token.IDENT:
		return p.parseIdent()
	case token.EOF:
		return nil, p.errorf(tok.Pos.Offset, "unexpected end of expression")
	}
	return nil, p.errorf(tok.Pos.Offset, "unexpected token %q", tok.Literal)
}

// parsePlaceholder handles {n} substitution tokens bound to positional
// external values.
func (p *Parser) parsePlaceholder() (ast.Expr, error) {
	openPos := p.cur.Pos.Offset
	if err := p.next(); err != nil {
		return nil, err
	}
	if p.cur.Type != token.INT {
		return nil, p.errorf(p.cur.Pos.Offset, "expected placeholder index after '{'")
	}
	n, err := strconv.Atoi(p.cur.Literal)
	if err != nil {
		return nil, p.errorf(p.cur.Pos.Offset, "invalid placeholder index %q", p.cur.Literal)
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expect(token.RBRACE, "'}'"); err != nil {
		return nil, err
	}
	v, ok := p.syms.At(n)
	if !ok {
		return nil, p.errorf(openPos, "no value supplied for placeholder {%d}", n)
	}
	return externalLiteral(v)
}

func externalLiteral(v any) (ast.Expr, error) {
	cv, t := types.CanonicalValue(v)
	if t.Kind == types.Invalid || t.Kind == types.Record || t.Kind == types.Slice {
		return nil, fmt.Errorf("parser: unsupported external value of type %T", v)
	}
	return &ast.Literal{Value: cv, Typ: t}, nil
}

func (p *Parser) parseIif() (ast.Expr, error) {
	iifPos := p.cur.Pos.Offset
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expect(token.LPAREN, "'(' after iif"); err != nil {
		return nil, err
	}
	cond, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.COMMA, "','"); err != nil {
		return nil, err
	}
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.COMMA, "','"); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return p.conditional(iifPos, cond, then, els)
}

// parseNew handles projections: new(expr as Name, Member, ...). A name is
// required unless it can be inferred from a member access or bare
// identifier.
func (p *Parser) parseNew() (ast.Expr, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expect(token.LPAREN, "'(' after new"); err != nil {
		return nil, err
	}
	var names []string
	var values []ast.Expr
	var fields []record.Field
	for {
		exprPos := p.cur.Pos.Offset
		expr, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		name := ""
		if p.cur.Type == token.AS {
			if err := p.next(); err != nil {
				return nil, err
			}
			if p.cur.Type != token.IDENT {
				return nil, p.errorf(p.cur.Pos.Offset, "expected field name after 'as'")
			}
			name = p.cur.Literal
			if err := p.next(); err != nil {
				return nil, err
			}
		} else if m, ok := expr.(*ast.Member); ok {
			name = m.Name
		} else {
			return nil, p.errorf(exprPos, "projection field needs a name, add 'as'")
		}
		names = append(names, name)
		values = append(values, expr)
		fields = append(fields, record.Field{Name: name, Type: expr.Type()})
		if p.cur.Type != token.COMMA {
			break
		}
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	closePos := p.cur.Pos.Offset
	if err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	schema, err := record.Compile(fields)
	if err != nil {
		return nil, p.errorf(closePos, "%v", err)
	}
	return &ast.NewRecord{Names: names, Values: values, Schema: schema}, nil
}

// parseIdent resolves a bare identifier: a named external value first, then
// a member of the root record, then a builtin function when followed by a
// call. Anything else is an unknown identifier.
func (p *Parser) parseIdent() (ast.Expr, error) {
	name := p.cur.Literal
	namePos := p.cur.Pos.Offset
	if err := p.next(); err != nil {
		return nil, err
	}
	if v, ok := p.syms.Lookup(name); ok {
		return externalLiteral(v)
	}
	if p.cur.Type != token.LPAREN {
		if t, index, ok := p.rootType.Member(name); ok {
			if t.Kind == types.Invalid {
				return nil, p.errorf(namePos, "member %q has an unsupported type", name)
			}
			return &ast.Member{Target: &ast.Root{Typ: p.rootType}, Name: name, Index: index, Typ: t}, nil
		}
		return nil, p.errorf(namePos, "unknown identifier %q", name)
	}
	return p.parseCall(namePos, name)
}

// Builtin calls form a closed set; arbitrary member invocation is not part
// of the language.
func (p *Parser) parseCall(namePos int, name string) (ast.Expr, error) {
	if err := p.next(); err != nil { // consume '('
		return nil, err
	}
	var args []ast.Expr
	if p.cur.Type != token.RPAREN {
		for {
			arg, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.Type != token.COMMA {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}

	switch strings.ToLower(name) {
	case "datetime":
		if len(args) != 1 || args[0].Type().Kind != types.String {
			return nil, p.errorf(namePos, "DateTime takes one string argument")
		}
		return &ast.Call{Name: "datetime", Args: args, Typ: types.Of(types.Time)}, nil
	case "len":
		if len(args) != 1 {
			return nil, p.errorf(namePos, "len takes one argument")
		}
		switch args[0].Type().Kind {
		case types.String, types.Slice:
		default:
			return nil, p.errorf(namePos, "len is not defined for type %s", args[0].Type())
		}
		return &ast.Call{Name: "len", Args: args, Typ: types.Of(types.Int)}, nil
	}
	return nil, &qerrors.UnknownMemberError{Offset: namePos, Member: name, Type: p.rootType.String()}
}

// numberLiteral converts a numeric token to a typed literal. Suffixes map to
// type hints: F float, M decimal, D double, U unsigned, L long, UL ulong.
// Unsuffixed integers take the narrowest signed type that holds them.
func (p *Parser) numberLiteral(tok token.Token) (ast.Expr, error) {
	text := tok.Literal
	suffix := ""
	for len(text) > 0 {
		c := text[len(text)-1]
		isLetter := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
		// In hex literals only L/U can be suffixes; F and D are digits.
		if isHexBody(text) {
			isLetter = c == 'l' || c == 'L' || c == 'u' || c == 'U'
		}
		if isLetter {
			suffix = strings.ToLower(string(c)) + suffix
			text = text[:len(text)-1]
			continue
		}
		break
	}
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		u, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return nil, p.errorf(tok.Pos.Offset, "invalid hexadecimal literal %q", tok.Literal)
		}
		return integerLiteral(u, suffix, tok, p)
	}

	if tok.Type == token.REAL || suffix == "f" || suffix == "m" || suffix == "d" ||
		strings.ContainsAny(text, ".eE") {
		switch suffix {
		case "m":
			d, err := decimal.NewFromString(text)
			if err != nil {
				return nil, p.errorf(tok.Pos.Offset, "invalid decimal literal %q", tok.Literal)
			}
			return &ast.Literal{Value: d, Typ: types.Of(types.Decimal)}, nil
		case "f":
			f, err := strconv.ParseFloat(text, 32)
			if err != nil {
				return nil, p.errorf(tok.Pos.Offset, "invalid real literal %q", tok.Literal)
			}
			return &ast.Literal{Value: float32(f), Typ: types.Of(types.Float)}, nil
		default:
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, p.errorf(tok.Pos.Offset, "invalid real literal %q", tok.Literal)
			}
			return &ast.Literal{Value: f, Typ: types.Of(types.Double)}, nil
		}
	}

	u, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return nil, p.errorf(tok.Pos.Offset, "invalid integer literal %q", tok.Literal)
	}
	return integerLiteral(u, suffix, tok, p)
}

func integerLiteral(u uint64, suffix string, tok token.Token, p *Parser) (ast.Expr, error) {
	switch suffix {
	case "u":
		if u <= 1<<32-1 {
			return &ast.Literal{Value: uint32(u), Typ: types.Of(types.UInt)}, nil
		}
		return &ast.Literal{Value: u, Typ: types.Of(types.ULong)}, nil
	case "ul", "lu":
		return &ast.Literal{Value: u, Typ: types.Of(types.ULong)}, nil
	case "l":
		if u > 1<<63-1 {
			return nil, p.errorf(tok.Pos.Offset, "integer literal %q overflows long", tok.Literal)
		}
		return &ast.Literal{Value: int64(u), Typ: types.Of(types.Long)}, nil
	case "":
		if u <= 1<<31-1 {
			return &ast.Literal{Value: int32(u), Typ: types.Of(types.Int)}, nil
		}
		if u <= 1<<63-1 {
			return &ast.Literal{Value: int64(u), Typ: types.Of(types.Long)}, nil
		}
		return &ast.Literal{Value: u, Typ: types.Of(types.ULong)}, nil
	}
	return nil, p.errorf(tok.Pos.Offset, "invalid numeric suffix on %q", tok.Literal)
}

// isHexBody guards suffix stripping against eating hex digits: the literal
// "0x1F" keeps its F.
func isHexBody(text string) bool {
	return strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X")
}
