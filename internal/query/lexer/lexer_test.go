package lexer

import (
	"errors"
	"testing"

	qerrors "github.com/openconf/confq/internal/query/errors"
	"github.com/openconf/confq/internal/query/token"
)

func TestBasicTokens(t *testing.T) {
	input := `+ - ! * / % < > ( ) { } [ ] ? : , .`

	expected := []token.TokenType{
		token.PLUS, token.MINUS, token.BANG, token.ASTERISK, token.SLASH,
		token.PERCENT, token.LT, token.GT, token.LPAREN, token.RPAREN,
		token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET,
		token.QUESTION, token.COLON, token.COMMA, token.DOT,
		token.EOF,
	}

	l := New(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Fatalf("test[%d] - wrong type. expected=%s, got=%s (literal=%q)", i, exp, tok.Type, tok.Literal)
		}
	}
}

func TestMultiCharOperators(t *testing.T) {
	input := `== != <= >= && || <>`

	expected := []struct {
		typ token.TokenType
		lit string
	}{
		{token.EQ, "=="}, {token.NOT_EQ, "!="}, {token.LT_EQ, "<="},
		{token.GT_EQ, ">="}, {token.AND, "&&"}, {token.OR, "||"},
		{token.NOT_EQ, "<>"},
	}

	l := New(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ || tok.Literal != exp.lit {
			t.Fatalf("test[%d] - expected %s(%q), got %s(%q)", i, exp.typ, exp.lit, tok.Type, tok.Literal)
		}
	}
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	input := `and OR Not iif NEW as ASC descending True false NULL`

	expected := []token.TokenType{
		token.AND, token.OR, token.NOT, token.IIF, token.NEW, token.AS,
		token.ASC, token.DESC, token.TRUE, token.FALSE, token.NULL,
	}

	l := New(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Fatalf("test[%d] - expected %s, got %s(%q)", i, exp, tok.Type, tok.Literal)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   token.TokenType
		lit   string
	}{
		{"42", token.INT, "42"},
		{"42L", token.INT, "42L"},
		{"42U", token.INT, "42U"},
		{"42UL", token.INT, "42UL"},
		{"0x2A", token.INT, "0x2A"},
		{"0xFFL", token.INT, "0xFFL"},
		{"3.14", token.REAL, "3.14"},
		{"2.5F", token.REAL, "2.5F"},
		{"9.99M", token.REAL, "9.99M"},
		{"1e9", token.REAL, "1e9"},
		{"1.5e-3", token.REAL, "1.5e-3"},
		{"7M", token.REAL, "7M"},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.lit {
			t.Errorf("%q - expected %s(%q), got %s(%q)", tt.input, tt.typ, tt.lit, tok.Type, tok.Literal)
		}
		if next := l.NextToken(); next.Type != token.EOF {
			t.Errorf("%q - trailing token %s(%q)", tt.input, next.Type, next.Literal)
		}
	}
}

func TestStringsAndChars(t *testing.T) {
	l := New(`"hello world" "tab\there" 'x' '\n'`)

	tok := l.NextToken()
	if tok.Type != token.STRING || tok.Literal != "hello world" {
		t.Fatalf("test 1 - got %s(%q)", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != token.STRING || tok.Literal != "tab\there" {
		t.Fatalf("test 2 - got %s(%q)", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != token.CHAR || tok.Literal != "x" {
		t.Fatalf("test 3 - got %s(%q)", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != token.CHAR || tok.Literal != "\n" {
		t.Fatalf("test 4 - got %s(%q)", tok.Type, tok.Literal)
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`Name == "oops`)
	for i := 0; i < 10; i++ {
		tok := l.NextToken()
		if tok.Type == token.ILLEGAL || tok.Type == token.EOF {
			break
		}
	}
	err := l.Err()
	if err == nil {
		t.Fatal("expected a lex error")
	}
	var lexErr *qerrors.LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected LexError, got %T", err)
	}
	if lexErr.Offset != 8 {
		t.Fatalf("expected offset 8 (opening quote), got %d", lexErr.Offset)
	}
}

func TestTokenOffsets(t *testing.T) {
	l := New(`Id < 10`)
	offsets := []int{0, 3, 5, 7}
	for i, want := range offsets {
		tok := l.NextToken()
		if tok.Pos.Offset != want {
			t.Fatalf("token[%d] %q - expected offset %d, got %d", i, tok.Literal, want, tok.Pos.Offset)
		}
	}
}
