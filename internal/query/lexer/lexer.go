// Package lexer turns query text into tokens. Tokens are produced lazily,
// one per NextToken call; re-lexing the same text means constructing a new
// Lexer. Positions are byte offsets into the input.
package lexer

import (
	"unicode"
	"unicode/utf8"

	qerrors "github.com/openconf/confq/internal/query/errors"
	"github.com/openconf/confq/internal/query/token"
)

type Lexer struct {
	input        string
	position     int  // current offset in input (bytes)
	readPosition int  // next reading position (bytes)
	ch           rune // current character
	err          *qerrors.LexError
}

func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Err returns the first lexical error encountered, if any. After an error
// NextToken keeps returning ILLEGAL/EOF tokens.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
	} else {
		r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.position = l.readPosition
		l.readPosition += size
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) fail(offset int, msg string) token.Token {
	if l.err == nil {
		l.err = &qerrors.LexError{Offset: offset, Message: msg}
	}
	return token.Token{Type: token.ILLEGAL, Pos: token.Position{Offset: offset}}
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	pos := token.Position{Offset: l.position}

	// Two-character operators are matched greedily before their
	// single-character prefixes.
	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			return l.twoChar(token.EQ, pos)
		}
		return l.fail(l.position, "unexpected character '='")
	case '!':
		if l.peekChar() == '=' {
			return l.twoChar(token.NOT_EQ, pos)
		}
		return l.single(token.BANG, pos)
	case '&':
		if l.peekChar() == '&' {
			return l.twoChar(token.AND, pos)
		}
		return l.fail(l.position, "unexpected character '&'")
	case '|':
		if l.peekChar() == '|' {
			return l.twoChar(token.OR, pos)
		}
		return l.fail(l.position, "unexpected character '|'")
	case '<':
		if l.peekChar() == '=' {
			return l.twoChar(token.LT_EQ, pos)
		}
		if l.peekChar() == '>' {
			// <> is an alias for !=
			tok := l.twoChar(token.NOT_EQ, pos)
			tok.Literal = "<>"
			return tok
		}
		return l.single(token.LT, pos)
	case '>':
		if l.peekChar() == '=' {
			return l.twoChar(token.GT_EQ, pos)
		}
		return l.single(token.GT, pos)
	case '+':
		return l.single(token.PLUS, pos)
	case '-':
		return l.single(token.MINUS, pos)
	case '*':
		return l.single(token.ASTERISK, pos)
	case '/':
		return l.single(token.SLASH, pos)
	case '%':
		return l.single(token.PERCENT, pos)
	case '?':
		return l.single(token.QUESTION, pos)
	case ':':
		return l.single(token.COLON, pos)
	case ',':
		return l.single(token.COMMA, pos)
	case '.':
		return l.single(token.DOT, pos)
	case '(':
		return l.single(token.LPAREN, pos)
	case ')':
		return l.single(token.RPAREN, pos)
	case '{':
		return l.single(token.LBRACE, pos)
	case '}':
		return l.single(token.RBRACE, pos)
	case '[':
		return l.single(token.LBRACKET, pos)
	case ']':
		return l.single(token.RBRACKET, pos)
	case '"':
		return l.readString(pos)
	case '\'':
		return l.readChrLiteral(pos)
	case 0:
		return token.Token{Type: token.EOF, Pos: pos}
	}

	if isLetter(l.ch) {
		lit := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(lit), Literal: lit, Pos: pos}
	}
	if isDigit(l.ch) {
		return l.readNumber(pos)
	}
	return l.fail(pos.Offset, "unexpected character "+string(l.ch))
}

func (l *Lexer) single(typ token.TokenType, pos token.Position) token.Token {
	tok := token.Token{Type: typ, Literal: string(l.ch), Pos: pos}
	l.readChar()
	return tok
}

func (l *Lexer) twoChar(typ token.TokenType, pos token.Position) token.Token {
	l.readChar()
	l.readChar()
	return token.Token{Type: typ, Literal: string(typ), Pos: pos}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber scans decimal integers, hexadecimal integers (0x...), and reals
// with optional fraction and exponent. A trailing type-hint suffix (F, M, U,
// L, UL, D, case-insensitive) is kept in the literal text; the parser maps
// it to a type.
func (l *Lexer) readNumber(pos token.Position) token.Token {
	start := l.position

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		hexStart := l.position
		for isHexDigit(l.ch) {
			l.readChar()
		}
		if l.position == hexStart {
			return l.fail(pos.Offset, "malformed hexadecimal literal")
		}
		l.readSuffix()
		return token.Token{Type: token.INT, Literal: l.input[start:l.position], Pos: pos}
	}

	isReal := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isReal = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isReal = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return l.fail(pos.Offset, "malformed exponent")
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	suffix := l.readSuffix()
	typ := token.INT
	if isReal || suffix == 'f' || suffix == 'm' || suffix == 'd' {
		typ = token.REAL
	}
	return token.Token{Type: typ, Literal: l.input[start:l.position], Pos: pos}
}

// readSuffix consumes a numeric type-hint suffix and returns its first
// letter, folded, or 0.
func (l *Lexer) readSuffix() rune {
	switch l.ch {
	case 'f', 'F':
		l.readChar()
		return 'f'
	case 'm', 'M':
		l.readChar()
		return 'm'
	case 'd', 'D':
		l.readChar()
		return 'd'
	case 'u', 'U':
		l.readChar()
		if l.ch == 'l' || l.ch == 'L' {
			l.readChar()
		}
		return 'u'
	case 'l', 'L':
		l.readChar()
		return 'l'
	}
	return 0
}

func (l *Lexer) readString(pos token.Position) token.Token {
	l.readChar() // consume opening "
	var out []rune
	for l.ch != '"' {
		if l.ch == 0 {
			return l.fail(pos.Offset, "unterminated string literal")
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case '"', '\\':
				out = append(out, l.ch)
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 0:
				return l.fail(pos.Offset, "unterminated string literal")
			default:
				return l.fail(l.position, "unknown escape sequence")
			}
			l.readChar()
			continue
		}
		out = append(out, l.ch)
		l.readChar()
	}
	l.readChar() // consume closing "
	return token.Token{Type: token.STRING, Literal: string(out), Pos: pos}
}

func (l *Lexer) readChrLiteral(pos token.Position) token.Token {
	l.readChar() // consume opening '
	if l.ch == 0 {
		return l.fail(pos.Offset, "unterminated character literal")
	}
	var r rune
	if l.ch == '\\' {
		l.readChar()
		switch l.ch {
		case '\'', '\\':
			r = l.ch
		case 'n':
			r = '\n'
		case 't':
			r = '\t'
		default:
			return l.fail(l.position, "unknown escape sequence")
		}
	} else {
		r = l.ch
	}
	l.readChar()
	if l.ch != '\'' {
		return l.fail(pos.Offset, "unterminated character literal")
	}
	l.readChar() // consume closing '
	return token.Token{Type: token.CHAR, Literal: string(r), Pos: pos}
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
