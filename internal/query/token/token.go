package token

type TokenType string

// Position is a location in the query text. Offset is the 0-based byte
// offset, which is what error messages report for caret diagnostics.
type Position struct {
	Offset int
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

const (
	// Special
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers + literals
	IDENT   TokenType = "IDENT"
	INT     TokenType = "INT"     // 42, 0x2A, 42L, 42U, 42UL
	REAL    TokenType = "REAL"    // 3.14, 1e9, 2.5F, 9.99M
	STRING  TokenType = "STRING"  // "hello"
	CHAR    TokenType = "CHAR"    // 'a'
	TRUE    TokenType = "TRUE"
	FALSE   TokenType = "FALSE"
	NULL    TokenType = "NULL"

	// Operators
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	BANG     TokenType = "!"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	PERCENT  TokenType = "%"

	// Comparison
	EQ     TokenType = "=="
	NOT_EQ TokenType = "!="
	LT     TokenType = "<"
	GT     TokenType = ">"
	LT_EQ  TokenType = "<="
	GT_EQ  TokenType = ">="

	// Logical
	AND TokenType = "&&"
	OR  TokenType = "||"
	NOT TokenType = "NOT" // word form of !

	// Ternary
	QUESTION TokenType = "?"
	COLON    TokenType = ":"

	// Delimiters
	COMMA TokenType = ","
	DOT   TokenType = "."

	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACE   TokenType = "{"
	RBRACE   TokenType = "}"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"

	// Keywords
	IIF  TokenType = "IIF"
	NEW  TokenType = "NEW"
	AS   TokenType = "AS"
	ASC  TokenType = "ASC"
	DESC TokenType = "DESC"
)

// Keywords are matched case-insensitively, like the rest of the language.
var keywords = map[string]TokenType{
	"true":       TRUE,
	"false":      FALSE,
	"null":       NULL,
	"and":        AND,
	"or":         OR,
	"not":        NOT,
	"iif":        IIF,
	"new":        NEW,
	"as":         AS,
	"asc":        ASC,
	"ascending":  ASC,
	"desc":       DESC,
	"descending": DESC,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[lower(ident)]; ok {
		return tok
	}
	return IDENT
}

// lower is an ASCII-only fold; the keyword set is pure ASCII.
func lower(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
