// Package errors defines the error taxonomy of the query compiler. Every
// parse-phase failure carries the 0-based byte offset where it was detected;
// none of them are recovered internally, they always reach the caller.
package errors

import "fmt"

// LexError reports an invalid character sequence or an unterminated literal.
type LexError struct {
	Offset  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Message)
}

// ParseError reports a grammar violation: unexpected token, unmatched
// parenthesis, unknown identifier.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

// IncompatibleOperandsError reports that no operator signature accepts the
// operand types.
type IncompatibleOperandsError struct {
	Offset   int
	Operator string
	Operands []string
}

func (e *IncompatibleOperandsError) Error() string {
	if len(e.Operands) == 1 {
		return fmt.Sprintf("operator %q is not defined for type %s (offset %d)", e.Operator, e.Operands[0], e.Offset)
	}
	return fmt.Sprintf("operator %q is not defined for types %s (offset %d)", e.Operator, join(e.Operands), e.Offset)
}

// AmbiguousOperatorError reports that more than one signature applies and
// none is most specific.
type AmbiguousOperatorError struct {
	Offset   int
	Operator string
	Operands []string
}

func (e *AmbiguousOperatorError) Error() string {
	return fmt.Sprintf("operator %q is ambiguous for types %s (offset %d)", e.Operator, join(e.Operands), e.Offset)
}

// UnknownMemberError reports a member access or call target that does not
// exist on the resolved type.
type UnknownMemberError struct {
	Offset int
	Member string
	Type   string
}

func (e *UnknownMemberError) Error() string {
	return fmt.Sprintf("type %s has no member %q (offset %d)", e.Type, e.Member, e.Offset)
}

func join(parts []string) string {
	s := ""
	for i, p := range parts {
		if i > 0 {
			s += " and "
		}
		s += p
	}
	return s
}
