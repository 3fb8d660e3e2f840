package types

import "strings"

// Symbols binds identifiers and substitution placeholders to externally
// supplied values for one parse. Lookups are case-insensitive. A Symbols is
// built once per parse and read-only afterwards.
type Symbols struct {
	named      map[string]any
	positional []any
}

// NewSymbols builds a symbol table from named values and an ordered list of
// positional values (bound to {0}, {1}, ... in the source text).
func NewSymbols(named map[string]any, positional []any) *Symbols {
	s := &Symbols{positional: positional}
	if len(named) > 0 {
		s.named = make(map[string]any, len(named))
		for k, v := range named {
			s.named[strings.ToLower(k)] = v
		}
	}
	return s
}

// Lookup resolves a named external value.
func (s *Symbols) Lookup(name string) (any, bool) {
	if s == nil || s.named == nil {
		return nil, false
	}
	v, ok := s.named[strings.ToLower(name)]
	return v, ok
}

// At resolves the value bound to placeholder {i}.
func (s *Symbols) At(i int) (any, bool) {
	if s == nil || i < 0 || i >= len(s.positional) {
		return nil, false
	}
	return s.positional[i], true
}
