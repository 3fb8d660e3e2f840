// Package record synthesizes record shapes at run time for projection
// results. A shape is described by a Schema; schemas are memoized process-wide
// by structural signature, so every projection with the same field set shares
// one Schema for the life of the process. The cache is never evicted; the
// universe of projection shapes in a process is small and fixed.
package record

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openconf/confq/internal/query/types"
)

// Field is one (name, type) pair of a record shape.
type Field struct {
	Name string
	Type types.Type
}

// Schema is a compiled record shape. Fields are held in canonical order
// (sorted by case-folded name), so two signatures with the same field set in
// different declaration order compile to the same Schema. Hashing and
// equality both work over the canonical order, which keeps them consistent.
type Schema struct {
	fields []Field
	index  map[string]int // case-folded name -> canonical position
}

// NumFields returns the number of fields.
func (s *Schema) NumFields() int { return len(s.fields) }

// Fields returns the fields in canonical order. The caller must not modify
// the returned slice.
func (s *Schema) Fields() []Field { return s.fields }

// FieldIndex resolves a field name, case-insensitively, to its canonical
// position.
func (s *Schema) FieldIndex(name string) (int, bool) {
	i, ok := s.index[strings.ToLower(name)]
	return i, ok
}

func (s *Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.Name + " " + f.Type.String()
	}
	return "record{" + strings.Join(parts, ", ") + "}"
}

var cache = struct {
	sync.RWMutex
	schemas map[string]*Schema
}{schemas: make(map[string]*Schema)}

// Compile returns the Schema for the given fields, creating and memoizing it
// on first use. Field order is irrelevant: signatures are canonicalized
// before both lookup and synthesis. Concurrent first-time callers for the
// same signature receive the same Schema.
func Compile(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("record: empty field list")
	}
	canonical := make([]Field, len(fields))
	copy(canonical, fields)
	sort.Slice(canonical, func(i, j int) bool {
		return strings.ToLower(canonical[i].Name) < strings.ToLower(canonical[j].Name)
	})
	for i, f := range canonical {
		if f.Name == "" {
			return nil, fmt.Errorf("record: field %d has no name", i)
		}
		if i > 0 && strings.EqualFold(canonical[i-1].Name, f.Name) {
			return nil, fmt.Errorf("record: duplicate field %q", f.Name)
		}
	}
	key := signature(canonical)

	cache.RLock()
	s, ok := cache.schemas[key]
	cache.RUnlock()
	if ok {
		return s, nil
	}

	cache.Lock()
	defer cache.Unlock()
	// Re-check under the write lock: another caller may have synthesized the
	// schema between our RUnlock and Lock.
	if s, ok := cache.schemas[key]; ok {
		return s, nil
	}
	s = &Schema{fields: canonical, index: make(map[string]int, len(canonical))}
	for i, f := range canonical {
		s.index[strings.ToLower(f.Name)] = i
	}
	cache.schemas[key] = s
	return s, nil
}

func signature(canonical []Field) string {
	var b strings.Builder
	for _, f := range canonical {
		b.WriteString(strings.ToLower(f.Name))
		b.WriteByte(0)
		b.WriteString(f.Type.String())
		b.WriteByte(0)
	}
	return b.String()
}

// Record is an instance of a Schema: one value per field, held in canonical
// field order. Fields unset at construction hold their type's zero value.
type Record struct {
	schema *Schema
	values []any
}

// New creates a record with every field at its zero value.
func New(s *Schema) *Record {
	r := &Record{schema: s, values: make([]any, len(s.fields))}
	for i, f := range s.fields {
		r.values[i] = zeroValue(f.Type)
	}
	return r
}

// Schema returns the record's shape.
func (r *Record) Schema() *Schema { return r.schema }

// Get returns the value of the named field.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.schema.FieldIndex(name)
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Set assigns the named field. Unknown names are reported, not ignored.
func (r *Record) Set(name string, v any) bool {
	i, ok := r.schema.FieldIndex(name)
	if !ok {
		return false
	}
	r.values[i] = v
	return true
}

// Equal is structural, value-based equality: same schema and pairwise equal
// field values.
func (r *Record) Equal(o *Record) bool {
	if o == nil || r.schema != o.schema {
		return false
	}
	for i, v := range r.values {
		if !valueEqual(v, o.values[i]) {
			return false
		}
	}
	return true
}

// Hash is the XOR of each field's value hash. XOR is commutative, so the
// result does not depend on field order; together with canonical schema
// ordering this keeps Hash consistent with Equal.
func (r *Record) Hash() uint64 {
	var h uint64
	for i, v := range r.values {
		h ^= fieldHash(r.schema.fields[i].Name, v)
	}
	return h
}

func (r *Record) String() string {
	parts := make([]string, len(r.values))
	for i, f := range r.schema.fields {
		parts[i] = fmt.Sprintf("%s: %v", f.Name, r.values[i])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func fieldHash(name string, v any) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(name)))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%v", v)
	return h.Sum64()
}

func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case decimal.Decimal:
		bv, ok := b.(decimal.Decimal)
		return ok && av.Equal(bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	}
	return a == b
}

func zeroValue(t types.Type) any {
	if t.Nullable {
		return nil
	}
	switch t.Kind {
	case types.Bool:
		return false
	case types.Int:
		return int32(0)
	case types.UInt:
		return uint32(0)
	case types.Long:
		return int64(0)
	case types.ULong:
		return uint64(0)
	case types.Float:
		return float32(0)
	case types.Double:
		return float64(0)
	case types.Decimal:
		return decimal.Zero
	case types.String:
		return ""
	case types.Char:
		return rune(0)
	case types.Time:
		return time.Time{}
	case types.Duration:
		return time.Duration(0)
	}
	return nil
}
