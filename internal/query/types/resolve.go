package types

import "errors"

// Signature is one entry of the operator catalog: parameter kinds and the
// result kind, all non-nullable. Lifting over nullable operands happens in
// the resolver, not in the table.
type Signature struct {
	Params []Kind
	Result Kind
}

// Resolved is the outcome of overload resolution: the chosen signature with
// nullability applied. Params gives the exact type each operand must be
// converted to before evaluation.
type Resolved struct {
	Params []Type
	Result Type
	Lifted bool
}

// Resolution failures. The parser wraps these with the source offset and the
// operand type names.
var (
	ErrNoSignature = errors.New("no applicable operator signature")
	ErrAmbiguous   = errors.New("ambiguous operator signatures")
)

var numericKinds = []Kind{Int, UInt, Long, ULong, Float, Double, Decimal}

// catalog maps an operator token to its signatures. Unary operators are
// keyed with a "u" prefix to keep them apart from their binary spellings.
var catalog = map[string][]Signature{}

func add(op string, result Kind, params ...Kind) {
	catalog[op] = append(catalog[op], Signature{Params: params, Result: result})
}

func init() {
	for _, k := range numericKinds {
		for _, op := range []string{"+", "-", "*", "/", "%"} {
			add(op, k, k, k)
		}
	}
	// String concatenation and date/time arithmetic.
	add("+", String, String, String)
	add("+", Time, Time, Duration)
	add("+", Duration, Duration, Duration)
	add("-", Time, Time, Duration)
	add("-", Duration, Time, Time)
	add("-", Duration, Duration, Duration)

	relational := append(append([]Kind{}, numericKinds...), String, Char, Time, Duration)
	for _, k := range relational {
		for _, op := range []string{"<", "<=", ">", ">="} {
			add(op, Bool, k, k)
		}
	}
	for _, k := range append(relational, Bool) {
		add("==", Bool, k, k)
		add("!=", Bool, k, k)
	}

	add("&&", Bool, Bool, Bool)
	add("||", Bool, Bool, Bool)

	for _, k := range []Kind{Int, Long, Float, Double, Decimal} {
		add("u-", k, k)
	}
	add("u!", Bool, Bool)
}

// Resolve selects the best signature of op for the given operand types.
//
// All signatures whose parameters every operand converts to are collected;
// among those the most specific one wins: the signature whose parameter kinds
// convert to every other applicable signature's parameter kinds. Zero
// applicable signatures is ErrNoSignature, no single most specific one is
// ErrAmbiguous.
func Resolve(op string, operands []Type) (Resolved, error) {
	// Equality between two untyped nulls needs no catalog entry: there is no
	// kind to pick, and evaluation compares the nils directly.
	if (op == "==" || op == "!=") && allNull(operands) {
		return Resolved{
			Params: []Type{Of(Null), Of(Null)},
			Result: Of(Bool),
			Lifted: true,
		}, nil
	}

	var applicable []Signature
	for _, sig := range catalog[op] {
		if len(sig.Params) != len(operands) {
			continue
		}
		if applies(sig, operands) {
			applicable = append(applicable, sig)
		}
	}
	if len(applicable) == 0 {
		return Resolved{}, ErrNoSignature
	}

	best := -1
	for i, sig := range applicable {
		ok := true
		for j, other := range applicable {
			if i == j {
				continue
			}
			if !narrower(sig, other) {
				ok = false
				break
			}
		}
		if ok {
			best = i
			break
		}
	}
	if best < 0 {
		return Resolved{}, ErrAmbiguous
	}

	sig := applicable[best]
	lifted := false
	for _, t := range operands {
		if t.Nullable || t.Kind == Null {
			lifted = true
		}
	}
	r := Resolved{Lifted: lifted}
	for _, k := range sig.Params {
		p := Of(k)
		// Lifted operands stay nullable so evaluation sees the nil.
		p.Nullable = lifted
		r.Params = append(r.Params, p)
	}
	r.Result = Of(sig.Result)
	// Boolean results stay non-nullable even when lifted: a comparison
	// involving null is simply false (or true, for != on one null).
	if lifted && sig.Result != Bool {
		r.Result.Nullable = true
	}
	return r, nil
}

func allNull(operands []Type) bool {
	if len(operands) != 2 {
		return false
	}
	for _, t := range operands {
		if t.Kind != Null {
			return false
		}
	}
	return true
}

func applies(sig Signature, operands []Type) bool {
	for i, t := range operands {
		if t.Kind == Null {
			continue // null converts to any lifted parameter
		}
		if !kindConvertible(t.Kind, sig.Params[i]) {
			return false
		}
	}
	return true
}

// narrower reports whether every parameter of a converts to the matching
// parameter of b.
func narrower(a, b Signature) bool {
	for i := range a.Params {
		if !kindConvertible(a.Params[i], b.Params[i]) {
			return false
		}
	}
	return true
}
