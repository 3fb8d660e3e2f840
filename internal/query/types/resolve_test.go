package types

import "testing"

func TestResolvePicksNarrowestSignature(t *testing.T) {
	tests := []struct {
		op     string
		left   Kind
		right  Kind
		result Kind
	}{
		{"+", Int, Int, Int},
		{"+", Int, Long, Long},
		{"+", Int, Double, Double},
		{"+", Float, Float, Float},
		{"+", Float, Double, Double},
		{"+", Int, Decimal, Decimal},
		{"+", String, String, String},
		{"*", UInt, UInt, UInt},
		{"-", Time, Time, Duration},
		{"-", Time, Duration, Time},
		{"+", Duration, Duration, Duration},
		{"<", Char, Char, Bool},
		{"<", Int, Long, Bool},
		{"==", Bool, Bool, Bool},
		{"&&", Bool, Bool, Bool},
	}
	for _, tt := range tests {
		r, err := Resolve(tt.op, []Type{Of(tt.left), Of(tt.right)})
		if err != nil {
			t.Errorf("%v %s %v: unexpected error %v", tt.left, tt.op, tt.right, err)
			continue
		}
		if r.Result.Kind != tt.result {
			t.Errorf("%v %s %v: expected result %v, got %v", tt.left, tt.op, tt.right, tt.result, r.Result.Kind)
		}
	}
}

func TestResolveFailures(t *testing.T) {
	if _, err := Resolve("+", []Type{Of(Bool), Of(Int)}); err != ErrNoSignature {
		t.Errorf("bool + int: expected ErrNoSignature, got %v", err)
	}
	if _, err := Resolve("<", []Type{Of(Bool), Of(Bool)}); err != ErrNoSignature {
		t.Errorf("bool < bool: expected ErrNoSignature, got %v", err)
	}
	// int and ulong have no common signed home; float, double and decimal
	// all apply and neither float nor decimal converts to the other.
	if _, err := Resolve("+", []Type{Of(Int), Of(ULong)}); err != ErrAmbiguous {
		t.Errorf("int + ulong: expected ErrAmbiguous, got %v", err)
	}
	if _, err := Resolve("%", []Type{Of(String), Of(String)}); err != ErrNoSignature {
		t.Errorf("string %% string: expected ErrNoSignature, got %v", err)
	}
}

func TestResolveLifting(t *testing.T) {
	r, err := Resolve("+", []Type{NullableOf(Int), Of(Int)})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Lifted {
		t.Fatal("nullable operand must lift the operation")
	}
	if !r.Result.Nullable {
		t.Fatal("lifted arithmetic result must be nullable")
	}
	for _, p := range r.Params {
		if !p.Nullable {
			t.Fatal("lifted parameters must be nullable")
		}
	}

	// Boolean results stay non-nullable: a lifted comparison is just false.
	r, err = Resolve("==", []Type{NullableOf(String), Of(Null)})
	if err != nil {
		t.Fatal(err)
	}
	if r.Result.Nullable || r.Result.Kind != Bool {
		t.Fatalf("lifted equality must yield plain bool, got %v", r.Result)
	}
}

func TestResolveNullEquality(t *testing.T) {
	for _, op := range []string{"==", "!="} {
		r, err := Resolve(op, []Type{Of(Null), Of(Null)})
		if err != nil {
			t.Fatalf("null %s null: %v", op, err)
		}
		if r.Result.Kind != Bool || r.Result.Nullable {
			t.Fatalf("null %s null must yield plain bool, got %v", op, r.Result)
		}
		if !r.Lifted {
			t.Fatalf("null %s null must be lifted", op)
		}
	}
	// Relational operators stay unresolved between two untyped nulls.
	if _, err := Resolve("<", []Type{Of(Null), Of(Null)}); err == nil {
		t.Fatal("null < null must not resolve")
	}
}

func TestConvertible(t *testing.T) {
	tests := []struct {
		from, to Type
		want     bool
	}{
		{Of(Int), Of(Long), true},
		{Of(Long), Of(Int), false},
		{Of(Float), Of(Decimal), false},
		{Of(Int), Of(Decimal), true},
		{Of(Int), NullableOf(Int), true},
		{NullableOf(Int), Of(Int), false},
		{Of(Null), NullableOf(String), true},
		{Of(Null), Of(String), false},
		{Of(Char), Of(Int), true},
	}
	for _, tt := range tests {
		if got := Convertible(tt.from, tt.to); got != tt.want {
			t.Errorf("Convertible(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCommon(t *testing.T) {
	c, ok := Common(Of(Int), Of(Long))
	if !ok || c.Kind != Long {
		t.Fatalf("common(int, long) = %v/%v", c, ok)
	}
	c, ok = Common(Of(String), Of(Null))
	if !ok || c.Kind != String || !c.Nullable {
		t.Fatalf("common(string, null) = %v/%v", c, ok)
	}
	if _, ok = Common(Of(String), Of(Bool)); ok {
		t.Fatal("string and bool must have no common type")
	}
}
