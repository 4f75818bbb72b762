package types

import "testing"

func TestInferTypeNativeValues(t *testing.T) {
	cases := []struct {
		v    any
		want DataType
	}{
		{nil, Null},
		{true, Boolean},
		{false, Boolean},
		{42, Integer},
		{int64(42), Integer},
		{3.14, Float},
		{"hello", String},
	}
	for _, c := range cases {
		if got := InferType(c.v); got != c.want {
			t.Errorf("InferType(%v) = %s, want %s", c.v, got, c.want)
		}
	}
}

func TestInferTypeBoolBeforeInteger(t *testing.T) {
	// a bool must never be mistaken for an integer even though Go
	// allows bool-to-int-like switch ordering mistakes.
	if got := InferType(true); got != Boolean {
		t.Fatalf("InferType(true) = %s, want Boolean", got)
	}
}

func TestInferTypeFromString(t *testing.T) {
	cases := []struct {
		s    string
		want DataType
	}{
		{"", Null},
		{"null", Null},
		{"NONE", Null},
		{"n/a", Null},
		{"-", Null},
		{"true", Boolean},
		{"FALSE", Boolean},
		{"42", Integer},
		{"-17", Integer},
		{"3.14", Float},
		{"12345.6", Decimal},
		{"2024-01-15", Date},
		{"01/15/2024", Date},
		{"13:45", Time},
		{"13:45:30", Time},
		{"2024-01-15T13:45:30Z", Datetime},
		{"2024-01-15 13:45:30", Datetime},
		{`{"a":1}`, JSON},
		{"[1,2,3]", JSON},
		{"hello world", String},
	}
	for _, c := range cases {
		if got := InferTypeFromString(c.s); got != c.want {
			t.Errorf("InferTypeFromString(%q) = %s, want %s", c.s, got, c.want)
		}
	}
}

func TestInferTypeFromStringDecimalRequiresFiveSigFigs(t *testing.T) {
	if got := InferTypeFromString("3.14"); got != Float {
		t.Errorf("3.14 should infer as Float, got %s", got)
	}
	if got := InferTypeFromString("31415.9"); got != Decimal {
		t.Errorf("31415.9 should infer as Decimal, got %s", got)
	}
}

func TestInferCommonType(t *testing.T) {
	cases := []struct {
		samples []DataType
		want    DataType
	}{
		{[]DataType{Integer, Integer}, Integer},
		{[]DataType{Integer, Float}, Float},
		{[]DataType{Null, Null}, Null},
		{[]DataType{Integer, Null, Float}, Float},
		{[]DataType{}, Null},
	}
	for _, c := range cases {
		if got := InferCommonType(c.samples); got != c.want {
			t.Errorf("InferCommonType(%v) = %s, want %s", c.samples, got, c.want)
		}
	}
}
