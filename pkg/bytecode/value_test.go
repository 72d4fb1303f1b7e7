package bytecode

import "testing"

func TestValueString(t *testing.T) {
	tests := []struct {
		v       Value
		str     string
		inspect string
	}{
		{NumberValue(7), "7", "7"},
		{NumberValue(1.5), "1.5", "1.5"},
		{NumberValue(-0.25), "-0.25", "-0.25"},
		{StringValue("abcd"), "abcd", `"abcd"`},
		{BoolValue(true), "true", "true"},
		{Nil, "nil", "nil"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if got := tt.v.Inspect(); got != tt.inspect {
			t.Errorf("Inspect() = %q, want %q", got, tt.inspect)
		}
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{NumberValue(1), NumberValue(1), true},
		{NumberValue(1), NumberValue(2), false},
		{StringValue("a"), StringValue("a"), true},
		{BoolValue(true), BoolValue(true), true},
		{Nil, Value{}, true},
		{NumberValue(0), BoolValue(false), false},
		{StringValue(""), Nil, false},
	}

	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%s.Equal(%s) = %v, want %v", tt.a.Inspect(), tt.b.Inspect(), got, tt.want)
		}
	}
}

func TestValueKind(t *testing.T) {
	if Nil.Kind() != KindNil || !Nil.IsNil() {
		t.Error("Nil should have KindNil")
	}
	if v := NumberValue(1); !v.IsNumber() || v.IsBool() {
		t.Error("NumberValue kind predicates wrong")
	}
	if KindString.String() != "string" {
		t.Errorf("KindString.String() = %q", KindString.String())
	}
}
