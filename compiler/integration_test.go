package compiler

import (
	"math"
	"testing"

	"github.com/chazu/exprvm/pkg/bytecode"
)

// Integration tests: compile source and execute it on the VM

func eval(t *testing.T, source string) bytecode.Value {
	t.Helper()
	frag := mustCompile(t, source)
	result, err := bytecode.Interpret(frag)
	if err != nil {
		t.Fatalf("Interpret(%q) failed: %v\n%s", source, err, frag.Disassemble())
	}
	return result
}

func TestIntegrationArithmetic(t *testing.T) {
	tests := []struct {
		source string
		want   float64
	}{
		{"7", 7},
		{"1 + 2", 3},
		{"2 - 6 / 2 + 2 * 4 ;", 7},
		{"(2*3 + (2+3)) * ((2+4) * 2) ;", 132},
		{"10 - 4 - 3", 3},
		{"2 * 3 + 4", 10},
		{"-2 * 3", -6},
		{"-(1 + 2)", -3},
		{"1.5 * 4", 6},
		{"1; 2; 3 + 4", 7},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := eval(t, tt.source)
			if !got.IsNumber() || got.AsNumber() != tt.want {
				t.Errorf("%s = %s, want %v", tt.source, got.Inspect(), tt.want)
			}
		})
	}
}

func TestIntegrationStrings(t *testing.T) {
	if got := eval(t, `"ab" + "cd"`); got.AsString() != "abcd" {
		t.Errorf(`"ab" + "cd" = %s, want "abcd"`, got.Inspect())
	}
	if got := eval(t, `"abcd"`); got.AsString() != "abcd" {
		t.Errorf(`"abcd" = %s`, got.Inspect())
	}
}

func TestIntegrationBooleans(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"true", true},
		{`"ab" == "ab"`, true},
		{`"ab" != "ab"`, false},
		{"1 < 2", true},
		{"2 <= 1", false},
		{"3 > 2 == true", true},
		{"!true", false},
		{"!(1 >= 2)", true},
		{"1 + 1 == 2", true},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := eval(t, tt.source)
			if !got.IsBool() || got.AsBool() != tt.want {
				t.Errorf("%s = %s, want %v", tt.source, got.Inspect(), tt.want)
			}
		})
	}
}

func TestIntegrationNil(t *testing.T) {
	if got := eval(t, "nil"); !got.IsNil() {
		t.Errorf("nil = %s", got.Inspect())
	}
	if got := eval(t, ""); !got.IsNil() {
		t.Errorf("empty program = %s, want nil", got.Inspect())
	}
}

func TestIntegrationDivideByZero(t *testing.T) {
	if got := eval(t, "1 / 0"); !math.IsInf(got.AsNumber(), 1) {
		t.Errorf("1 / 0 = %s, want +Inf", got.Inspect())
	}
}

func TestIntegrationGroupTypeFault(t *testing.T) {
	frag := mustCompile(t, `(1) + "a"`)
	_, err := bytecode.Interpret(frag)
	fault, ok := bytecode.IsRuntimeFault(err)
	if !ok {
		t.Fatalf("Interpret = %v, want runtime fault", err)
	}
	if fault.Kind != bytecode.FaultTypeMismatch {
		t.Errorf("fault kind = %s, want type mismatch", fault.Kind)
	}
	if _, isCompile := IsCompileError(err); isCompile {
		t.Error("runtime fault reported as compile error")
	}
}
