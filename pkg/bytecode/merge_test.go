package bytecode

import (
	"errors"
	"fmt"
	"testing"
)

func mustMerge(t *testing.T, left, right *Fragment, op Opcode, line int) *Fragment {
	t.Helper()
	merged, err := MergeBinary(left, right, op, line)
	if err != nil {
		t.Fatalf("MergeBinary(%s) failed: %v", op, err)
	}
	return merged
}

func TestMergeSplicesIndependentFragments(t *testing.T) {
	// (2 + 3) on line 1 and (6 / 2) on line 2, joined by - on line 2.
	left := mustMerge(t, NumberFragment(2, 1), NumberFragment(3, 1), OpAdd, 1)
	right := mustMerge(t, NumberFragment(6, 2), NumberFragment(2, 2), OpDivide, 2)
	merged := mustMerge(t, left, right, OpSubtract, 2)

	direct := NewFragment()
	direct.Numbers = []float64{2, 3, 6, 2}
	direct.EmitWithOperand(OpPushNumber, 0, 1)
	direct.EmitWithOperand(OpPushNumber, 1, 1)
	direct.Emit(OpAdd, 1)
	direct.EmitWithOperand(OpPushNumber, 2, 2)
	direct.EmitWithOperand(OpPushNumber, 3, 2)
	direct.Emit(OpDivide, 2)
	direct.Emit(OpSubtract, 2)
	direct.Emit(OpReturn, 2)

	if got, want := merged.Disassemble(), direct.Disassemble(); got != want {
		t.Errorf("merged disassembly differs from direct emission\ngot:\n%s\nwant:\n%s", got, want)
	}
	for i := range direct.Lines {
		if merged.Lines[i] != direct.Lines[i] {
			t.Errorf("Lines[%d] = %d, want %d", i, merged.Lines[i], direct.Lines[i])
		}
	}

	result, err := Interpret(merged)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if result.AsNumber() != 2 {
		t.Errorf("(2 + 3) - (6 / 2) = %v, want 2", result)
	}
}

func TestMergeRebasesStringOperands(t *testing.T) {
	left := mustMerge(t, StringFragment("ab", 1), NumberFragment(1, 1), OpEqual, 1)
	right := mustMerge(t, StringFragment("cd", 1), StringFragment("ef", 1), OpAdd, 1)
	merged := mustMerge(t, left, right, OpNotEqual, 1)

	if len(merged.Strings) != 3 || len(merged.Numbers) != 1 {
		t.Fatalf("pools = %v / %v, want 3 strings and 1 number", merged.Strings, merged.Numbers)
	}
	// right's PUSH_STRING 0 and PUSH_STRING 1 become 1 and 2.
	lines := merged.DisassembleToLines()
	want := []string{
		`0000    1  PUSH_STRING 0 ; "ab"`,
		`0002    |  PUSH_NUMBER 0 ; 1`,
		`0004    |  EQUAL`,
		`0005    |  PUSH_STRING 1 ; "cd"`,
		`0007    |  PUSH_STRING 2 ; "ef"`,
		`0009    |  ADD`,
		`000A    |  NOT_EQUAL`,
		`000B    |  RETURN`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	left := NumberFragment(1, 1)
	right := NumberFragment(2, 1)
	before := right.Disassemble()

	if _, err := MergeBinary(left, right, OpAdd, 1); err != nil {
		t.Fatal(err)
	}
	if right.Disassemble() != before {
		t.Error("MergeBinary modified its right input")
	}
	if len(left.Numbers) != 1 || len(left.Code) != 3 {
		t.Error("MergeBinary modified its left input")
	}
}

// Merging in either grouping yields the same pools, and every pair of
// merged fragments disassembles to the equivalent direct emission.
func TestMergePairsMatchDirectEmission(t *testing.T) {
	leaves := []struct {
		frag *Fragment
		emit func(f *Fragment)
	}{
		{NumberFragment(1, 1), func(f *Fragment) { _ = f.EmitNumber(1, 1) }},
		{StringFragment("s", 1), func(f *Fragment) { _ = f.EmitString("s", 1) }},
		{OpFragment(OpTrue, 1), func(f *Fragment) { f.Emit(OpTrue, 1) }},
		{NumberFragment(2.5, 1), func(f *Fragment) { _ = f.EmitNumber(2.5, 1) }},
		{StringFragment("t", 1), func(f *Fragment) { _ = f.EmitString("t", 1) }},
	}

	for i, a := range leaves {
		for j, b := range leaves {
			t.Run(fmt.Sprintf("%d_%d", i, j), func(t *testing.T) {
				merged := mustMerge(t, a.frag, b.frag, OpEqual, 1)

				direct := NewFragment()
				a.emit(direct)
				b.emit(direct)
				direct.Emit(OpEqual, 1)
				direct.Emit(OpReturn, 1)

				if got, want := merged.Disassemble(), direct.Disassemble(); got != want {
					t.Errorf("got:\n%s\nwant:\n%s", got, want)
				}
			})
		}
	}

	a, b, c := leaves[0].frag, leaves[1].frag, leaves[3].frag
	leftFirst := mustMerge(t, mustMerge(t, a, b, OpAdd, 1), c, OpAdd, 1)
	rightFirst := mustMerge(t, a, mustMerge(t, b, c, OpAdd, 1), OpAdd, 1)
	if fmt.Sprint(leftFirst.Numbers) != fmt.Sprint(rightFirst.Numbers) ||
		fmt.Sprint(leftFirst.Strings) != fmt.Sprint(rightFirst.Strings) {
		t.Errorf("pools depend on grouping: %v%v vs %v%v",
			leftFirst.Numbers, leftFirst.Strings, rightFirst.Numbers, rightFirst.Strings)
	}
}

func TestMergeErrors(t *testing.T) {
	if _, err := MergeBinary(NumberFragment(1, 1), NumberFragment(2, 1), OpNegate, 1); !errors.Is(err, ErrNotBinaryOpcode) {
		t.Errorf("MergeBinary(NEGATE) = %v, want ErrNotBinaryOpcode", err)
	}

	bad := fragmentWithCode(byte(OpTrue))
	if _, err := MergeBinary(bad, NumberFragment(1, 1), OpAdd, 1); !errors.Is(err, ErrUnterminatedFragment) {
		t.Errorf("MergeBinary(unterminated) = %v, want ErrUnterminatedFragment", err)
	}

	full := NewFragment()
	for i := 0; i < MaxConstants; i++ {
		_ = full.EmitNumber(float64(i), 1)
	}
	full.Emit(OpReturn, 1)
	if _, err := MergeBinary(full, NumberFragment(1, 1), OpAdd, 1); !errors.Is(err, ErrTooManyConstants) {
		t.Errorf("MergeBinary over pool limit = %v, want ErrTooManyConstants", err)
	}
}

func TestMergeUnary(t *testing.T) {
	sum := mustMerge(t, NumberFragment(1, 1), NumberFragment(2, 1), OpAdd, 1)
	neg, err := MergeUnary(sum, OpNegate, 2)
	if err != nil {
		t.Fatalf("MergeUnary failed: %v", err)
	}
	lines := neg.DisassembleToLines()
	if len(lines) != 5 || lines[3] != "0005    2  NEGATE" {
		t.Errorf("unexpected listing: %v", lines)
	}
	if got := runFragment(t, neg); got.AsNumber() != -3 {
		t.Errorf("-(1 + 2) = %v, want -3", got)
	}

	if _, err := MergeUnary(sum, OpAdd, 1); !errors.Is(err, ErrNotUnaryOpcode) {
		t.Errorf("MergeUnary(ADD) = %v, want ErrNotUnaryOpcode", err)
	}
}

func TestMergeSequence(t *testing.T) {
	first := mustMerge(t, NumberFragment(1, 1), NumberFragment(2, 1), OpAdd, 1)
	second := StringFragment("done", 2)

	seq, err := MergeSequence(first, second, 1)
	if err != nil {
		t.Fatalf("MergeSequence failed: %v", err)
	}
	if err := seq.Validate(); err != nil {
		t.Fatalf("sequence is invalid: %v", err)
	}
	result, err := Interpret(seq)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if result.AsString() != "done" {
		t.Errorf("sequence result = %v, want done", result)
	}

	// Empty statements contribute nothing.
	empty := ReturnFragment(1)
	same, err := MergeSequence(empty, second, 1)
	if err != nil {
		t.Fatal(err)
	}
	if same.Disassemble() != second.Disassemble() {
		t.Errorf("MergeSequence(empty, x) should equal x")
	}
	same, err = MergeSequence(first, empty, 1)
	if err != nil {
		t.Fatal(err)
	}
	if same.Disassemble() != first.Disassemble() {
		t.Errorf("MergeSequence(x, empty) should equal x")
	}
}
