package bytecode

import (
	"errors"
	"fmt"
)

// ErrNotBinaryOpcode is returned when MergeBinary is asked to join two
// fragments with an opcode that does not consume two operands.
var ErrNotBinaryOpcode = errors.New("opcode is not a binary operation")

// ErrNotUnaryOpcode is returned when MergeUnary is given an opcode that does
// not transform a single operand.
var ErrNotUnaryOpcode = errors.New("opcode is not a unary operation")

// MergeBinary builds a new fragment that evaluates left, then right, then
// applies op to the two results.
//
// The numeric and string pools of the result are left's pools followed by
// right's. Left's code is copied unchanged; right's constant operands are
// shifted by the length of the matching left pool. The terminating RETURN of
// each input is dropped and op plus a fresh RETURN are appended at line.
// Neither input is modified.
func MergeBinary(left, right *Fragment, op Opcode, line int) (*Fragment, error) {
	if !op.IsBinary() {
		return nil, fmt.Errorf("%w: %s", ErrNotBinaryOpcode, op)
	}
	merged, err := splice(left, right)
	if err != nil {
		return nil, err
	}
	merged.Emit(op, line)
	merged.Emit(OpReturn, line)
	return merged, nil
}

// MergeUnary builds a new fragment that evaluates operand and applies op to
// its result. Pools are shared with operand unchanged.
func MergeUnary(operand *Fragment, op Opcode, line int) (*Fragment, error) {
	if !op.IsUnary() {
		return nil, fmt.Errorf("%w: %s", ErrNotUnaryOpcode, op)
	}
	if err := operand.Validate(); err != nil {
		return nil, fmt.Errorf("operand fragment: %w", err)
	}
	merged := &Fragment{
		Code:    make([]byte, 0, len(operand.Code)+1),
		Lines:   make([]int, 0, len(operand.Code)+1),
		Numbers: append([]float64(nil), operand.Numbers...),
		Strings: append([]string(nil), operand.Strings...),
	}
	copyBody(merged, operand, 0, 0)
	merged.Emit(op, line)
	merged.Emit(OpReturn, line)
	return merged, nil
}

// MergeSequence builds a new fragment that evaluates left, discards its
// value, then evaluates right. The result of the sequence is right's value.
// An empty input (one that only returns) contributes nothing.
func MergeSequence(left, right *Fragment, line int) (*Fragment, error) {
	if err := left.Validate(); err != nil {
		return nil, fmt.Errorf("left fragment: %w", err)
	}
	if err := right.Validate(); err != nil {
		return nil, fmt.Errorf("right fragment: %w", err)
	}
	switch {
	case left.IsEmpty():
		return right.Clone(), nil
	case right.IsEmpty():
		return left.Clone(), nil
	}

	if len(left.Numbers)+len(right.Numbers) > MaxConstants ||
		len(left.Strings)+len(right.Strings) > MaxConstants {
		return nil, ErrTooManyConstants
	}
	merged := newMergeTarget(left, right)
	copyBody(merged, left, 0, 0)
	merged.Emit(OpPop, line)
	copyBody(merged, right, len(left.Numbers), len(left.Strings))
	merged.Emit(OpReturn, line)
	return merged, nil
}

// splice returns a fragment holding both pools and both bodies, without a
// terminating instruction.
func splice(left, right *Fragment) (*Fragment, error) {
	if err := left.Validate(); err != nil {
		return nil, fmt.Errorf("left fragment: %w", err)
	}
	if err := right.Validate(); err != nil {
		return nil, fmt.Errorf("right fragment: %w", err)
	}
	if len(left.Numbers)+len(right.Numbers) > MaxConstants ||
		len(left.Strings)+len(right.Strings) > MaxConstants {
		return nil, ErrTooManyConstants
	}

	merged := newMergeTarget(left, right)
	copyBody(merged, left, 0, 0)
	copyBody(merged, right, len(left.Numbers), len(left.Strings))
	return merged, nil
}

// newMergeTarget allocates a fragment with both pools already concatenated.
func newMergeTarget(left, right *Fragment) *Fragment {
	size := len(left.Code) + len(right.Code)
	merged := &Fragment{
		Code:    make([]byte, 0, size),
		Lines:   make([]int, 0, size),
		Numbers: make([]float64, 0, len(left.Numbers)+len(right.Numbers)),
		Strings: make([]string, 0, len(left.Strings)+len(right.Strings)),
	}
	merged.Numbers = append(append(merged.Numbers, left.Numbers...), right.Numbers...)
	merged.Strings = append(append(merged.Strings, left.Strings...), right.Strings...)
	return merged
}

// copyBody appends src's instructions, minus its final RETURN, to dst.
// Pool operands are re-based by numberBase or stringBase. src must already
// be valid.
func copyBody(dst, src *Fragment, numberBase, stringBase int) {
	end := len(src.Code) - 1
	for offset := 0; offset < end; {
		op := Opcode(src.Code[offset])
		info := GetOpcodeInfo(op)
		dst.write(byte(op), src.Lines[offset])
		if info.OperandLen == 1 {
			operand := int(src.Code[offset+1])
			switch info.Operand {
			case OperandNumber:
				operand += numberBase
			case OperandString:
				operand += stringBase
			}
			dst.write(byte(operand), src.Lines[offset+1])
		}
		offset += 1 + info.OperandLen
	}
}
