package bytecode

import (
	"errors"
	"fmt"
)

// ErrRuntimeFault is the errors.Is target shared by every *RuntimeFault.
var ErrRuntimeFault = errors.New("runtime fault")

// FaultKind classifies a runtime fault.
type FaultKind uint8

const (
	FaultStackOverflow FaultKind = iota + 1
	FaultStackUnderflow
	FaultConstantOutOfRange
	FaultUnknownOpcode
	FaultTypeMismatch
	FaultTruncatedCode
)

// String returns a human-readable name for FaultKind.
func (k FaultKind) String() string {
	switch k {
	case FaultStackOverflow:
		return "stack overflow"
	case FaultStackUnderflow:
		return "stack underflow"
	case FaultConstantOutOfRange:
		return "constant out of range"
	case FaultUnknownOpcode:
		return "unknown opcode"
	case FaultTypeMismatch:
		return "type mismatch"
	case FaultTruncatedCode:
		return "truncated code"
	default:
		return fmt.Sprintf("FaultKind(%d)", k)
	}
}

// RuntimeFault reports a fragment the VM could not execute. A correct
// compiler never produces one; they indicate a malformed fragment.
type RuntimeFault struct {
	Kind    FaultKind
	Offset  int    // Offset of the faulting instruction
	Line    int    // Source line of the faulting instruction, 0 if unknown
	Op      Opcode // Faulting opcode
	Message string
}

func (e *RuntimeFault) Error() string {
	return fmt.Sprintf("runtime fault [line %d] at %04X %s: %s: %s", e.Line, e.Offset, e.Op, e.Kind, e.Message)
}

// Is makes errors.Is(err, ErrRuntimeFault) hold for every fault.
func (e *RuntimeFault) Is(target error) bool {
	return target == ErrRuntimeFault
}

// IsRuntimeFault checks if an error is a runtime fault.
func IsRuntimeFault(err error) (*RuntimeFault, bool) {
	var fault *RuntimeFault
	if errors.As(err, &fault) {
		return fault, true
	}
	return nil, false
}
