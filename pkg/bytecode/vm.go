package bytecode

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
)

// DefaultStackSize is the evaluation stack capacity used by NewVM.
const DefaultStackSize = 256

var log = commonlog.GetLogger("exprvm.vm")

// VM executes bytecode fragments.
//
// A VM is not safe for concurrent use, but any number of VMs may execute the
// same fragment at once since execution never writes to the fragment.
type VM struct {
	// Current execution state
	frag  *Fragment // Fragment being executed
	ip    int       // Instruction pointer
	stack []Value   // Value stack, fixed capacity
	sp    int       // Stack pointer

	// Trace logs every instruction and the stack before it executes.
	// Building with the exprtrace tag turns tracing on for every VM.
	Trace bool
}

// NewVM creates a new VM instance with DefaultStackSize slots.
func NewVM() *VM {
	return NewVMWithStackSize(DefaultStackSize)
}

// NewVMWithStackSize creates a VM whose stack holds size values.
// Sizes below 1 fall back to DefaultStackSize.
func NewVMWithStackSize(size int) *VM {
	if size < 1 {
		size = DefaultStackSize
	}
	return &VM{
		stack: make([]Value, size),
	}
}

// StackSize returns the capacity of the evaluation stack.
func (vm *VM) StackSize() int {
	return len(vm.stack)
}

// Interpret is shorthand for NewVM().Interpret(f).
func Interpret(f *Fragment) (Value, error) {
	return NewVM().Interpret(f)
}

// Interpret runs a fragment to its RETURN and yields the returned value.
// Any malformed instruction aborts execution with a *RuntimeFault.
func (vm *VM) Interpret(f *Fragment) (Value, error) {
	if f == nil {
		return Nil, &RuntimeFault{Kind: FaultTruncatedCode, Message: "no fragment to execute"}
	}
	vm.frag = f
	vm.ip = 0
	vm.sp = 0
	defer vm.reset()

	return vm.run()
}

// reset drops references to the last fragment and its values.
func (vm *VM) reset() {
	for i := 0; i < vm.sp; i++ {
		vm.stack[i] = Nil
	}
	vm.sp = 0
	vm.frag = nil
}

// run is the main execution loop.
func (vm *VM) run() (Value, error) {
	code := vm.frag.Code

	for {
		if vm.ip >= len(code) {
			return Nil, vm.fault(vm.ip, OpReturn, FaultTruncatedCode, "reached end of code without RETURN")
		}

		offset := vm.ip
		op := Opcode(code[offset])
		info, ok := LookupOpcode(op)
		if !ok {
			return Nil, vm.fault(offset, op, FaultUnknownOpcode, fmt.Sprintf("byte 0x%02X is not an opcode", byte(op)))
		}
		if offset+info.OperandLen >= len(code) && info.OperandLen > 0 {
			return Nil, vm.fault(offset, op, FaultTruncatedCode, "operand byte missing")
		}
		if vm.sp < info.StackPop {
			return Nil, vm.fault(offset, op, FaultStackUnderflow,
				fmt.Sprintf("needs %d values, stack holds %d", info.StackPop, vm.sp))
		}
		if vm.sp-info.StackPop+info.StackPush > len(vm.stack) {
			return Nil, vm.fault(offset, op, FaultStackOverflow,
				fmt.Sprintf("stack capacity %d exceeded", len(vm.stack)))
		}

		if traceExecution || vm.Trace {
			vm.traceInstruction(offset)
		}

		vm.ip += 1 + info.OperandLen

		switch op {
		// ============ Return ============
		case OpReturn:
			if vm.sp == 0 {
				return Nil, nil
			}
			return vm.pop(), nil

		// ============ Stack Operations ============
		case OpPop:
			vm.pop()

		// ============ Constants ============
		case OpPushNumber:
			idx := int(code[offset+1])
			if idx >= len(vm.frag.Numbers) {
				return Nil, vm.fault(offset, op, FaultConstantOutOfRange,
					fmt.Sprintf("index %d, numeric pool holds %d", idx, len(vm.frag.Numbers)))
			}
			vm.push(NumberValue(vm.frag.Numbers[idx]))

		case OpPushString:
			idx := int(code[offset+1])
			if idx >= len(vm.frag.Strings) {
				return Nil, vm.fault(offset, op, FaultConstantOutOfRange,
					fmt.Sprintf("index %d, string pool holds %d", idx, len(vm.frag.Strings)))
			}
			vm.push(StringValue(vm.frag.Strings[idx]))

		case OpTrue:
			vm.push(BoolValue(true))

		case OpFalse:
			vm.push(BoolValue(false))

		case OpNil:
			vm.push(Nil)

		// ============ Arithmetic ============
		case OpAdd:
			b := vm.pop()
			a := vm.pop()
			switch {
			case a.IsNumber() && b.IsNumber():
				vm.push(NumberValue(a.number + b.number))
			case a.IsString() && b.IsString():
				vm.push(StringValue(a.str + b.str))
			default:
				return Nil, vm.typeFault(offset, op, "operands must be two numbers or two strings", a, b)
			}

		case OpSubtract, OpMultiply, OpDivide:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return Nil, vm.typeFault(offset, op, "operands must be numbers", a, b)
			}
			vm.push(NumberValue(arith(op, a.number, b.number)))

		case OpNegate:
			a := vm.pop()
			if !a.IsNumber() {
				return Nil, vm.typeFault(offset, op, "operand must be a number", a)
			}
			vm.push(NumberValue(-a.number))

		// ============ Comparison ============
		case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return Nil, vm.typeFault(offset, op, "operands must be numbers", a, b)
			}
			vm.push(BoolValue(compare(op, a.number, b.number)))

		case OpEqual, OpNotEqual:
			b := vm.pop()
			a := vm.pop()
			if a.kind != b.kind || a.IsNil() {
				return Nil, vm.typeFault(offset, op, "operands must be two numbers, two booleans or two strings", a, b)
			}
			eq := a.Equal(b)
			if op == OpNotEqual {
				eq = !eq
			}
			vm.push(BoolValue(eq))

		// ============ Logical ============
		case OpNot:
			a := vm.pop()
			if !a.IsBool() {
				return Nil, vm.typeFault(offset, op, "operand must be a boolean", a)
			}
			vm.push(BoolValue(!a.boolean))

		default:
			return Nil, vm.fault(offset, op, FaultUnknownOpcode, "opcode has no implementation")
		}
	}
}

// arith applies a numeric binary opcode. Division follows IEEE 754, so
// dividing by zero yields an infinity or NaN.
func arith(op Opcode, a, b float64) float64 {
	switch op {
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	default:
		return a / b
	}
}

// compare applies an ordering opcode.
func compare(op Opcode, a, b float64) bool {
	switch op {
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpGreater:
		return a > b
	default:
		return a >= b
	}
}

// push and pop are unchecked; run verifies stack depth against the opcode
// table before dispatching.
func (vm *VM) push(val Value) {
	vm.stack[vm.sp] = val
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	val := vm.stack[vm.sp]
	vm.stack[vm.sp] = Nil
	return val
}

func (vm *VM) fault(offset int, op Opcode, kind FaultKind, msg string) *RuntimeFault {
	return &RuntimeFault{
		Kind:    kind,
		Offset:  offset,
		Line:    vm.frag.LineAt(offset),
		Op:      op,
		Message: msg,
	}
}

func (vm *VM) typeFault(offset int, op Opcode, msg string, operands ...Value) *RuntimeFault {
	kinds := make([]string, len(operands))
	for i, v := range operands {
		kinds[i] = v.kind.String()
	}
	return vm.fault(offset, op, FaultTypeMismatch, fmt.Sprintf("%s, got %s", msg, strings.Join(kinds, " and ")))
}

// traceInstruction logs the instruction at offset and the current stack.
func (vm *VM) traceInstruction(offset int) {
	if !log.AllowLevel(commonlog.Debug) {
		return
	}
	var sb strings.Builder
	for i := 0; i < vm.sp; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(vm.stack[i].Inspect())
	}
	log.Debugf("[%04X] %-24s line=%d sp=%d stack=[%s]",
		offset, vm.frag.DisassembleInstruction(offset), vm.frag.LineAt(offset), vm.sp, sb.String())
}
