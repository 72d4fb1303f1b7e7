package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpPop Opcode = 0x01 // Discard top of stack (between statements)

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpPushNumber Opcode = 0x10 // Push numeric constant: OpPushNumber <index:u8>
	OpPushString Opcode = 0x11 // Push string constant: OpPushString <index:u8>
	OpTrue       Opcode = 0x12 // Push true
	OpFalse      Opcode = 0x13 // Push false
	OpNil        Opcode = 0x14 // Push nil

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd      Opcode = 0x50 // Pop two, push sum or concatenation
	OpSubtract Opcode = 0x51 // Pop two, push difference (a - b where b is TOS)
	OpMultiply Opcode = 0x52 // Pop two, push product
	OpDivide   Opcode = 0x53 // Pop two, push quotient
	OpNegate   Opcode = 0x55 // Negate top of stack

	// ========================================================================
	// Comparison (0x60-0x67)
	// ========================================================================

	OpEqual        Opcode = 0x60 // Pop two, push a == b
	OpNotEqual     Opcode = 0x61 // Pop two, push a != b
	OpLess         Opcode = 0x62 // Pop two, push a < b
	OpLessEqual    Opcode = 0x63 // Pop two, push a <= b
	OpGreater      Opcode = 0x64 // Pop two, push a > b
	OpGreaterEqual Opcode = 0x65 // Pop two, push a >= b

	// ========================================================================
	// Logical operations (0x68-0x6F)
	// ========================================================================

	OpNot Opcode = 0x68 // Logical NOT of a boolean

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn Opcode = 0xF0 // Pop and yield top of stack, nil if empty
)

// OperandKind says which pool, if any, an instruction's operand byte indexes.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandNumber
	OperandString
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string      // Human-readable name
	StackPop   int         // How many values popped from stack
	StackPush  int         // How many values pushed to stack
	OperandLen int         // Number of operand bytes following the opcode
	Operand    OperandKind // Pool indexed by the operand
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpPop: {"POP", 1, 0, 0, OperandNone},

	OpPushNumber: {"PUSH_NUMBER", 0, 1, 1, OperandNumber},
	OpPushString: {"PUSH_STRING", 0, 1, 1, OperandString},
	OpTrue:       {"TRUE", 0, 1, 0, OperandNone},
	OpFalse:      {"FALSE", 0, 1, 0, OperandNone},
	OpNil:        {"NIL", 0, 1, 0, OperandNone},

	OpAdd:      {"ADD", 2, 1, 0, OperandNone},
	OpSubtract: {"SUBTRACT", 2, 1, 0, OperandNone},
	OpMultiply: {"MULTIPLY", 2, 1, 0, OperandNone},
	OpDivide:   {"DIVIDE", 2, 1, 0, OperandNone},
	OpNegate:   {"NEGATE", 1, 1, 0, OperandNone},

	OpEqual:        {"EQUAL", 2, 1, 0, OperandNone},
	OpNotEqual:     {"NOT_EQUAL", 2, 1, 0, OperandNone},
	OpLess:         {"LESS", 2, 1, 0, OperandNone},
	OpLessEqual:    {"LESS_EQUAL", 2, 1, 0, OperandNone},
	OpGreater:      {"GREATER", 2, 1, 0, OperandNone},
	OpGreaterEqual: {"GREATER_EQUAL", 2, 1, 0, OperandNone},

	OpNot: {"NOT", 1, 1, 0, OperandNone},

	OpReturn: {"RETURN", 0, 0, 0, OperandNone},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// LookupOpcode reports whether op is a defined opcode.
func LookupOpcode(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsBinary returns true if this opcode combines the top two stack values.
func (op Opcode) IsBinary() bool {
	return (op >= OpAdd && op <= OpDivide) || (op >= OpEqual && op <= OpGreaterEqual)
}

// IsUnary returns true if this opcode replaces the top stack value.
func (op Opcode) IsUnary() bool {
	return op == OpNegate || op == OpNot
}

// IsReturn returns true if this opcode terminates execution.
func (op Opcode) IsReturn() bool {
	return op == OpReturn
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
