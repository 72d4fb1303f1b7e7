package bytecode

import (
	"errors"
	"fmt"
)

// MaxConstants is the size limit of each constant pool. Pool operands are a
// single byte.
const MaxConstants = 256

var (
	// ErrTooManyConstants is returned when a pool would exceed MaxConstants.
	ErrTooManyConstants = errors.New("too many constants in one fragment")

	// ErrUnterminatedFragment is returned for a fragment whose last
	// instruction is not RETURN.
	ErrUnterminatedFragment = errors.New("fragment does not end with RETURN")

	// ErrTruncatedInstruction is returned when an operand byte is missing.
	ErrTruncatedInstruction = errors.New("instruction operand missing")

	// ErrUnknownOpcode is returned for a byte that is not a defined opcode.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrOperandOutOfRange is returned when an operand indexes past its pool.
	ErrOperandOutOfRange = errors.New("constant operand out of range")

	// ErrLineTableMismatch is returned when the line table and code section
	// differ in length.
	ErrLineTableMismatch = errors.New("line table does not match code section")
)

// Fragment is a self-contained unit of compiled bytecode.
//
// Lines holds one source line per code byte, operand bytes included, so
// Lines[i] is always the line that produced Code[i].
type Fragment struct {
	Code    []byte    `cbor:"1,keyasint"` // Bytecode instructions
	Numbers []float64 `cbor:"2,keyasint"` // Pool indexed by OpPushNumber
	Strings []string  `cbor:"3,keyasint"` // Pool indexed by OpPushString
	Lines   []int     `cbor:"4,keyasint"` // Source line per code byte
}

// NewFragment creates a new empty fragment.
func NewFragment() *Fragment {
	return &Fragment{
		Code:    make([]byte, 0, 16),
		Numbers: make([]float64, 0, 4),
		Strings: make([]string, 0, 2),
		Lines:   make([]int, 0, 16),
	}
}

// ReturnFragment returns a fragment that contains only RETURN. It is what an
// empty expression compiles to.
func ReturnFragment(line int) *Fragment {
	f := NewFragment()
	f.Emit(OpReturn, line)
	return f
}

// NumberFragment returns the minimal fragment for a numeric literal.
func NumberFragment(value float64, line int) *Fragment {
	f := NewFragment()
	f.Numbers = append(f.Numbers, value)
	f.EmitWithOperand(OpPushNumber, 0, line)
	f.Emit(OpReturn, line)
	return f
}

// StringFragment returns the minimal fragment for a string literal.
func StringFragment(value string, line int) *Fragment {
	f := NewFragment()
	f.Strings = append(f.Strings, value)
	f.EmitWithOperand(OpPushString, 0, line)
	f.Emit(OpReturn, line)
	return f
}

// OpFragment returns a fragment consisting of a single zero-operand opcode
// followed by RETURN, e.g. OpTrue.
func OpFragment(op Opcode, line int) *Fragment {
	f := NewFragment()
	f.Emit(op, line)
	f.Emit(OpReturn, line)
	return f
}

// write appends one code byte and its line.
func (f *Fragment) write(b byte, line int) {
	f.Code = append(f.Code, b)
	f.Lines = append(f.Lines, line)
}

// Emit appends a single-byte opcode to the code section.
func (f *Fragment) Emit(op Opcode, line int) int {
	offset := len(f.Code)
	f.write(byte(op), line)
	return offset
}

// EmitWithOperand appends an opcode with its operand byte.
func (f *Fragment) EmitWithOperand(op Opcode, operand byte, line int) int {
	offset := len(f.Code)
	f.write(byte(op), line)
	f.write(operand, line)
	return offset
}

// AddNumber appends a value to the numeric pool and returns its index.
// Values are not de-duplicated.
func (f *Fragment) AddNumber(value float64) (byte, error) {
	if len(f.Numbers) >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	f.Numbers = append(f.Numbers, value)
	return byte(len(f.Numbers) - 1), nil
}

// AddString appends a value to the string pool and returns its index.
func (f *Fragment) AddString(value string) (byte, error) {
	if len(f.Strings) >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	f.Strings = append(f.Strings, value)
	return byte(len(f.Strings) - 1), nil
}

// EmitNumber adds value to the numeric pool and emits OpPushNumber for it.
func (f *Fragment) EmitNumber(value float64, line int) error {
	idx, err := f.AddNumber(value)
	if err != nil {
		return err
	}
	f.EmitWithOperand(OpPushNumber, idx, line)
	return nil
}

// EmitString adds value to the string pool and emits OpPushString for it.
func (f *Fragment) EmitString(value string, line int) error {
	idx, err := f.AddString(value)
	if err != nil {
		return err
	}
	f.EmitWithOperand(OpPushString, idx, line)
	return nil
}

// CodeLen returns the length of the code section.
func (f *Fragment) CodeLen() int {
	return len(f.Code)
}

// NumberCount returns the number of numeric constants.
func (f *Fragment) NumberCount() int {
	return len(f.Numbers)
}

// StringCount returns the number of string constants.
func (f *Fragment) StringCount() int {
	return len(f.Strings)
}

// LineAt returns the source line of the code byte at offset, or 0 if the
// line table has no entry for it.
func (f *Fragment) LineAt(offset int) int {
	if offset < 0 || offset >= len(f.Lines) {
		return 0
	}
	return f.Lines[offset]
}

// IsEmpty reports whether the fragment does nothing but return.
func (f *Fragment) IsEmpty() bool {
	return len(f.Code) == 1 && Opcode(f.Code[0]) == OpReturn
}

// Clone returns a deep copy of the fragment.
func (f *Fragment) Clone() *Fragment {
	return &Fragment{
		Code:    append([]byte(nil), f.Code...),
		Numbers: append([]float64(nil), f.Numbers...),
		Strings: append([]string(nil), f.Strings...),
		Lines:   append([]int(nil), f.Lines...),
	}
}

// walk calls fn for each instruction in order. It stops at the first
// undefined opcode or missing operand.
func (f *Fragment) walk(fn func(offset int, op Opcode, info OpcodeInfo) error) error {
	for offset := 0; offset < len(f.Code); {
		op := Opcode(f.Code[offset])
		info, ok := LookupOpcode(op)
		if !ok {
			return fmt.Errorf("%w 0x%02X at %04X", ErrUnknownOpcode, byte(op), offset)
		}
		if offset+info.OperandLen >= len(f.Code) && info.OperandLen > 0 {
			return fmt.Errorf("%w: %s at %04X", ErrTruncatedInstruction, info.Name, offset)
		}
		if err := fn(offset, op, info); err != nil {
			return err
		}
		offset += 1 + info.OperandLen
	}
	return nil
}

// Validate checks the structural invariants of a fragment: every opcode is
// defined, every operand is present and in range, the line table covers the
// code section, and the last instruction is RETURN.
func (f *Fragment) Validate() error {
	if len(f.Lines) != len(f.Code) {
		return fmt.Errorf("%w: %d lines for %d code bytes", ErrLineTableMismatch, len(f.Lines), len(f.Code))
	}
	if len(f.Numbers) > MaxConstants || len(f.Strings) > MaxConstants {
		return ErrTooManyConstants
	}
	last := -1
	err := f.walk(func(offset int, op Opcode, info OpcodeInfo) error {
		last = offset
		if info.OperandLen == 0 {
			return nil
		}
		idx := int(f.Code[offset+1])
		switch info.Operand {
		case OperandNumber:
			if idx >= len(f.Numbers) {
				return fmt.Errorf("%w: %s %d at %04X (pool size %d)", ErrOperandOutOfRange, info.Name, idx, offset, len(f.Numbers))
			}
		case OperandString:
			if idx >= len(f.Strings) {
				return fmt.Errorf("%w: %s %d at %04X (pool size %d)", ErrOperandOutOfRange, info.Name, idx, offset, len(f.Strings))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if last < 0 || Opcode(f.Code[last]) != OpReturn {
		return ErrUnterminatedFragment
	}
	return nil
}
