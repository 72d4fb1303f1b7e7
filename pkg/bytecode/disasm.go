package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the fragment.
func (f *Fragment) Disassemble() string {
	return f.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name
// header. The output depends only on the fragment's contents.
func (f *Fragment) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d code bytes, %d numbers, %d strings\n",
		len(f.Code), len(f.Numbers), len(f.Strings)))
	sb.WriteString("\n")

	if len(f.Numbers) > 0 {
		sb.WriteString("; Numbers:\n")
		for i, n := range f.Numbers {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, FormatNumber(n)))
		}
		sb.WriteString("\n")
	}

	if len(f.Strings) > 0 {
		sb.WriteString("; Strings:\n")
		for i, s := range f.Strings {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, quoteConstant(s, 40)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("; Code:\n")
	for _, line := range f.DisassembleToLines() {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (f *Fragment) disassembleInstruction(offset int) (string, int) {
	if offset >= len(f.Code) {
		return "<end of code>", 0
	}

	op := Opcode(f.Code[offset])
	info := GetOpcodeInfo(op)
	if info.OperandLen == 0 {
		return info.Name, 1
	}
	if offset+1 >= len(f.Code) {
		return fmt.Sprintf("%s <missing operand>", info.Name), 1
	}

	idx := int(f.Code[offset+1])
	switch info.Operand {
	case OperandNumber:
		if idx < len(f.Numbers) {
			return fmt.Sprintf("%s %d ; %s", info.Name, idx, FormatNumber(f.Numbers[idx])), 2
		}
	case OperandString:
		if idx < len(f.Strings) {
			return fmt.Sprintf("%s %d ; %s", info.Name, idx, quoteConstant(f.Strings[idx], 20)), 2
		}
	}
	return fmt.Sprintf("%s %d ; <out of range>", info.Name, idx), 2
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (f *Fragment) DisassembleInstruction(offset int) string {
	line, _ := f.disassembleInstruction(offset)
	return line
}

// DisassembleToLines returns the code listing as a slice of lines. Each line
// holds the offset, the source line ("|" when unchanged from the previous
// instruction) and the instruction.
func (f *Fragment) DisassembleToLines() []string {
	var lines []string
	prevLine := -1
	offset := 0
	for offset < len(f.Code) {
		text, instrLen := f.disassembleInstruction(offset)
		src := f.LineAt(offset)
		col := strconv.Itoa(src)
		if src == prevLine {
			col = "|"
		}
		prevLine = src
		lines = append(lines, fmt.Sprintf("%04X %4s  %s", offset, col, text))
		offset += instrLen
	}
	return lines
}

// InstructionCount returns the number of instructions in the fragment.
// Note: This iterates through all code, so it's O(n).
func (f *Fragment) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(f.Code) {
		_, n := f.disassembleInstruction(offset)
		offset += n
		count++
	}
	return count
}

// quoteConstant quotes s, truncating long strings for readability.
func quoteConstant(s string, max int) string {
	if len(s) > max {
		s = s[:max-3] + "..."
	}
	return strconv.Quote(s)
}
