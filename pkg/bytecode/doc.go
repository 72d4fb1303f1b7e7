// Package bytecode provides relocatable bytecode fragments and the stack-based
// virtual machine that executes them.
//
// The bytecode format is designed for:
//   - Compact representation (one or two bytes per instruction)
//   - Independent compilation (operands are compiled into their own fragments
//     and spliced together afterwards)
//   - Deterministic disassembly, so two fragments can be compared by listing
//
// # Architecture Overview
//
//   - Opcodes: a small set of stack instructions covering literals,
//     arithmetic, comparison, logical negation and return
//
//   - Fragment: a compiled unit holding the code section, a numeric constant
//     pool, a string constant pool and a line table with one entry per code
//     byte. Fragments are never mutated once built.
//
//   - Merge: MergeBinary and MergeSequence splice two fragments into a new
//     one, concatenating the constant pools and re-basing every constant
//     operand copied from the right-hand fragment. MergeUnary appends a
//     NEGATE or NOT to a single fragment.
//
//   - VM: executes a fragment on a bounded value stack and yields a single
//     Value. Malformed fragments surface as a *RuntimeFault.
//
// # Splicing
//
// Every PUSH_NUMBER and PUSH_STRING operand is an index into its fragment's
// own pool. When a right-hand fragment is appended to a left-hand one its
// pools land after the left pools, so its operands are shifted by the length
// of the corresponding left pool:
//
//	left:   PUSH_NUMBER 0, PUSH_NUMBER 1, ADD         numbers [2 3]
//	right:  PUSH_NUMBER 0, PUSH_NUMBER 1, DIVIDE      numbers [6 2]
//	merged: PUSH_NUMBER 0, PUSH_NUMBER 1, ADD,
//	        PUSH_NUMBER 2, PUSH_NUMBER 3, DIVIDE,
//	        SUBTRACT, RETURN                          numbers [2 3 6 2]
//
// # Wire format
//
// Fragments can be encoded to canonical CBOR with MarshalFragment, which is
// what the on-disk fragment cache stores.
package bytecode
