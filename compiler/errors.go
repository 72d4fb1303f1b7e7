package compiler

import (
	"errors"
	"fmt"
)

// ErrCompile is the errors.Is target shared by every *CompileError.
var ErrCompile = errors.New("compile error")

// ErrUnknownOperator is returned by Binding for a kind with no binding power.
var ErrUnknownOperator = errors.New("unknown operator")

// CompileError is a diagnostic for source that cannot be compiled.
// Compilation stops at the first one.
type CompileError struct {
	Line    int   // Source line of Token
	Token   Token // Token the error was detected at
	Message string
}

func (e *CompileError) Error() string {
	if e.Token.Kind == TokenEnd {
		return fmt.Sprintf("[line %d] error at end: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] error at '%s': %s", e.Line, e.Token.Text, e.Message)
}

// Is makes errors.Is(err, ErrCompile) hold for every compile error.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}

// IsCompileError checks if an error is a compile error.
func IsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// LexError reports source text that does not scan.
type LexError struct {
	Line    int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("[line %d] syntax error: %s", e.Line, e.Message)
}
