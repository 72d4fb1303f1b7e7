//go:build !exprtrace

package bytecode

const traceExecution = false
