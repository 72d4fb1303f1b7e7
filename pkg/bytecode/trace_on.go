//go:build exprtrace

package bytecode

// traceExecution turns on instruction tracing for every VM.
const traceExecution = true
