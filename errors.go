package klox

import "strings"

// InterpretResult is the three-way outcome of Interpret: success, a
// compile-time failure, or a runtime failure.
type InterpretResult uint8

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// CompileError aggregates every parse/resolve error reported before
// synchronize() gave up for good — the compiler keeps going after the
// first error so a single run can report more than one mistake, then
// joins them into one error value for the caller.
type CompileError struct {
	Errs []error
}

func (e *CompileError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

func (e *CompileError) Unwrap() []error { return e.Errs }

// RuntimeError carries the formatted message and backtrace the VM
// produced when a running program failed.
type RuntimeError struct {
	Message   string
	Backtrace []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString("Runtime Error: ")
	b.WriteString(e.Message)
	for _, line := range e.Backtrace {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}
