package vm

import (
	"fmt"
	"strings"
)

// RuntimeError is returned by Interpret when a running program hits a
// dynamic-type, arity, or name-resolution failure that the compiler could
// not have caught statically. It carries a printable call-stack trace in
// the same "[line N] in <where>" shape the reference implementation prints
// to stderr.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, frame := range e.Trace {
		b.WriteByte('\n')
		b.WriteString(frame)
	}
	return b.String()
}

func runtimeErrorf(trace []string, format string, args ...any) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Trace: trace}
}
