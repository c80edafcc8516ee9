package compiler

import (
	"fmt"
	"strings"
)

// CompileError reports every syntax error found in one source, collected
// via panic-mode recovery so a single pass can surface more than one
// mistake instead of stopping at the first.
type CompileError struct {
	Errors []*SyntaxError
}

func (e *CompileError) Error() string {
	var b strings.Builder
	for i, se := range e.Errors {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(se.Error())
	}
	return b.String()
}

// Unwrap exposes the individual errors to errors.Is/errors.As callers.
func (e *CompileError) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, se := range e.Errors {
		out[i] = se
	}
	return out
}

// SyntaxError is a single diagnostic tied to a source line and, where
// relevant, the offending lexeme.
type SyntaxError struct {
	Line    int
	Where   string
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at '%s': %s", e.Line, e.Where, e.Message)
}
