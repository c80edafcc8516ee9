// Package compiler turns source text directly into bytecode in a single
// pass: a Pratt expression parser and a recursive-descent statement parser
// share one pass over the token stream and emit instructions as they go,
// with no separate AST stage.
package compiler

import (
	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/scanner"
	"github.com/loxlang/loxvm/lang/token"
	"github.com/loxlang/loxvm/lang/value"
	"github.com/loxlang/loxvm/lang/vm"
)

// FunctionType distinguishes the kind of function body currently being
// compiled, since methods, initializers, and the top-level script each
// treat slot 0 and implicit returns differently.
type FunctionType int

//nolint:revive
const (
	TypeFunction FunctionType = iota
	TypeInitializer
	TypeMethod
	TypeScript
)

type local struct {
	name       string
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// Compiler holds the state for one function body being compiled: its own
// locals and upvalues, plus a link to the enclosing Compiler so resolving a
// free variable can walk outward one lexical scope at a time. The top-level
// script is compiled by the outermost Compiler, with fnType TypeScript.
type Compiler struct {
	heap    *vm.Heap
	scanner *scanner.Scanner
	src     string

	previous scanner.Token
	current  scanner.Token

	hadError  bool
	panicMode bool
	errs      []*SyntaxError

	enclosing *Compiler
	function  *value.Function
	fnType    FunctionType

	locals     []local
	scopeDepth int
	upvalues   []upvalueRef

	class *classCompiler
}

// Compile compiles src as a complete program and returns the top-level
// script function, or a *CompileError listing every syntax error found.
func Compile(src string, heap *vm.Heap) (*value.Function, error) {
	c := &Compiler{
		heap:    heap,
		scanner: scanner.New(src),
		src:     src,
		fnType:  TypeScript,
	}
	c.function = heap.NewFunction()
	heap.PushCompilerRoot(c.function)
	defer heap.PopCompilerRoot()

	c.locals = append(c.locals, local{name: "", depth: 0})

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()

	if c.hadError {
		return nil, &CompileError{Errors: c.errs}
	}
	return fn, nil
}

func (c *Compiler) chunk() *value.Chunk { return c.function.Chunk }

func (c *Compiler) lexeme(t scanner.Token) string { return t.Lexeme(c.src) }

// --- token stream --------------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Scan()
		if c.current.Type != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(c.current.Message)
	}
}

func (c *Compiler) check(t token.Token) bool { return c.current.Type == t }

func (c *Compiler) match(t token.Token) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Token, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting -------------------------------------------------------

func (c *Compiler) errorAtCurrent(message string)  { c.errorAt(c.current, message) }
func (c *Compiler) errorAtPrevious(message string) { c.errorAt(c.previous, message) }

func (c *Compiler) errorAt(t scanner.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := ""
	if t.Type == token.EOF {
		where = "end"
	} else if t.Type != token.ILLEGAL {
		where = c.lexeme(t)
	}
	c.errs = append(c.errs, &SyntaxError{Line: t.Line, Where: where, Message: message})
}

// synchronize discards tokens until it reaches what looks like a statement
// boundary, so one syntax error doesn't cascade into a flood of spurious
// follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.RBRACE, token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- bytecode emission -----------------------------------------------------

func (c *Compiler) emitByte(b byte)        { c.chunk().Write(b, c.previous.Line) }
func (c *Compiler) emitOp(op chunk.OpCode) { c.chunk().WriteOp(op, c.previous.Line) }
func (c *Compiler) emitOpByte(op chunk.OpCode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *Compiler) emitReturn() {
	if c.fnType == TypeInitializer {
		c.emitOpByte(chunk.OpGetLocal, 0)
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.emitOp(chunk.OpReturn)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.chunk().AddConstant(v)
	if idx >= value.MaxConstants {
		c.errorAtPrevious("too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) { c.emitOpByte(chunk.OpConstant, c.makeConstant(v)) }

// emitJump writes a two-byte placeholder jump offset and returns its
// position, to be filled in later by patchJump.
func (c *Compiler) emitJump(op chunk.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.errorAtPrevious("too much code to jump over")
	}
	c.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(chunk.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.errorAtPrevious("loop body too large")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

// --- function / scope bookkeeping -----------------------------------------

func (c *Compiler) endCompiler() *value.Function {
	c.emitReturn()
	return c.function
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.isCaptured {
			c.emitOp(chunk.OpCloseUpvalue)
		} else {
			c.emitOp(chunk.OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}
