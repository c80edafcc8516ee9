package compiler

import (
	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/scanner"
	"github.com/loxlang/loxvm/lang/token"
	"github.com/loxlang/loxvm/lang/value"
)

func (c *Compiler) identifierConstant(t scanner.Token) byte {
	return c.makeConstant(value.FromObj(c.heap.Intern(c.lexeme(t))))
}

func (c *Compiler) addLocal(name string) {
	if len(c.locals) >= 256 {
		c.errorAtPrevious("too many local variables in function")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
}

// declareVariable registers c.previous as a new local in the current scope,
// unless we're at global scope, where variables are resolved dynamically by
// name at runtime and need no local slot.
func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.lexeme(c.previous)
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name {
			c.errorAtPrevious("already a variable with this name in this scope")
		}
	}
	c.addLocal(name)
}

// parseVariable consumes an identifier token and, for a global, returns the
// constant-pool index of its interned name; for a local it returns 0 (the
// name lives only in c.locals, never in the constant pool).
func (c *Compiler) parseVariable(message string) byte {
	c.consume(token.IDENT, message)
	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(chunk.OpDefineGlobal, global)
}

func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				c.errorAtPrevious("cannot read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) addUpvalue(index byte, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= 256 {
		c.errorAtPrevious("too many closure variables in function")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

// resolveUpvalue looks for name in each enclosing Compiler in turn: if it's
// a local there, it's captured directly; if it's itself an upvalue there,
// the chain is extended one level, so each intermediate function also gets
// an upvalue slot threading the value down to where it's actually used.
func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := c.enclosing.resolveLocal(name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(byte(local), true)
	}
	if up := c.enclosing.resolveUpvalue(name); up != -1 {
		return c.addUpvalue(byte(up), false)
	}
	return -1
}

func (c *Compiler) namedVariable(t scanner.Token, canAssign bool) {
	name := c.lexeme(t)
	var getOp, setOp chunk.OpCode
	var arg int

	if local := c.resolveLocal(name); local != -1 {
		getOp, setOp, arg = chunk.OpGetLocal, chunk.OpSetLocal, local
	} else if up := c.resolveUpvalue(name); up != -1 {
		getOp, setOp, arg = chunk.OpGetUpvalue, chunk.OpSetUpvalue, up
	} else {
		getOp, setOp, arg = chunk.OpGetGlobal, chunk.OpSetGlobal, int(c.identifierConstant(t))
	}

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}
