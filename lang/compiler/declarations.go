package compiler

import (
	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/token"
	"github.com/loxlang/loxvm/lang/value"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "expect '}' after block")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after value")
	c.emitOp(chunk.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after expression")
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "expect '(' after 'if'")
	c.expression()
	c.consume(token.RPAREN, "expect ')' after condition")

	thenJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.emitOp(chunk.OpPop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(token.LPAREN, "expect '(' after 'while'")
	c.expression()
	c.consume(token.RPAREN, "expect ')' after condition")

	exitJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "expect '(' after 'for'")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "expect ';' after loop condition")
		exitJump = c.emitJump(chunk.OpJumpIfFalse)
		c.emitOp(chunk.OpPop)
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(chunk.OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(chunk.OpPop)
		c.consume(token.RPAREN, "expect ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(chunk.OpPop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fnType == TypeScript {
		c.errorAtPrevious("cannot return from top-level code")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	if c.fnType == TypeInitializer {
		c.errorAtPrevious("cannot return a value from an initializer")
	}
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after return value")
	c.emitOp(chunk.OpReturn)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("expect variable name")
	if c.match(token.EQ) {
		c.expression()
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.consume(token.SEMICOLON, "expect ';' after variable declaration")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("expect function name")
	c.markInitialized()
	c.function_(TypeFunction)
	c.defineVariable(global)
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "expect class name")
	nameTok := c.previous
	nameConst := c.identifierConstant(nameTok)
	c.declareVariable()

	c.emitOpByte(chunk.OpClass, nameConst)
	c.defineVariable(nameConst)

	cc := &classCompiler{enclosing: c.class}
	c.class = cc

	if c.match(token.LT) {
		c.consume(token.IDENT, "expect superclass name")
		c.variable(false)
		if c.lexeme(nameTok) == c.lexeme(c.previous) {
			c.errorAtPrevious("a class cannot inherit from itself")
		}

		c.beginScope()
		c.addLocal("super")
		c.markInitialized()

		c.namedVariable(nameTok, false)
		c.emitOp(chunk.OpInherit)
		cc.hasSuperclass = true
	}

	c.namedVariable(nameTok, false)
	c.consume(token.LBRACE, "expect '{' before class body")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "expect '}' after class body")
	c.emitOp(chunk.OpPop)

	if cc.hasSuperclass {
		c.endScope()
	}
	c.class = c.class.enclosing
}

func (c *Compiler) method() {
	c.consume(token.IDENT, "expect method name")
	nameTok := c.previous
	nameConst := c.identifierConstant(nameTok)

	fnType := TypeMethod
	if c.lexeme(nameTok) == "init" {
		fnType = TypeInitializer
	}
	c.function_(fnType)
	c.emitOpByte(chunk.OpMethod, nameConst)
}

// function_ compiles a nested function body (its parameter list and block)
// in a fresh Compiler scoped as a child of c, and emits OP_CLOSURE with the
// resulting function as a constant plus its captured-upvalue descriptors.
func (c *Compiler) function_(fnType FunctionType) {
	child := &Compiler{
		heap:      c.heap,
		scanner:   c.scanner,
		src:       c.src,
		previous:  c.previous,
		current:   c.current,
		enclosing: c,
		fnType:    fnType,
		class:     c.class,
	}
	child.function = c.heap.NewFunction()
	c.heap.PushCompilerRoot(child.function)
	if fnType != TypeScript {
		child.function.Name = c.heap.Intern(c.lexeme(c.previous))
	}

	if fnType == TypeMethod || fnType == TypeInitializer {
		child.locals = append(child.locals, local{name: "this", depth: 0})
	} else {
		child.locals = append(child.locals, local{name: "", depth: 0})
	}

	child.beginScope()
	child.consume(token.LPAREN, "expect '(' after function name")
	if !child.check(token.RPAREN) {
		for {
			child.function.Arity++
			if child.function.Arity > 255 {
				child.errorAtCurrent("cannot have more than 255 parameters")
			}
			paramConst := child.parseVariable("expect parameter name")
			child.defineVariable(paramConst)
			if !child.match(token.COMMA) {
				break
			}
		}
	}
	child.consume(token.RPAREN, "expect ')' after parameters")
	child.consume(token.LBRACE, "expect '{' before function body")
	child.block()

	fn := child.endCompiler()
	c.heap.PopCompilerRoot()

	c.previous = child.previous
	c.current = child.current
	c.hadError = c.hadError || child.hadError
	c.errs = append(c.errs, child.errs...)
	c.panicMode = child.panicMode

	c.emitOpByte(chunk.OpClosure, c.makeConstant(value.FromObj(fn)))
	for _, uv := range child.upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.index)
	}
}
