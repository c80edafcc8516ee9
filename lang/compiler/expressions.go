package compiler

import (
	"strconv"

	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/token"
	"github.com/loxlang/loxvm/lang/value"
)

func (c *Compiler) expression() { c.parsePrecedence(PrecAssignment) }

// parsePrecedence is the heart of the Pratt parser: it consumes one prefix
// expression, then keeps consuming infix operators as long as their
// precedence is at or above prec.
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	rule := ruleFor(c.previous.Type)
	if rule.prefix == nil {
		c.errorAtPrevious("expect expression")
		return
	}
	canAssign := prec <= PrecAssignment
	rule.prefix(c, canAssign)

	for prec <= ruleFor(c.current.Type).precedence {
		c.advance()
		infix := ruleFor(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQ) {
		c.errorAtPrevious("invalid assignment target")
	}
}

func (c *Compiler) number(canAssign bool) {
	n, err := strconv.ParseFloat(c.lexeme(c.previous), 64)
	if err != nil {
		c.errorAtPrevious("invalid number literal")
		return
	}
	c.emitConstant(value.Number(n))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	lex := c.lexeme(c.previous)
	chars := lex[1 : len(lex)-1] // strip the surrounding quotes
	c.emitConstant(value.FromObj(c.heap.Intern(chars)))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.emitOp(chunk.OpFalse)
	case token.NIL:
		c.emitOp(chunk.OpNil)
	case token.TRUE:
		c.emitOp(chunk.OpTrue)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RPAREN, "expect ')' after expression")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.previous.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case token.MINUS:
		c.emitOp(chunk.OpNegate)
	case token.BANG:
		c.emitOp(chunk.OpNot)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.previous.Type
	rule := ruleFor(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANGEQ:
		c.emitOp(chunk.OpEqual)
		c.emitOp(chunk.OpNot)
	case token.EQEQ:
		c.emitOp(chunk.OpEqual)
	case token.GT:
		c.emitOp(chunk.OpGreater)
	case token.GE:
		c.emitOp(chunk.OpLess)
		c.emitOp(chunk.OpNot)
	case token.LT:
		c.emitOp(chunk.OpLess)
	case token.LE:
		c.emitOp(chunk.OpGreater)
		c.emitOp(chunk.OpNot)
	case token.PLUS:
		c.emitOp(chunk.OpAdd)
	case token.MINUS:
		c.emitOp(chunk.OpSubtract)
	case token.STAR:
		c.emitOp(chunk.OpMultiply)
	case token.SLASH:
		c.emitOp(chunk.OpDivide)
	}
}

func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)
	c.patchJump(elseJump)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) { c.namedVariable(c.previous, canAssign) }

func (c *Compiler) this_(canAssign bool) {
	if c.class == nil {
		c.errorAtPrevious("cannot use 'this' outside of a class")
		return
	}
	c.variable(false)
}

func (c *Compiler) super_(canAssign bool) {
	if c.class == nil {
		c.errorAtPrevious("cannot use 'super' outside of a class")
	} else if !c.class.hasSuperclass {
		c.errorAtPrevious("cannot use 'super' in a class with no superclass")
	}

	c.consume(token.DOT, "expect '.' after 'super'")
	c.consume(token.IDENT, "expect superclass method name")
	nameConst := c.identifierConstant(c.previous)

	c.namedVariableByName("this", false)
	if c.match(token.LPAREN) {
		argCount := c.argumentList()
		c.namedVariableByName("super", false)
		c.emitOpByte(chunk.OpSuperInvoke, nameConst)
		c.emitByte(argCount)
	} else {
		c.namedVariableByName("super", false)
		c.emitOpByte(chunk.OpGetSuper, nameConst)
	}
}

// namedVariableByName resolves a synthetic identifier that has no real
// token, such as the implicit "this" and "super" locals woven into a
// method's or subclass's scope.
func (c *Compiler) namedVariableByName(name string, canAssign bool) {
	var getOp chunk.OpCode
	var arg int
	if local := c.resolveLocal(name); local != -1 {
		getOp, arg = chunk.OpGetLocal, local
	} else if up := c.resolveUpvalue(name); up != -1 {
		getOp, arg = chunk.OpGetUpvalue, up
	} else {
		getOp, arg = chunk.OpGetGlobal, int(c.makeConstant(value.FromObj(c.heap.Intern(name))))
	}
	c.emitOpByte(getOp, byte(arg))
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOpByte(chunk.OpCall, argCount)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "expect property name after '.'")
	nameConst := c.identifierConstant(c.previous)

	switch {
	case canAssign && c.match(token.EQ):
		c.expression()
		c.emitOpByte(chunk.OpSetProperty, nameConst)
	case c.match(token.LPAREN):
		argCount := c.argumentList()
		c.emitOpByte(chunk.OpInvoke, nameConst)
		c.emitByte(argCount)
	default:
		c.emitOpByte(chunk.OpGetProperty, nameConst)
	}
}

func (c *Compiler) argumentList() byte {
	var count int
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if count == 255 {
				c.errorAtPrevious("cannot have more than 255 arguments")
			}
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expect ')' after arguments")
	return byte(count)
}
