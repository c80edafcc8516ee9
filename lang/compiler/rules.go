package compiler

import "github.com/loxlang/loxvm/lang/token"

// Precedence orders binary operators from loosest to tightest binding, used
// by parsePrecedence to decide how far an infix chain may extend.
type Precedence int

//nolint:revive
const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules is the Pratt parsing table: for every token, the prefix parser to
// use when it starts an expression, the infix parser to use when it
// continues one, and the precedence of that infix use.
var rules = map[token.Token]parseRule{
	token.LPAREN:    {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: PrecCall},
	token.DOT:       {infix: (*Compiler).dot, precedence: PrecCall},
	token.MINUS:     {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PrecTerm},
	token.PLUS:      {infix: (*Compiler).binary, precedence: PrecTerm},
	token.SLASH:     {infix: (*Compiler).binary, precedence: PrecFactor},
	token.STAR:      {infix: (*Compiler).binary, precedence: PrecFactor},
	token.BANG:      {prefix: (*Compiler).unary},
	token.BANGEQ:    {infix: (*Compiler).binary, precedence: PrecEquality},
	token.EQEQ:      {infix: (*Compiler).binary, precedence: PrecEquality},
	token.GT:        {infix: (*Compiler).binary, precedence: PrecComparison},
	token.GE:        {infix: (*Compiler).binary, precedence: PrecComparison},
	token.LT:        {infix: (*Compiler).binary, precedence: PrecComparison},
	token.LE:        {infix: (*Compiler).binary, precedence: PrecComparison},
	token.IDENT:     {prefix: (*Compiler).variable},
	token.STRING:    {prefix: (*Compiler).stringLiteral},
	token.NUMBER:    {prefix: (*Compiler).number},
	token.AND:       {infix: (*Compiler).and_, precedence: PrecAnd},
	token.FALSE:     {prefix: (*Compiler).literal},
	token.NIL:       {prefix: (*Compiler).literal},
	token.OR:        {infix: (*Compiler).or_, precedence: PrecOr},
	token.SUPER:     {prefix: (*Compiler).super_},
	token.THIS:      {prefix: (*Compiler).this_},
	token.TRUE:      {prefix: (*Compiler).literal},
}

func ruleFor(t token.Token) parseRule {
	return rules[t]
}
