package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loxlang/loxvm/lang/scanner"
	"github.com/loxlang/loxvm/lang/token"
)

func scanAll(src string) []scanner.Token {
	s := scanner.New(src)
	var toks []scanner.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func types(toks []scanner.Token) []token.Token {
	out := make([]token.Token, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestScanPunctuation(t *testing.T) {
	toks := scanAll("(){},.-+;*!!====<<=>>=/")
	assert.Equal(t, []token.Token{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA,
		token.DOT, token.MINUS, token.PLUS, token.SEMICOLON, token.STAR,
		token.BANG, token.BANGEQ, token.EQEQ, token.EQ,
		token.LT, token.LE, token.GT, token.GE, token.SLASH, token.EOF,
	}, types(toks))
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll("and class orbit forest functor iffy nil orange print return super this true var while")
	want := []token.Token{
		token.AND, token.CLASS, token.IDENT, token.IDENT, token.IDENT, token.IDENT,
		token.NIL, token.IDENT, token.PRINT, token.RETURN, token.SUPER, token.THIS,
		token.TRUE, token.VAR, token.WHILE, token.EOF,
	}
	assert.Equal(t, want, types(toks))
}

func TestScanNumber(t *testing.T) {
	toks := scanAll("123 3.14")
	assert.Equal(t, token.NUMBER, toks[0].Type)
	assert.Equal(t, "123", toks[0].Lexeme("123 3.14"))
	assert.Equal(t, token.NUMBER, toks[1].Type)
	assert.Equal(t, "3.14", toks[1].Lexeme("123 3.14"))
}

func TestScanStringAndUnterminated(t *testing.T) {
	src := `"hello" "unterminated`
	toks := scanAll(src)
	assert.Equal(t, token.STRING, toks[0].Type)
	assert.Equal(t, `"hello"`, toks[0].Lexeme(src))
	assert.Equal(t, token.ILLEGAL, toks[1].Type)
	assert.Equal(t, "unterminated string", toks[1].Message)
}

func TestScanSkipsLineComments(t *testing.T) {
	toks := scanAll("1 // a comment\n2")
	assert.Equal(t, []token.Token{token.NUMBER, token.NUMBER, token.EOF}, types(toks))
}

func TestScanTracksLines(t *testing.T) {
	toks := scanAll("1\n\n3")
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 3, toks[1].Line)
}

func TestLookupIdentKeywordPrefixCollision(t *testing.T) {
	assert.Equal(t, token.FALSE, token.LookupIdent("false"))
	assert.Equal(t, token.FOR, token.LookupIdent("for"))
	assert.Equal(t, token.FUN, token.LookupIdent("fun"))
	assert.Equal(t, token.IDENT, token.LookupIdent("fox"))
	assert.Equal(t, token.THIS, token.LookupIdent("this"))
	assert.Equal(t, token.TRUE, token.LookupIdent("true"))
	assert.Equal(t, token.IDENT, token.LookupIdent("th"))
}
