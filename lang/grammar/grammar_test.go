package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

// TestEBNF parses grammar.ebnf and verifies it is self-consistent: every
// production it references is itself defined, reachable from the start
// symbol, and not a redundant duplicate. It checks the grammar file on its
// own; it does not compare it with the compiler's hand-written parser.
func TestEBNF(t *testing.T) {
	f, err := os.Open("grammar.ebnf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse("grammar.ebnf", f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Program"); err != nil {
		t.Fatal(err)
	}
}
