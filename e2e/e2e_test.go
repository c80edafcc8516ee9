// Package e2e runs whole .lox programs under testdata/ end to end -- scan,
// compile, execute -- and diffs the captured stdout against a golden .want
// file.
package e2e

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/rs/zerolog"

	"github.com/loxlang/loxvm/internal/config"
	"github.com/loxlang/loxvm/lang/compiler"
	"github.com/loxlang/loxvm/lang/vm"
)

var update = flag.Bool("test.update-e2e-tests", false, "update e2e golden .want files with the actual output")

// scenarios lists the .lox programs under dir, skipping their .want goldens.
func scenarios(t *testing.T, dir string) []string {
	t.Helper()

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, dent := range dents {
		if dent.Type().IsRegular() && filepath.Ext(dent.Name()) == ".lox" {
			names = append(names, dent.Name())
		}
	}
	return names
}

// diffGolden compares got against the .want file for name in dir. With
// -test.update-e2e-tests it overwrites the golden file instead of failing.
func diffGolden(t *testing.T, dir, name, got string) {
	t.Helper()

	wantFile := filepath.Join(dir, name+".want")
	if *update {
		if err := os.WriteFile(wantFile, []byte(got), 0600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(wantFile)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	want := string(wantb)
	if patch := diff.Diff(want, got); patch != "" {
		t.Errorf("output mismatch for %s:\n%s\n", name, patch)
	}
}

func TestScenarios(t *testing.T) {
	const dir = "testdata"
	for _, name := range scenarios(t, dir) {
		name := name
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				t.Fatal(err)
			}

			cfg := config.Config{InitialGCThreshold: 1 << 16, GCGrowthFactor: 2, MaxFrames: 64}
			heap := vm.NewHeap(cfg, zerolog.Nop())
			var out bytes.Buffer
			machine := vm.New(heap, &out, cfg)

			fn, cerr := compiler.Compile(string(src), heap)
			if cerr != nil {
				out.WriteString(cerr.Error() + "\n")
			} else if rerr := machine.Interpret(fn); rerr != nil {
				out.WriteString(rerr.Error() + "\n")
			}

			diffGolden(t, dir, name, out.String())
		})
	}
}
