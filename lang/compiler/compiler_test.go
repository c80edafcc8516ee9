package compiler_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loxlang/loxvm/internal/config"
	"github.com/loxlang/loxvm/lang/compiler"
	"github.com/loxlang/loxvm/lang/vm"
)

func newHeap() *vm.Heap {
	return vm.NewHeap(config.Config{InitialGCThreshold: 1 << 20, GCGrowthFactor: 2}, zerolog.Nop())
}

func TestCompileValidProgram(t *testing.T) {
	fn, err := compiler.Compile(`print "hi" + " there";`, newHeap())
	require.NoError(t, err)
	assert.Nil(t, fn.Name)
}

func TestCompileReportsMultipleErrors(t *testing.T) {
	_, err := compiler.Compile(`
var = 1;
print ;
`, newHeap())
	require.Error(t, err)
	var cerr *compiler.CompileError
	require.ErrorAs(t, err, &cerr)
	assert.GreaterOrEqual(t, len(cerr.Errors), 2)
}

func TestCompileReturnOutsideFunction(t *testing.T) {
	_, err := compiler.Compile(`return 1;`, newHeap())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot return from top-level code")
}

func TestCompileThisOutsideClass(t *testing.T) {
	_, err := compiler.Compile(`print this;`, newHeap())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot use 'this'")
}

func TestCompileSelfInheritance(t *testing.T) {
	_, err := compiler.Compile(`class Oops < Oops {}`, newHeap())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot inherit from itself")
}

func TestCompileTooManyConstants(t *testing.T) {
	src := "var x = 0;\n"
	for i := 0; i < 300; i++ {
		src += `print "` + string(rune('a'+(i%26))) + `";` + "\n"
	}
	_, err := compiler.Compile(src, newHeap())
	require.Error(t, err)
}
