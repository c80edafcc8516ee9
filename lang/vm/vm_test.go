package vm_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loxlang/loxvm/internal/config"
	"github.com/loxlang/loxvm/lang/compiler"
	"github.com/loxlang/loxvm/lang/vm"
)

func run(t *testing.T, src string) (stdout string, err error) {
	t.Helper()
	cfg := config.Config{InitialGCThreshold: 1 << 20, GCGrowthFactor: 2, MaxFrames: 64}
	heap := vm.NewHeap(cfg, zerolog.Nop())
	var buf bytes.Buffer
	machine := vm.New(heap, &buf, cfg)

	fn, cerr := compiler.Compile(src, heap)
	require.NoError(t, cerr)

	rerr := machine.Interpret(fn)
	return buf.String(), rerr
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, "foobar\n", out)
}

func TestGlobalsAndLocals(t *testing.T) {
	out, err := run(t, `
var a = 1;
{
  var a = 2;
  print a;
}
print a;
`)
	require.NoError(t, err)
	assert.Equal(t, "2\n1\n", out)
}

func TestControlFlow(t *testing.T) {
	out, err := run(t, `
var i = 0;
while (i < 3) {
  print i;
  i = i + 1;
}
`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestClosures(t *testing.T) {
	out, err := run(t, `
fun makeCounter() {
  var count = 0;
  fun increment() {
    count = count + 1;
    return count;
  }
  return increment;
}
var counter = makeCounter();
print counter();
print counter();
`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", out)
}

func TestClassesAndInheritance(t *testing.T) {
	out, err := run(t, `
class Animal {
  init(name) {
    this.name = name;
  }
  speak() {
    print this.name + " makes a sound";
  }
}
class Dog < Animal {
  speak() {
    print this.name + " barks";
  }
  parentSpeak() {
    super.speak();
  }
}
var d = Dog("Rex");
d.speak();
d.parentSpeak();
`)
	require.NoError(t, err)
	assert.Equal(t, "Rex barks\nRex makes a sound\n", out)
}

func TestRuntimeErrorUndefinedVariable(t *testing.T) {
	_, err := run(t, `print nonexistent;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable")
}

func TestRuntimeErrorTypeMismatch(t *testing.T) {
	_, err := run(t, `print 1 + "a";`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operands must be")
}

func TestStressGCDoesNotCorruptState(t *testing.T) {
	cfg := config.Config{StressGC: true, InitialGCThreshold: 1, GCGrowthFactor: 2, MaxFrames: 64}
	heap := vm.NewHeap(cfg, zerolog.Nop())
	var buf bytes.Buffer
	machine := vm.New(heap, &buf, cfg)

	fn, cerr := compiler.Compile(`
class Pair {
  init(a, b) {
    this.a = a;
    this.b = b;
  }
  sum() {
    return this.a + this.b;
  }
}
var total = 0;
for (var i = 0; i < 20; i = i + 1) {
  var p = Pair(i, i + 1);
  total = total + p.sum();
}
print total;
`, heap)
	require.NoError(t, cerr)
	require.NoError(t, machine.Interpret(fn))
	assert.Equal(t, "400\n", buf.String())
}
