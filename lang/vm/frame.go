package vm

import "github.com/loxlang/loxvm/lang/value"

// CallFrame is one activation record on the VM's call stack: the closure
// being executed, its instruction pointer into that closure's chunk, and
// the base index into the VM's value stack where its locals (including
// slot 0, the receiver or the callee itself) begin.
type CallFrame struct {
	closure *value.Closure
	ip      int
	slots   int
}

func (f *CallFrame) chunk() *value.Chunk { return f.closure.Function.Chunk }
