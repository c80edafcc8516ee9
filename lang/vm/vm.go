package vm

import (
	"fmt"
	"io"

	"github.com/loxlang/loxvm/internal/config"
	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/value"
)

const slotsPerFrame = 256

// VM is a single-threaded bytecode interpreter: a value stack, a bounded
// stack of call frames, the list of currently-open upvalues (ordered by
// descending stack slot), and the globals table. It owns a *Heap, sharing
// it with whatever compiled the code it runs so that constants created
// during compilation and objects allocated during execution are collected
// together.
type VM struct {
	heap *Heap

	stack    []value.Value
	stackTop int

	frames     []CallFrame
	frameCount int
	framesMax  int

	openUpvalues *value.Upvalue

	globals value.StringKeyedMap

	stdout io.Writer
}

// New creates a VM backed by heap, writing OP_PRINT output to stdout, and
// registers its roots with the heap so collections triggered during
// execution see the value stack, call frames, open upvalues, and globals.
// cfg.MaxFrames bounds call-frame depth, the same knob the reference
// implementation fixes at compile time as FRAMES_MAX.
func New(heap *Heap, stdout io.Writer, cfg config.Config) *VM {
	framesMax := cfg.MaxFrames
	if framesMax <= 0 {
		framesMax = 64
	}
	vm := &VM{
		heap:      heap,
		stack:     make([]value.Value, framesMax*slotsPerFrame),
		frames:    make([]CallFrame, framesMax),
		framesMax: framesMax,
		globals:   value.NewStringKeyedMap(16),
		stdout:    stdout,
	}
	heap.SetRootMarker(vm.markRoots)
	installNatives(vm)
	return vm
}

func (vm *VM) markRoots(mark func(value.Value)) {
	for i := 0; i < vm.stackTop; i++ {
		mark(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(value.FromObj(vm.frames[i].closure))
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		mark(value.FromObj(uv))
	}
	vm.globals.Iter(func(k *value.String, v value.Value) bool {
		mark(value.FromObj(k))
		mark(v)
		return true
	})
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Interpret runs a freshly compiled top-level function to completion.
func (vm *VM) Interpret(script *value.Function) error {
	vm.resetStack()
	vm.push(value.FromObj(script))
	closure := vm.heap.NewClosure(script)
	vm.pop()
	vm.push(value.FromObj(closure))
	vm.callClosure(closure, 0)
	return vm.run()
}

func (vm *VM) trace() []string {
	out := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := f.chunk().GetLine(f.ip - 1)
		name := "script"
		if f.closure.Function.Name != nil {
			name = f.closure.Function.Name.Chars + "()"
		}
		out = append(out, fmt.Sprintf("[line %d] in %s", line, name))
	}
	return out
}

func (vm *VM) runtimeErrorf(format string, args ...any) *RuntimeError {
	return runtimeErrorf(vm.trace(), format, args...)
}

// run executes the dispatch loop for the current top call frame, returning
// when the outermost frame returns or a runtime error occurs.
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.chunk().Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := frame.chunk().Code[frame.ip]
		lo := frame.chunk().Code[frame.ip+1]
		frame.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return frame.chunk().Constants[readByte()]
	}
	readString := func() *value.String {
		return readConstant().AsObj().(*value.String)
	}

	for {
		op := chunk.OpCode(readByte())
		switch op {
		case chunk.OpConstant:
			vm.push(readConstant())

		case chunk.OpNil:
			vm.push(value.Nil)
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))
		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			vm.push(vm.stack[frame.slots+int(readByte())])
		case chunk.OpSetLocal:
			vm.stack[frame.slots+int(readByte())] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeErrorf("undefined variable '%s'", name.Chars)
			}
			vm.push(v)
		case chunk.OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case chunk.OpSetGlobal:
			name := readString()
			if _, ok := vm.globals.Get(name); !ok {
				return vm.runtimeErrorf("undefined variable '%s'", name.Chars)
			}
			vm.globals.Set(name, vm.peek(0))

		case chunk.OpGetUpvalue:
			vm.push(*frame.closure.Upvalues[readByte()].Location)
		case chunk.OpSetUpvalue:
			*frame.closure.Upvalues[readByte()].Location = vm.peek(0)

		case chunk.OpGetProperty:
			if !vm.peek(0).ObjIs(value.ObjInstance) {
				return vm.runtimeErrorf("only instances have properties")
			}
			inst := vm.peek(0).AsObj().(*value.Instance)
			name := readString()
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if !vm.bindMethod(inst.Class, name) {
				return vm.runtimeErrorf("undefined property '%s'", name.Chars)
			}

		case chunk.OpSetProperty:
			if !vm.peek(1).ObjIs(value.ObjInstance) {
				return vm.runtimeErrorf("only instances have fields")
			}
			inst := vm.peek(1).AsObj().(*value.Instance)
			inst.Fields.Set(readString(), vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case chunk.OpGetSuper:
			name := readString()
			super := vm.pop().AsObj().(*value.Class)
			if !vm.bindMethod(super, name) {
				return vm.runtimeErrorf("undefined property '%s'", name.Chars)
			}

		case chunk.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case chunk.OpGreater:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case chunk.OpAdd:
			if vm.peek(0).ObjIs(value.ObjString) && vm.peek(1).ObjIs(value.ObjString) {
				b := vm.pop().AsObj().(*value.String)
				a := vm.pop().AsObj().(*value.String)
				vm.push(value.FromObj(vm.heap.Concat(a, b)))
			} else if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
				b := vm.pop().AsNumber()
				a := vm.pop().AsNumber()
				vm.push(value.Number(a + b))
			} else {
				return vm.runtimeErrorf("operands must be two numbers or two strings")
			}
		case chunk.OpSubtract:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case chunk.OpNot:
			vm.push(value.Bool(!vm.pop().Truthy()))
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeErrorf("operand must be a number")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case chunk.OpJump:
			offset := readShort()
			frame.ip += offset
		case chunk.OpJumpIfFalse:
			offset := readShort()
			if !vm.peek(0).Truthy() {
				frame.ip += offset
			}
		case chunk.OpLoop:
			offset := readShort()
			frame.ip -= offset

		case chunk.OpCall:
			argCount := int(readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpInvoke:
			method := readString()
			argCount := int(readByte())
			if err := vm.invoke(method, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpSuperInvoke:
			method := readString()
			argCount := int(readByte())
			super := vm.pop().AsObj().(*value.Class)
			if err := vm.invokeFromClass(super, method, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpClosure:
			fn := readConstant().AsObj().(*value.Function)
			closure := vm.heap.NewClosure(fn)
			vm.push(value.FromObj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := int(readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slots + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = frame.slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpClass:
			vm.push(value.FromObj(vm.heap.NewClass(readString())))

		case chunk.OpInherit:
			if !vm.peek(1).ObjIs(value.ObjClass) {
				return vm.runtimeErrorf("superclass must be a class")
			}
			super := vm.peek(1).AsObj().(*value.Class)
			sub := vm.peek(0).AsObj().(*value.Class)
			sub.Methods = value.Clone(super.Methods)
			vm.pop()

		case chunk.OpMethod:
			vm.defineMethod(readString())

		default:
			return vm.runtimeErrorf("unknown opcode %d", op)
		}
	}
}

func (vm *VM) binaryNumberOp(op func(a, b float64) value.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorf("operands must be numbers")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return nil
}

func (vm *VM) callValue(callee value.Value, argCount int) error {
	if callee.IsObj() {
		switch obj := callee.AsObj().(type) {
		case *value.BoundMethod:
			vm.stack[vm.stackTop-argCount-1] = obj.Receiver
			return vm.callClosure(obj.Method, argCount)
		case *value.Class:
			inst := vm.heap.NewInstance(obj)
			vm.stack[vm.stackTop-argCount-1] = value.FromObj(inst)
			if initializer, ok := obj.Methods.Get(vm.heap.InitString()); ok {
				return vm.callClosure(initializer.AsObj().(*value.Closure), argCount)
			} else if argCount != 0 {
				return vm.runtimeErrorf("expected 0 arguments but got %d", argCount)
			}
			return nil
		case *value.Closure:
			return vm.callClosure(obj, argCount)
		case *value.Native:
			args := vm.stack[vm.stackTop-argCount : vm.stackTop]
			result, err := obj.Fn(argCount, args)
			if err != nil {
				return vm.runtimeErrorf("%s", err.Error())
			}
			vm.stackTop -= argCount + 1
			vm.push(result)
			return nil
		}
	}
	return vm.runtimeErrorf("can only call functions and classes")
}

func (vm *VM) callClosure(closure *value.Closure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeErrorf("expected %d arguments but got %d", closure.Function.Arity, argCount)
	}
	if vm.frameCount == vm.framesMax {
		return vm.runtimeErrorf("stack overflow")
	}
	f := &vm.frames[vm.frameCount]
	vm.frameCount++
	f.closure = closure
	f.ip = 0
	f.slots = vm.stackTop - argCount - 1
	return nil
}

func (vm *VM) invoke(name *value.String, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.ObjIs(value.ObjInstance) {
		return vm.runtimeErrorf("only instances have methods")
	}
	inst := receiver.AsObj().(*value.Instance)
	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *value.Class, name *value.String, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeErrorf("undefined property '%s'", name.Chars)
	}
	return vm.callClosure(method.AsObj().(*value.Closure), argCount)
}

func (vm *VM) bindMethod(class *value.Class, name *value.String) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		return false
	}
	bound := vm.heap.NewBoundMethod(vm.peek(0), method.AsObj().(*value.Closure))
	vm.pop()
	vm.push(value.FromObj(bound))
	return true
}

func (vm *VM) defineMethod(name *value.String) {
	method := vm.peek(0)
	class := vm.peek(1).AsObj().(*value.Class)
	class.Methods.Set(name, method)
	vm.pop()
}

// captureUpvalue returns the open upvalue for stack slot, reusing an
// existing one if the VM already has one open for that slot, and otherwise
// allocating a new one and inserting it into openUpvalues in descending
// slot order.
func (vm *VM) captureUpvalue(slot int) *value.Upvalue {
	var prev *value.Upvalue
	uv := vm.openUpvalues
	for uv != nil && uv.OpenSlot > slot {
		prev = uv
		uv = uv.NextOpen
	}
	if uv != nil && uv.OpenSlot == slot {
		return uv
	}
	created := vm.heap.NewUpvalue(&vm.stack[slot], slot)
	created.NextOpen = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue pointing at slot last or above,
// moving each one's value out of the stack before the frame that owns it
// is discarded.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.OpenSlot >= last {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
	}
}
