// Package vm implements the register-less stack virtual machine that
// executes compiled bytecode, and the managed heap (object allocator,
// string intern table, and tracing mark-sweep collector) it shares with the
// compiler. The two are kept in one package because, per the interpreter's
// design, they interact constantly: allocation during compilation can
// trigger collection, and collection must see roots from both sides.
package vm

import (
	"github.com/dolthub/swiss"
	"github.com/rs/zerolog"

	"github.com/loxlang/loxvm/internal/config"
	"github.com/loxlang/loxvm/lang/value"
)

// Heap owns every object allocated while compiling or running a program: the
// intrusive allocation list threaded through value.Header.Next, the string
// intern table, and the GC accounting (bytesAllocated/nextGC) that decides
// when to collect.
type Heap struct {
	objects value.Obj

	bytesAllocated int
	nextGC         int
	growthFactor   int
	stressGC       bool
	logGC          bool

	strings *swiss.Map[string, *value.String]

	// initString is the canonical interned "init" string, looked up on every
	// class instantiation to find the initializer method without allocating.
	initString *value.String

	// compilerRoots holds in-progress Function objects registered by an
	// active compilation (see PushCompilerRoot), so that
	// allocations made while compiling -- e.g. interning a string constant --
	// cannot collect a function the compiler is still building.
	compilerRoots []*value.Function

	// markExtraRoots, when set by a VM, marks its own roots (value stack,
	// call frames, open upvalues, globals) during a collection. It is nil
	// while only the compiler is using the heap (e.g. tooling that compiles
	// without running).
	markExtraRoots func(mark func(value.Value))

	gray []value.Obj

	log zerolog.Logger
}

// NewHeap creates an empty heap configured from cfg.
func NewHeap(cfg config.Config, log zerolog.Logger) *Heap {
	h := &Heap{
		nextGC:       cfg.InitialGCThreshold,
		growthFactor: cfg.GCGrowthFactor,
		stressGC:     cfg.StressGC,
		logGC:        cfg.LogGC,
		strings:      swiss.NewMap[string, *value.String](64),
		log:          log,
	}
	if h.growthFactor < 2 {
		h.growthFactor = 2
	}
	h.initString = h.Intern("init")
	return h
}

// InitString returns the canonical interned "init" string.
func (h *Heap) InitString() *value.String { return h.initString }

// SetRootMarker installs the callback a VM uses to mark its own roots
// during collection.
func (h *Heap) SetRootMarker(fn func(mark func(value.Value))) {
	h.markExtraRoots = fn
}

// PushCompilerRoot registers fn as a GC root for the duration of its
// compilation.
func (h *Heap) PushCompilerRoot(fn *value.Function) {
	h.compilerRoots = append(h.compilerRoots, fn)
}

// PopCompilerRoot unregisters the most recently pushed compiler root.
func (h *Heap) PopCompilerRoot() {
	h.compilerRoots = h.compilerRoots[:len(h.compilerRoots)-1]
}

// account records newly-allocated bytes and triggers a collection if the
// heap has grown past its threshold (or always, in stress mode). It must be
// called before the new object is reachable from any live Value, per the
// design note in SPEC_FULL.md: allocation never creates a black-to-white
// edge because nothing has been marked black yet when this runs.
func (h *Heap) account(size int) {
	h.bytesAllocated += size
	if h.stressGC || h.bytesAllocated > h.nextGC {
		h.Collect()
	}
}

func (h *Heap) link(o value.Obj) {
	value.HeaderOf(o).Next = h.objects
	h.objects = o
}

const (
	sizeofString     = 32
	sizeofFunction   = 64
	sizeofNative     = 32
	sizeofClosure    = 40
	sizeofUpvalue    = 24
	sizeofClass      = 32
	sizeofInstance   = 32
	sizeofBoundMethod = 24
)

// Intern returns the canonical *value.String for chars, allocating and
// linking a new one only if this content has never been seen before. Two
// calls with equal content always return the same object, establishing the
// identity-equality invariant for strings.
func (h *Heap) Intern(chars string) *value.String {
	if s, ok := h.strings.Get(chars); ok {
		return s
	}
	h.account(sizeofString + len(chars))
	s := &value.String{Chars: chars, Hash: value.FNV1a(chars)}
	h.link(s)
	h.strings.Put(chars, s)
	return s
}

// NewFunction allocates an (initially anonymous) function object owning a
// fresh, empty Chunk.
func (h *Heap) NewFunction() *value.Function {
	h.account(sizeofFunction)
	f := &value.Function{Chunk: &value.Chunk{}}
	h.link(f)
	return f
}

// NewNative wraps fn as a callable heap object named name.
func (h *Heap) NewNative(name string, fn value.NativeFn) *value.Native {
	h.account(sizeofNative)
	n := &value.Native{Name: name, Fn: fn}
	h.link(n)
	return n
}

// NewClosure allocates a closure over function with space for its upvalues.
func (h *Heap) NewClosure(function *value.Function) *value.Closure {
	h.account(sizeofClosure + 8*function.UpvalueCount)
	c := &value.Closure{Function: function, Upvalues: make([]*value.Upvalue, function.UpvalueCount)}
	h.link(c)
	return c
}

// NewUpvalue allocates an open upvalue pointing at the given stack slot.
func (h *Heap) NewUpvalue(slot *value.Value, slotIndex int) *value.Upvalue {
	h.account(sizeofUpvalue)
	u := &value.Upvalue{Location: slot, OpenSlot: slotIndex}
	h.link(u)
	return u
}

// NewClass allocates a class named by the given interned string, with an
// empty method table.
func (h *Heap) NewClass(name *value.String) *value.Class {
	h.account(sizeofClass)
	c := &value.Class{Name: name, Methods: value.NewStringKeyedMap(8)}
	h.link(c)
	return c
}

// NewInstance allocates an instance of class with an empty field table.
func (h *Heap) NewInstance(class *value.Class) *value.Instance {
	h.account(sizeofInstance)
	i := &value.Instance{Class: class, Fields: value.NewStringKeyedMap(4)}
	h.link(i)
	return i
}

// NewBoundMethod allocates a method bound to receiver.
func (h *Heap) NewBoundMethod(receiver value.Value, method *value.Closure) *value.BoundMethod {
	h.account(sizeofBoundMethod)
	b := &value.BoundMethod{Receiver: receiver, Method: method}
	h.link(b)
	return b
}

// Concat allocates the interned string that is the byte-concatenation of a
// and b, used by OP_ADD's string overload.
func (h *Heap) Concat(a, b *value.String) *value.String {
	return h.Intern(a.Chars + b.Chars)
}
