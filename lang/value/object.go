package value

import "fmt"

// ObjType identifies the dynamic type of a heap object.
type ObjType uint8

//nolint:revive
const (
	ObjString ObjType = iota
	ObjFunction
	ObjNative
	ObjClosure
	ObjUpvalue
	ObjClass
	ObjInstance
	ObjBoundMethod
)

// Header is embedded in every heap object. It carries the GC mark bit and
// the intrusive next-pointer that threads every live object onto the heap's
// single allocation list (see vm.Heap). Objects are linked onto this list
// only by the heap's allocator entry points and unlinked only by the sweep
// phase.
type Header struct {
	Marked bool
	Next   Obj
}

// Obj is implemented by every heap-allocated runtime object.
type Obj interface {
	fmt.Stringer
	objType() ObjType
	typeName() string
	header() *Header
}

// ObjTypeOf reports the dynamic heap type of obj.
func ObjTypeOf(obj Obj) ObjType { return obj.objType() }

// HeaderOf exposes the GC header of obj for use by the collector.
func HeaderOf(obj Obj) *Header { return obj.header() }

// String is an immutable, interned sequence of bytes. Two String objects
// with equal content are always the same object (see vm.Heap.Intern), so
// equality on strings is pointer identity.
type String struct {
	Header
	Chars string
	Hash  uint32
}

func (s *String) objType() ObjType  { return ObjString }
func (s *String) typeName() string  { return "string" }
func (s *String) header() *Header   { return &s.Header }
func (s *String) String() string    { return s.Chars }

// FNV1a computes the 32-bit FNV-1a hash of s, used to key the string intern
// table and as String.Hash.
func FNV1a(s string) uint32 {
	const (
		offsetBasis uint32 = 2166136261
		prime       uint32 = 16777619
	)
	h := offsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Function is a fixed-arity compiled function: a name, arity, upvalue
// count, and the Chunk of bytecode the compiler emitted for its body. It is
// never mutated once compilation of its body completes.
type Function struct {
	Header
	Name         *String // nil for the top-level script function
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
}

func (f *Function) objType() ObjType { return ObjFunction }
func (f *Function) typeName() string { return "function" }
func (f *Function) header() *Header  { return &f.Header }
func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeFn is the calling convention for built-in functions: it receives
// the argument count and a slice of exactly that many arguments and
// returns a result value or an error.
type NativeFn func(argCount int, args []Value) (Value, error)

// Native wraps a Go function so it can be called from script code like any
// other Callable value.
type Native struct {
	Header
	Name string
	Fn   NativeFn
}

func (n *Native) objType() ObjType { return ObjNative }
func (n *Native) typeName() string { return "native" }
func (n *Native) header() *Header  { return &n.Header }
func (n *Native) String() string   { return fmt.Sprintf("<native fn %s>", n.Name) }

// Upvalue is either open -- Location points into the VM's value stack at a
// specific slot -- or closed, after the stack frame that owned the slot has
// returned, at which point Location points at the Upvalue's own Closed
// field. NextOpen threads the VM's list of currently-open upvalues, ordered
// by descending stack address; it is unrelated to Header.Next, which
// threads the heap-wide allocation list.
type Upvalue struct {
	Header
	Location *Value
	Closed   Value
	NextOpen *Upvalue

	// OpenSlot is the VM value-stack index Location points at while this
	// upvalue is open. It exists purely so the VM can order and compare
	// open upvalues without resorting to pointer arithmetic; it is
	// meaningless once Close has run.
	OpenSlot int
}

func (u *Upvalue) objType() ObjType { return ObjUpvalue }
func (u *Upvalue) typeName() string { return "upvalue" }
func (u *Upvalue) header() *Header  { return &u.Header }
func (u *Upvalue) String() string   { return "<upvalue>" }

// Close moves the value out of the stack slot it used to point at into the
// upvalue's own storage, and retargets Location at that storage, per the
// invariant that a closed upvalue's location points at its own closed field.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// Closure pairs a Function with the fixed-length array of Upvalues it
// captured, one per free variable referenced in its body.
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) objType() ObjType { return ObjClosure }
func (c *Closure) typeName() string { return "function" }
func (c *Closure) header() *Header  { return &c.Header }
func (c *Closure) String() string   { return c.Function.String() }

// StringKeyedMap is the hash table shape shared by a class's method table
// and an instance's field table: both are keyed by interned *String
// identity, so lookups are pointer comparisons, not content comparisons.
type StringKeyedMap interface {
	Get(key *String) (Value, bool)
	Set(key *String, val Value)
	Delete(key *String) bool
	Len() int
	Iter(func(key *String, val Value) bool)
}

// Class is a named bag of methods. Inheritance (OP_INHERIT) copies the
// superclass's method table into the subclass's by value at class-creation
// time; later additions to the superclass are deliberately not visible to
// already-created subclasses (see DESIGN.md).
type Class struct {
	Header
	Name    *String
	Methods StringKeyedMap
}

func (c *Class) objType() ObjType { return ObjClass }
func (c *Class) typeName() string { return "class" }
func (c *Class) header() *Header  { return &c.Header }
func (c *Class) String() string   { return c.Name.Chars }

// Instance is a class reference plus a mutable table of fields.
type Instance struct {
	Header
	Class  *Class
	Fields StringKeyedMap
}

func (i *Instance) objType() ObjType { return ObjInstance }
func (i *Instance) typeName() string { return "instance" }
func (i *Instance) header() *Header  { return &i.Header }
func (i *Instance) String() string   { return fmt.Sprintf("%s instance", i.Class.Name.Chars) }

// BoundMethod is created when a method is read off an instance as a
// property: it pairs the receiver with the method's Closure so that a
// later call supplies "this" implicitly.
type BoundMethod struct {
	Header
	Receiver Value
	Method   *Closure
}

func (b *BoundMethod) objType() ObjType { return ObjBoundMethod }
func (b *BoundMethod) typeName() string { return "function" }
func (b *BoundMethod) header() *Header  { return &b.Header }
func (b *BoundMethod) String() string   { return b.Method.String() }
