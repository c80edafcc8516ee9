// Package value defines the runtime value representation shared by the
// compiler and the virtual machine: the tagged Value union and the heap
// object model it can reference.
//
// This mirrors the split the reference toolchain uses between its "types"
// package (pure value definitions) and its "machine" package (the execution
// engine that allocates and interprets them) — see package vm.
package value

import "fmt"

// Kind identifies which alternative of the Value union is populated.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is a dynamically-typed scalar: exactly one of nil, boolean, a
// 64-bit float, or a heap reference. This implementation represents it as a
// small tagged struct rather than a NaN-boxed 64-bit word; the two
// representations are semantically interchangeable (see DESIGN.md).
type Value struct {
	kind Kind
	b    bool
	n    float64
	obj  Obj
}

// Nil is the language's single nil value.
var Nil = Value{kind: KindNil}

// Bool returns the Value wrapping b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns the Value wrapping the float64 n.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// FromObj returns the Value wrapping the heap reference obj. obj must not be
// nil; use Nil for the absence of a value.
func FromObj(obj Obj) Value { return Value{kind: KindObj, obj: obj} }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObj() bool    { return v.kind == KindObj }

// AsBool returns the boolean payload. The caller must have checked IsBool.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the float64 payload. The caller must have checked IsNumber.
func (v Value) AsNumber() float64 { return v.n }

// AsObj returns the heap reference payload. The caller must have checked IsObj.
func (v Value) AsObj() Obj { return v.obj }

// ObjIs reports whether v wraps a heap reference whose dynamic object type
// is t.
func (v Value) ObjIs(t ObjType) bool {
	return v.kind == KindObj && v.obj.objType() == t
}

// Truthy implements the language's falsey rule: nil and false are falsey,
// everything else -- including zero and the empty string -- is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Type returns a short type name, used by runtime error messages and the
// "type" native.
func (v Value) Type() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindObj:
		return v.obj.typeName()
	default:
		return "unknown"
	}
}

// String formats v the way PRINT and the str native do.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.n)
	case KindObj:
		return v.obj.String()
	default:
		return "?"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

// Equal implements the language's polymorphic equality: nil equals only
// nil, booleans and numbers compare by value (so NaN is not equal to
// itself, matching IEEE-754), and heap references compare by identity
// (strings are interned, so equal content implies equal identity).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindObj:
		if sa, ok := a.obj.(*String); ok {
			sb, ok := b.obj.(*String)
			return ok && sa == sb
		}
		return a.obj == b.obj
	default:
		return false
	}
}
