package value

import "github.com/dolthub/swiss"

// swissStringMap is the StringKeyedMap implementation used for class method
// tables, instance field tables, and the VM's globals,
// backed by a Swiss table for cache-friendly lookups keyed on interned
// *String identity.
type swissStringMap struct {
	m *swiss.Map[*String, Value]
}

// NewStringKeyedMap returns an empty table with initial capacity for at
// least size entries.
func NewStringKeyedMap(size int) StringKeyedMap {
	if size < 1 {
		size = 1
	}
	return &swissStringMap{m: swiss.NewMap[*String, Value](uint32(size))}
}

func (t *swissStringMap) Get(key *String) (Value, bool) {
	return t.m.Get(key)
}

func (t *swissStringMap) Set(key *String, val Value) {
	t.m.Put(key, val)
}

func (t *swissStringMap) Delete(key *String) bool {
	return t.m.Delete(key)
}

func (t *swissStringMap) Len() int {
	return t.m.Count()
}

func (t *swissStringMap) Iter(fn func(key *String, val Value) bool) {
	t.m.Iter(func(k *String, v Value) bool {
		return !fn(k, v)
	})
}

// Clone returns a shallow copy of src: a new table with the same key/value
// pairs, used by OP_INHERIT to copy a superclass's method table into a
// subclass at class-creation time.
func Clone(src StringKeyedMap) StringKeyedMap {
	dst := NewStringKeyedMap(src.Len())
	src.Iter(func(k *String, v Value) bool {
		dst.Set(k, v)
		return true
	})
	return dst
}
