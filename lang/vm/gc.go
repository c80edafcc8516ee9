package vm

import "github.com/loxlang/loxvm/lang/value"

// Collect runs one full tri-color mark-sweep cycle: mark every root reachable
// object black, then sweep the allocation list, freeing everything left
// white and evicting white entries from the string intern table.
func (h *Heap) Collect() {
	before := h.bytesAllocated
	h.markRoots()
	h.traceReferences()
	swept := h.sweep()
	h.nextGC = h.bytesAllocated * h.growthFactor

	if h.logGC {
		h.log.Debug().
			Int("before", before).
			Int("after", h.bytesAllocated).
			Int("swept", swept).
			Int("next_gc", h.nextGC).
			Msg("gc collect")
	}
}

// mark grays obj: if it is currently white, it is flipped to black-pending
// (Marked=true) and pushed onto the gray worklist for traceReferences to
// blacken by visiting its own references.
func (h *Heap) mark(obj value.Obj) {
	if obj == nil {
		return
	}
	hdr := value.HeaderOf(obj)
	if hdr.Marked {
		return
	}
	hdr.Marked = true
	h.gray = append(h.gray, obj)
}

// markValue marks v's referenced object, if v holds one.
func (h *Heap) markValue(v value.Value) {
	if v.IsObj() {
		h.mark(v.AsObj())
	}
}

func (h *Heap) markRoots() {
	for _, fn := range h.compilerRoots {
		h.mark(fn)
	}
	h.mark(h.initString)
	if h.markExtraRoots != nil {
		h.markExtraRoots(h.markValue)
	}
}

// traceReferences drains the gray worklist, blackening each object by
// marking whatever it refers to, until no gray objects remain.
func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		obj := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(obj)
	}
}

// blacken marks every object reachable directly from obj.
func (h *Heap) blacken(obj value.Obj) {
	switch o := obj.(type) {
	case *value.String, *value.Native:
		// No outgoing references.
	case *value.Function:
		h.mark(o.Name)
		for _, c := range o.Chunk.Constants {
			h.markValue(c)
		}
	case *value.Closure:
		h.mark(o.Function)
		for _, uv := range o.Upvalues {
			h.mark(uv)
		}
	case *value.Upvalue:
		h.markValue(o.Closed)
	case *value.Class:
		h.mark(o.Name)
		o.Methods.Iter(func(k *value.String, v value.Value) bool {
			h.mark(k)
			h.markValue(v)
			return true
		})
	case *value.Instance:
		h.mark(o.Class)
		o.Fields.Iter(func(k *value.String, v value.Value) bool {
			h.mark(k)
			h.markValue(v)
			return true
		})
	case *value.BoundMethod:
		h.markValue(o.Receiver)
		h.mark(o.Method)
	}
}

// sweep walks the allocation list, unlinking and discarding every object
// left white, and removes newly-dead strings from the intern table. It
// returns the number of objects freed.
func (h *Heap) sweep() int {
	h.sweepStrings()

	freed := 0
	var prev value.Obj
	obj := h.objects
	for obj != nil {
		hdr := value.HeaderOf(obj)
		next := hdr.Next
		if hdr.Marked {
			hdr.Marked = false
			prev = obj
		} else {
			if prev == nil {
				h.objects = next
			} else {
				value.HeaderOf(prev).Next = next
			}
			h.bytesAllocated -= sizeOf(obj)
			freed++
		}
		obj = next
	}
	return freed
}

// sweepStrings removes intern-table entries whose String is about to be
// freed. It must run before unlinking, since Marked is still set on the
// survivors at this point.
func (h *Heap) sweepStrings() {
	var dead []string
	h.strings.Iter(func(k string, s *value.String) bool {
		if !value.HeaderOf(s).Marked {
			dead = append(dead, k)
		}
		return false // swiss.Map.Iter stops when the callback returns true
	})
	for _, k := range dead {
		h.strings.Delete(k)
	}
}

func sizeOf(obj value.Obj) int {
	switch o := obj.(type) {
	case *value.String:
		return sizeofString + len(o.Chars)
	case *value.Function:
		return sizeofFunction
	case *value.Native:
		return sizeofNative
	case *value.Closure:
		return sizeofClosure + 8*len(o.Upvalues)
	case *value.Upvalue:
		return sizeofUpvalue
	case *value.Class:
		return sizeofClass
	case *value.Instance:
		return sizeofInstance
	case *value.BoundMethod:
		return sizeofBoundMethod
	default:
		return 0
	}
}
