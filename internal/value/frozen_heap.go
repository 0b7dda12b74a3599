package value

// FrozenHeap collects the objects produced by freezing, plus constants a
// module allocates as already frozen. Once sealed with Into it never changes.
type FrozenHeap struct {
	objects []any
	refs    []*FrozenHeapRef
	sealed  bool
}

func NewFrozenHeap() *FrozenHeap {
	return &FrozenHeap{}
}

func (h *FrozenHeap) alloc(obj any) {
	if h.sealed {
		panic("allocation on a sealed frozen heap")
	}
	h.objects = append(h.objects, obj)
}

// AddReference keeps other alive for as long as this heap is alive. Adding
// the same heap twice is a no-op.
func (h *FrozenHeap) AddReference(other *FrozenHeapRef) {
	if other == nil {
		return
	}
	for _, r := range h.refs {
		if r == other {
			return
		}
	}
	h.refs = append(h.refs, other)
}

// NewFunction allocates a native function constant. Native functions carry
// no module state, so they are frozen from the start.
func (h *FrozenHeap) NewFunction(name string, params []string, native NativeFunc) FrozenValue {
	fn := &Function{Name: name, Params: params, Native: native, frozen: true}
	h.alloc(fn)
	return FrozenValue{v: Value{Kind: KindFunction, Func: fn}}
}

// Len reports how many objects the heap owns.
func (h *FrozenHeap) Len() int {
	return len(h.objects)
}

// Into seals the heap and returns the shareable handle to it.
func (h *FrozenHeap) Into() *FrozenHeapRef {
	h.sealed = true
	return &FrozenHeapRef{heap: h}
}

// FrozenHeapRef is a shareable handle on a sealed frozen heap. Everything
// reachable through it is immutable and safe for concurrent readers.
type FrozenHeapRef struct {
	heap *FrozenHeap
}

// Len reports how many objects the heap owns.
func (r *FrozenHeapRef) Len() int {
	return r.heap.Len()
}

// References returns the heaps this heap keeps alive.
func (r *FrozenHeapRef) References() []*FrozenHeapRef {
	out := make([]*FrozenHeapRef, len(r.heap.refs))
	copy(out, r.heap.refs)
	return out
}

// OwnedFrozenValue pairs a frozen value with the heap that keeps it alive.
type OwnedFrozenValue struct {
	owner *FrozenHeapRef
	v     FrozenValue
}

// NewOwnedFrozenValue ties v to owner.
func NewOwnedFrozenValue(owner *FrozenHeapRef, v FrozenValue) OwnedFrozenValue {
	return OwnedFrozenValue{owner: owner, v: v}
}

func (o OwnedFrozenValue) Value() FrozenValue {
	return o.v
}

func (o OwnedFrozenValue) Owner() *FrozenHeapRef {
	return o.owner
}

// OwnedValue makes h keep the owning heap alive and returns the plain value,
// which is then safe to store in anything backed by h.
func (o OwnedFrozenValue) OwnedValue(h *FrozenHeap) Value {
	h.AddReference(o.owner)
	return o.v.v
}
