package value

// Heap owns the mutable objects allocated while a module executes. It is
// released in one step when the module is frozen.
type Heap struct {
	objects     []any
	dropped     bool
	collections int
}

func NewHeap() *Heap {
	return &Heap{objects: make([]any, 0, 64)}
}

func (h *Heap) alloc(obj any) {
	if h.dropped {
		panic("allocation on a heap that has been released")
	}
	h.objects = append(h.objects, obj)
}

// NewList allocates a list holding a copy of items.
func (h *Heap) NewList(items []Value) Value {
	l := &List{Items: append(make([]Value, 0, len(items)), items...)}
	h.alloc(l)
	return Value{Kind: KindList, List: l}
}

func (h *Heap) NewDict() Value {
	d := newDict()
	h.alloc(d)
	return Value{Kind: KindDict, Dict: d}
}

// NewFunction allocates fn, binding its globals to the defining module.
func (h *Heap) NewFunction(fn *Function, globals Globals) Value {
	fn.globals = globals
	fn.frozen = false
	h.alloc(fn)
	return Value{Kind: KindFunction, Func: fn}
}

// NewCaptured allocates an empty capture cell.
func (h *Heap) NewCaptured() Value {
	c := &Captured{}
	h.alloc(c)
	return Value{Kind: KindCaptured, Cell: c}
}

func (h *Heap) NewHost(x Host) Value {
	obj := &HostObject{Value: x}
	h.alloc(obj)
	return Value{Kind: KindHost, Host: obj}
}

// Allocated reports how many objects the heap currently owns.
func (h *Heap) Allocated() int {
	return len(h.objects)
}

// Collections reports how many collections have run.
func (h *Heap) Collections() int {
	return h.collections
}

// Dropped reports whether the heap has been released.
func (h *Heap) Dropped() bool {
	return h.dropped
}

// Collect copies every object reachable from roots to fresh storage and
// rewrites the roots (and everything they reach) to point at the copies.
// Unreachable objects are released. Identities observed before the call are
// invalid afterwards.
func (h *Heap) Collect(roots ...Trace) {
	if h.dropped {
		panic("collection on a heap that has been released")
	}
	t := newTracer()
	for _, r := range roots {
		if r != nil {
			r.Trace(t)
		}
	}
	t.drain()
	h.objects = t.live
	h.collections++
}

// Drop releases every object in bulk without walking the graph. Values from
// this heap must not be used afterwards.
func (h *Heap) Drop() {
	h.objects = nil
	h.dropped = true
}
