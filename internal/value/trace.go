package value

// Trace is implemented by anything that holds value references. Trace must
// hand every reference it owns to the tracer, which may overwrite it with a
// relocated copy.
//
// Object identity (Value.Identity) is not stable across a collection. A
// holder that caches identities must rebuild the cache inside Trace from its
// authoritative list of values.
type Trace interface {
	Trace(t *Tracer)
}

// Tracer relocates mutable objects during a collection and remembers where
// each one went, so shared and cyclic references stay shared and cyclic.
type Tracer struct {
	forward map[any]Value
	pending []Trace
	live    []any
}

func newTracer() *Tracer {
	return &Tracer{forward: make(map[any]Value)}
}

// Value rewrites *v in place with its relocated replacement.
func (t *Tracer) Value(v *Value) {
	*v = t.relocate(*v)
}

// Values rewrites each element of vs in place.
func (t *Tracer) Values(vs []Value) {
	for i := range vs {
		vs[i] = t.relocate(vs[i])
	}
}

func (t *Tracer) relocate(v Value) Value {
	if v.IsScalar() || v.Kind == KindModule || v.Frozen() {
		return v
	}
	id := v.Identity()
	if moved, ok := t.forward[id]; ok {
		return moved
	}
	out := Value{Kind: v.Kind}
	switch v.Kind {
	case KindList:
		nl := &List{Items: append([]Value(nil), v.List.Items...)}
		out.List = nl
		t.schedule(id, out, nl, nl)
	case KindDict:
		nd := v.Dict.clone()
		out.Dict = nd
		t.schedule(id, out, nd, nd)
	case KindFunction:
		nf := *v.Func
		nf.Captures = append([]Value(nil), v.Func.Captures...)
		out.Func = &nf
		t.schedule(id, out, &nf, &nf)
	case KindCaptured:
		nc := *v.Cell
		out.Cell = &nc
		t.schedule(id, out, &nc, &nc)
	case KindHost:
		nh := *v.Host
		out.Host = &nh
		t.forward[id] = out
		t.live = append(t.live, &nh)
	}
	return out
}

// schedule registers the copy before its children are visited.
func (t *Tracer) schedule(id any, moved Value, obj any, children Trace) {
	t.forward[id] = moved
	t.live = append(t.live, obj)
	t.pending = append(t.pending, children)
}

func (t *Tracer) drain() {
	for len(t.pending) > 0 {
		next := t.pending[len(t.pending)-1]
		t.pending = t.pending[:len(t.pending)-1]
		next.Trace(t)
	}
}
