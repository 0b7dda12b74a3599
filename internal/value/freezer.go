package value

import (
	"fmt"
	"strings"
)

// FreezeError reports a value that could not be moved to the frozen heap.
// It aborts the whole freeze.
type FreezeError struct {
	Path  []string
	Type  string
	Cause error
}

func (e *FreezeError) Error() string {
	msg := fmt.Sprintf("cannot freeze value of type '%s'", e.Type)
	if len(e.Path) > 0 {
		msg = fmt.Sprintf("%s at %s", msg, strings.Join(e.Path, ""))
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}
	return msg
}

// Unwrap exposes the cause reported by a FreezableHost, if any.
func (e *FreezeError) Unwrap() error {
	return e.Cause
}

// Within prefixes the failure path with a location segment.
func (e *FreezeError) Within(segment string) *FreezeError {
	e.Path = append([]string{segment}, e.Path...)
	return e
}

// Freezer moves mutable objects onto a frozen heap. One Freezer is used for
// one whole freeze: it remembers every object it has produced, so shared
// references stay shared and cycles terminate.
type Freezer struct {
	heap      *FrozenHeap
	lists     map[*List]*List
	dicts     map[*Dict]*Dict
	functions map[*Function]*Function
	cells     map[*Captured]*Captured
	hosts     map[*HostObject]*HostObject
	magic     *ModuleRef
}

func NewFreezer(heap *FrozenHeap) *Freezer {
	magic := &ModuleRef{}
	heap.alloc(magic)
	return &Freezer{
		heap:      heap,
		lists:     make(map[*List]*List),
		dicts:     make(map[*Dict]*Dict),
		functions: make(map[*Function]*Function),
		cells:     make(map[*Captured]*Captured),
		hosts:     make(map[*HostObject]*HostObject),
		magic:     magic,
	}
}

// Magic returns the module placeholder that frozen functions point at. It
// becomes usable once SetMagic links it.
func (fz *Freezer) Magic() FrozenValue {
	return FrozenValue{v: Value{Kind: KindModule, Mod: fz.magic}}
}

// SetMagic links the placeholder to the finished module. It may be called once.
func (fz *Freezer) SetMagic(data ModuleData) {
	if fz.magic.data != nil {
		panic("module backpointer already set")
	}
	fz.magic.data = data
}

// Into seals the frozen heap.
func (fz *Freezer) Into() *FrozenHeapRef {
	return fz.heap.Into()
}

// Freeze returns the frozen counterpart of v. Already frozen values are
// returned unchanged.
func (fz *Freezer) Freeze(v Value) (FrozenValue, error) {
	if v.Frozen() {
		return FrozenValue{v: v}, nil
	}
	switch v.Kind {
	case KindList:
		l, err := fz.freezeList(v.List)
		return FrozenValue{v: Value{Kind: KindList, List: l}}, err
	case KindDict:
		d, err := fz.freezeDict(v.Dict)
		return FrozenValue{v: Value{Kind: KindDict, Dict: d}}, err
	case KindFunction:
		fn, err := fz.freezeFunction(v.Func)
		return FrozenValue{v: Value{Kind: KindFunction, Func: fn}}, err
	case KindCaptured:
		c, err := fz.freezeCaptured(v.Cell)
		return FrozenValue{v: Value{Kind: KindCaptured, Cell: c}}, err
	case KindHost:
		h, err := fz.freezeHost(v.Host)
		return FrozenValue{v: Value{Kind: KindHost, Host: h}}, err
	default:
		return FrozenValue{}, &FreezeError{Type: TypeName(v)}
	}
}

func (fz *Freezer) freezeList(l *List) (*List, error) {
	if frozen, ok := fz.lists[l]; ok {
		return frozen, nil
	}
	out := &List{Items: make([]Value, len(l.Items)), frozen: true}
	fz.lists[l] = out
	fz.heap.alloc(out)
	for i, item := range l.Items {
		fv, err := fz.Freeze(item)
		if err != nil {
			return nil, withSegment(err, fmt.Sprintf("[%d]", i))
		}
		out.Items[i] = fv.v
	}
	return out, nil
}

func (fz *Freezer) freezeDict(d *Dict) (*Dict, error) {
	if frozen, ok := fz.dicts[d]; ok {
		return frozen, nil
	}
	out := d.clone()
	out.frozen = true
	fz.dicts[d] = out
	fz.heap.alloc(out)
	for i := range out.vals {
		fv, err := fz.Freeze(out.vals[i])
		if err != nil {
			return nil, withSegment(err, fmt.Sprintf("[%s]", Repr(out.keys[i])))
		}
		out.vals[i] = fv.v
	}
	return out, nil
}

func (fz *Freezer) freezeFunction(fn *Function) (*Function, error) {
	if frozen, ok := fz.functions[fn]; ok {
		return frozen, nil
	}
	out := &Function{
		Name:   fn.Name,
		Params: fn.Params,
		Doc:    fn.Doc,
		Body:   fn.Body,
		Native: fn.Native,
		module: fz.Magic().v,
		frozen: true,
	}
	fz.functions[fn] = out
	fz.heap.alloc(out)
	if fn.Captures != nil {
		out.Captures = make([]Value, len(fn.Captures))
		for i, c := range fn.Captures {
			fv, err := fz.Freeze(c)
			if err != nil {
				return nil, withSegment(err, fmt.Sprintf(".%s<capture %d>", fn.Name, i))
			}
			out.Captures[i] = fv.v
		}
	}
	return out, nil
}

func (fz *Freezer) freezeCaptured(c *Captured) (*Captured, error) {
	if frozen, ok := fz.cells[c]; ok {
		return frozen, nil
	}
	out := &Captured{frozen: true}
	fz.cells[c] = out
	fz.heap.alloc(out)
	if c.present {
		fv, err := fz.Freeze(c.value)
		if err != nil {
			return nil, err
		}
		out.value = fv.v
		out.present = true
	}
	return out, nil
}

func (fz *Freezer) freezeHost(h *HostObject) (*HostObject, error) {
	if frozen, ok := fz.hosts[h]; ok {
		return frozen, nil
	}
	fh, ok := h.Value.(FreezableHost)
	if !ok {
		return nil, &FreezeError{Type: h.Value.Type()}
	}
	x, err := fh.Freeze()
	if err != nil {
		return nil, &FreezeError{Type: h.Value.Type(), Cause: err}
	}
	out := &HostObject{Value: x, frozen: true}
	fz.hosts[h] = out
	fz.heap.alloc(out)
	return out, nil
}

func withSegment(err error, segment string) error {
	if fe, ok := err.(*FreezeError); ok {
		return fe.Within(segment)
	}
	return err
}
