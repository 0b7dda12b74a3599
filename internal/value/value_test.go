package value_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/xirelogy/go-starenv/internal/value"
)

type socket struct{ addr string }

func (s *socket) Type() string   { return "socket" }
func (s *socket) String() string { return "<socket " + s.addr + ">" }

type label struct{ text string }

func (l *label) Type() string                { return "label" }
func (l *label) String() string              { return l.text }
func (l *label) Freeze() (value.Host, error) { return &label{text: l.text}, nil }

func cyclicList(h *value.Heap) value.Value {
	v := h.NewList([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	v.List.Items[1] = v
	return v
}

func TestFreezeSelfReferentialList(t *testing.T) {
	h := value.NewHeap()
	v := cyclicList(h)
	if v.List.Len() != 3 || v.List.Items[1].List.Len() != 3 {
		t.Fatalf("expected length 3 before freezing")
	}
	fz := value.NewFreezer(value.NewFrozenHeap())
	fv, err := fz.Freeze(v)
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	out := fv.ToValue()
	if !out.Frozen() {
		t.Fatalf("expected frozen list")
	}
	if out.List.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", out.List.Len())
	}
	inner := out.List.Items[1]
	if inner.List != out.List {
		t.Fatalf("expected cycle to be preserved")
	}
	if inner.List.Len() != 3 {
		t.Fatalf("expected inner length 3, got %d", inner.List.Len())
	}
	if got := value.Repr(out); got != "[1, [...], 3]" {
		t.Fatalf("unexpected repr %q", got)
	}
}

func TestFreezePreservesSharing(t *testing.T) {
	h := value.NewHeap()
	shared := h.NewList([]value.Value{value.String("x")})
	outer := h.NewList([]value.Value{shared, shared})
	fz := value.NewFreezer(value.NewFrozenHeap())
	a, err := fz.Freeze(shared)
	if err != nil {
		t.Fatalf("freeze shared: %v", err)
	}
	b, err := fz.Freeze(outer)
	if err != nil {
		t.Fatalf("freeze outer: %v", err)
	}
	items := b.ToValue().List.Items
	if !value.PtrEq(items[0], items[1]) {
		t.Fatalf("expected both items to be the same frozen list")
	}
	if !value.PtrEq(items[0], a.ToValue()) {
		t.Fatalf("expected repeated freeze to return the same frozen list")
	}
}

func TestFreezeMutualCycleDicts(t *testing.T) {
	h := value.NewHeap()
	a := h.NewDict()
	b := h.NewDict()
	if err := a.Dict.Set(value.String("peer"), b); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := b.Dict.Set(value.String("peer"), a); err != nil {
		t.Fatalf("set: %v", err)
	}
	fz := value.NewFreezer(value.NewFrozenHeap())
	fa, err := fz.Freeze(a)
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	peer, ok, _ := fa.ToValue().Dict.Get(value.String("peer"))
	if !ok || !peer.Frozen() {
		t.Fatalf("expected frozen peer")
	}
	back, _, _ := peer.Dict.Get(value.String("peer"))
	if back.Dict != fa.ToValue().Dict {
		t.Fatalf("expected mutual cycle to close on the frozen dict")
	}
	if err := fa.ToValue().Dict.Set(value.String("x"), value.None()); !errors.Is(err, value.ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestFreezeHostValues(t *testing.T) {
	h := value.NewHeap()
	ok := h.NewHost(&label{text: "hello"})
	fz := value.NewFreezer(value.NewFrozenHeap())
	fv, err := fz.Freeze(ok)
	if err != nil {
		t.Fatalf("freeze freezable host: %v", err)
	}
	if !fv.ToValue().Frozen() || fv.ToValue().Host.Value.String() != "hello" {
		t.Fatalf("unexpected frozen host %#v", fv.ToValue())
	}

	bad := h.NewList([]value.Value{h.NewHost(&socket{addr: "127.0.0.1"})})
	_, err = fz.Freeze(bad)
	var fe *value.FreezeError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FreezeError, got %v", err)
	}
	if fe.Type != "socket" || !strings.Contains(err.Error(), "[0]") {
		t.Fatalf("unexpected error %q", err.Error())
	}
}

func TestCapturedCell(t *testing.T) {
	h := value.NewHeap()
	cell := h.NewCaptured()
	if _, ok := value.CapturedGet(cell); ok {
		t.Fatalf("expected empty cell")
	}
	cell.Cell.Set(value.Int(7))
	empty := h.NewCaptured()

	fz := value.NewFreezer(value.NewFrozenHeap())
	fc, err := fz.Freeze(cell)
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	got, ok := value.CapturedGet(fc.ToValue())
	if !ok || got.Int != 7 {
		t.Fatalf("expected frozen cell holding 7, got %#v", got)
	}
	fe, err := fz.Freeze(empty)
	if err != nil {
		t.Fatalf("freeze empty: %v", err)
	}
	if _, ok := value.CapturedGet(fe.ToValue()); ok {
		t.Fatalf("expected frozen cell to stay empty")
	}
}

func TestCapturedCellRejectsCell(t *testing.T) {
	h := value.NewHeap()
	outer := h.NewCaptured()
	inner := h.NewCaptured()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when capturing a capture cell")
		}
	}()
	outer.Cell.Set(inner)
}

func TestFrozenFunctionUsesMagicBackpointer(t *testing.T) {
	h := value.NewHeap()
	cell := h.NewCaptured()
	cell.Cell.Set(value.String("captured"))
	fn := h.NewFunction(&value.Function{Name: "f", Captures: []value.Value{cell}}, nil)

	fz := value.NewFreezer(value.NewFrozenHeap())
	ff, err := fz.Freeze(fn)
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	frozen := ff.ToValue().Func
	if _, err := frozen.Global(0); err == nil {
		t.Fatalf("expected error before the backpointer is linked")
	}
	fz.SetMagic(fakeModule{value.Int(42)})
	got, err := frozen.Global(0)
	if err != nil || got.Int != 42 {
		t.Fatalf("expected slot 0 = 42, got %#v (%v)", got, err)
	}
	if c, ok := frozen.Capture(0); !ok || c.Str != "captured" {
		t.Fatalf("expected capture to survive freezing, got %#v", c)
	}
	if frozen.GlobalName(0) != "answer" {
		t.Fatalf("expected slot name, got %q", frozen.GlobalName(0))
	}
}

type fakeModule []value.Value

func (m fakeModule) GetSlot(i int) (value.Value, error) { return m[i], nil }
func (m fakeModule) SlotName(i int) (string, bool)      { return "answer", i == 0 }

func TestCollectRelocatesAndRewritesHolders(t *testing.T) {
	h := value.NewHeap()
	live := cyclicList(h)
	_ = h.NewList(nil) // garbage
	holder := &holder{vals: []value.Value{live, live}}
	before := live.Identity()

	h.Collect(holder)

	if h.Allocated() != 1 {
		t.Fatalf("expected 1 live object, got %d", h.Allocated())
	}
	moved := holder.vals[0]
	if moved.Identity() == before {
		t.Fatalf("expected relocation to change identity")
	}
	if !value.PtrEq(holder.vals[0], holder.vals[1]) {
		t.Fatalf("expected shared reference to stay shared")
	}
	if moved.List.Items[1].List != moved.List {
		t.Fatalf("expected cycle to point at the relocated list")
	}
	if h.Collections() != 1 {
		t.Fatalf("expected collection count 1")
	}
}

type holder struct{ vals []value.Value }

func (h *holder) Trace(t *value.Tracer) { t.Values(h.vals) }

func TestHeapDropIsFinal(t *testing.T) {
	h := value.NewHeap()
	h.NewList(nil)
	h.Drop()
	if !h.Dropped() || h.Allocated() != 0 {
		t.Fatalf("expected released heap")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on allocation after drop")
		}
	}()
	h.NewDict()
}

func TestOwnedValueAddsReference(t *testing.T) {
	src := value.NewFrozenHeap()
	v := src.NewFunction("noop", nil, func([]value.Value) (value.Value, error) {
		return value.None(), nil
	})
	owner := src.Into()
	owned := value.NewOwnedFrozenValue(owner, v)

	dst := value.NewFrozenHeap()
	got := owned.OwnedValue(dst)
	owned.OwnedValue(dst)
	if got.Func != v.ToValue().Func || !got.Frozen() {
		t.Fatalf("expected the same frozen function")
	}
	refs := dst.Into().References()
	if len(refs) != 1 || refs[0] != owner {
		t.Fatalf("expected exactly one reference to the source heap, got %d", len(refs))
	}
}

func TestEqualIsCycleSafe(t *testing.T) {
	h := value.NewHeap()
	a := cyclicList(h)
	b := cyclicList(h)
	if !value.Equal(a, b) {
		t.Fatalf("expected structurally equal cyclic lists")
	}
	b.List.Items[2] = value.Int(4)
	if value.Equal(a, b) {
		t.Fatalf("expected lists to differ")
	}
}

func TestDescribe(t *testing.T) {
	h := value.NewHeap()
	fn := h.NewFunction(&value.Function{Name: "f", Params: []string{"a", "b"}}, nil)
	cases := []struct {
		name string
		v    value.Value
		want string
	}{
		{"x", value.Int(1), "x = 1"},
		{"s", value.String("hi"), `s = "hi"`},
		{"f", fn, "def f(a, b): ..."},
		{"n", value.None(), "n = None"},
	}
	for _, tc := range cases {
		if got := value.Describe(tc.name, tc.v); got != tc.want {
			t.Fatalf("Describe(%s) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
