package env

import (
	"fmt"

	"github.com/xirelogy/go-starenv/internal/value"
)

type slotValue struct {
	v       value.Value
	present bool
}

// MutableSlots holds the values of a module while it executes. The slot
// array is a root for collection and for freezing.
type MutableSlots struct {
	values []slotValue
}

func NewMutableSlots() *MutableSlots {
	return &MutableSlots{}
}

func (s *MutableSlots) Len() int {
	return len(s.values)
}

// Ensure grows the array so slot is addressable. New slots are absent.
func (s *MutableSlots) Ensure(slot Slot) {
	if int(slot) < len(s.values) {
		return
	}
	grown := make([]slotValue, int(slot)+1)
	copy(grown, s.values)
	s.values = grown
}

func (s *MutableSlots) Set(slot Slot, v value.Value) error {
	if slot < 0 || int(slot) >= len(s.values) {
		return &EnvironmentError{Kind: SlotOutOfRange, Slot: slot, Len: len(s.values)}
	}
	s.values[slot] = slotValue{v: v, present: true}
	return nil
}

// Get reads a slot. A slot that was never allocated and a slot that was
// allocated but never assigned fail with different kinds.
func (s *MutableSlots) Get(slot Slot) (value.Value, error) {
	if slot < 0 || int(slot) >= len(s.values) {
		return value.Value{}, &EnvironmentError{Kind: SlotOutOfRange, Slot: slot, Len: len(s.values)}
	}
	sv := s.values[slot]
	if !sv.present {
		return value.Value{}, &EnvironmentError{Kind: SlotAbsent, Slot: slot}
	}
	return sv.v, nil
}

// GetSlot satisfies value.Globals.
func (s *MutableSlots) GetSlot(slot int) (value.Value, error) {
	return s.Get(Slot(slot))
}

func (s *MutableSlots) Trace(t *value.Tracer) {
	for i := range s.values {
		if s.values[i].present {
			t.Value(&s.values[i].v)
		}
	}
}

// Freeze moves every present value to the frozen heap. Index i before maps
// to index i after; absent slots stay absent.
func (s *MutableSlots) Freeze(fz *value.Freezer) (*FrozenSlots, error) {
	out := &FrozenSlots{values: make([]frozenSlotValue, len(s.values))}
	for i, sv := range s.values {
		if !sv.present {
			continue
		}
		fv, err := fz.Freeze(sv.v)
		if err != nil {
			return nil, &SlotFreezeError{Slot: Slot(i), Err: err}
		}
		out.values[i] = frozenSlotValue{v: fv, present: true}
	}
	return out, nil
}

// SlotFreezeError locates a freeze failure at the slot that reached it.
type SlotFreezeError struct {
	Slot Slot
	Name string
	Err  error
}

func (e *SlotFreezeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("freezing `%s`: %s", e.Name, e.Err.Error())
	}
	return fmt.Sprintf("freezing slot %d: %s", e.Slot, e.Err.Error())
}

func (e *SlotFreezeError) Unwrap() error {
	return e.Err
}

type frozenSlotValue struct {
	v       value.FrozenValue
	present bool
}

// FrozenSlots is the immutable slot array of a frozen module.
type FrozenSlots struct {
	values []frozenSlotValue
}

func (s *FrozenSlots) Len() int {
	return len(s.values)
}

func (s *FrozenSlots) Get(slot Slot) (value.FrozenValue, error) {
	if slot < 0 || int(slot) >= len(s.values) {
		return value.FrozenValue{}, &EnvironmentError{Kind: SlotOutOfRange, Slot: slot, Len: len(s.values)}
	}
	sv := s.values[slot]
	if !sv.present {
		return value.FrozenValue{}, &EnvironmentError{Kind: SlotAbsent, Slot: slot}
	}
	return sv.v, nil
}
