package value

import (
	"errors"
	"fmt"
)

// NativeFunc is a host-provided callable.
type NativeFunc func(args []Value) (Value, error)

// Globals gives a function read access to the slots of its defining module.
type Globals interface {
	GetSlot(slot int) (Value, error)
}

// ModuleData is what a frozen function reaches through its module backpointer.
type ModuleData interface {
	Globals
	SlotName(slot int) (string, bool)
}

// ModuleRef is the write-once handle frozen functions use to find their
// module. It is installed after the frozen module exists.
type ModuleRef struct {
	data ModuleData
}

// Data returns the module behind the handle, or nil before it is linked.
func (m *ModuleRef) Data() ModuleData {
	if m == nil {
		return nil
	}
	return m.data
}

var errModuleUnlinked = errors.New("module backpointer used before it was set")

// Function wraps either an evaluator-owned body or a native handler.
type Function struct {
	Name     string
	Params   []string
	Doc      string
	Body     any
	Native   NativeFunc
	Captures []Value

	globals Globals
	module  Value
	frozen  bool
}

func (f *Function) Frozen() bool { return f.frozen }

// Global reads a module slot. Unfrozen functions read the live slot array;
// frozen ones go through the module backpointer.
func (f *Function) Global(slot int) (Value, error) {
	if f.frozen {
		data := f.module.Mod.Data()
		if data == nil {
			return Value{}, errModuleUnlinked
		}
		return data.GetSlot(slot)
	}
	if f.globals == nil {
		return Value{}, fmt.Errorf("function %s has no module", f.Name)
	}
	return f.globals.GetSlot(slot)
}

// GlobalName resolves a slot back to its name for error messages.
func (f *Function) GlobalName(slot int) string {
	var names interface{ SlotName(int) (string, bool) }
	if f.frozen {
		names = f.module.Mod.Data()
	} else if n, ok := f.globals.(interface{ SlotName(int) (string, bool) }); ok {
		names = n
	}
	if names != nil {
		if name, ok := names.SlotName(slot); ok {
			return name
		}
	}
	return fmt.Sprintf("<slot %d>", slot)
}

// Capture returns the i-th captured cell's contents.
func (f *Function) Capture(i int) (Value, bool) {
	if i < 0 || i >= len(f.Captures) {
		return Value{}, false
	}
	return CapturedGet(f.Captures[i])
}

func (f *Function) Trace(t *Tracer) {
	t.Values(f.Captures)
}
