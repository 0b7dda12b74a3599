package env

import (
	"strings"

	"github.com/xirelogy/go-starenv/internal/docs"
	"github.com/xirelogy/go-starenv/internal/value"
)

// FrozenModuleData is the immutable content of a frozen module. Frozen
// functions reach it through their module backpointer.
type FrozenModuleData struct {
	names     *FrozenNames
	slots     *FrozenSlots
	docstring *string
}

// GetSlot satisfies value.ModuleData.
func (d *FrozenModuleData) GetSlot(slot int) (value.Value, error) {
	fv, err := d.slots.Get(Slot(slot))
	if err != nil {
		if ee, ok := err.(*EnvironmentError); ok && ee.Kind == SlotAbsent {
			if name, ok := d.names.SlotName(ee.Slot); ok {
				named := *ee
				named.Symbol = name
				return value.Value{}, &named
			}
		}
		return value.Value{}, err
	}
	return fv.ToValue(), nil
}

// SlotName goes back from a slot to a name. Linear; error paths only.
func (d *FrozenModuleData) SlotName(slot int) (string, bool) {
	return d.names.SlotName(Slot(slot))
}

// FrozenModule is the result of freezing a Module. It and everything it
// reaches are immutable, so it may be shared between goroutines freely.
type FrozenModule struct {
	heap *value.FrozenHeapRef
	data *FrozenModuleData
}

// GetAnyVisibility reads a binding regardless of visibility.
func (f *FrozenModule) GetAnyVisibility(name string) (value.OwnedFrozenValue, Visibility, bool) {
	slot, vis, ok := f.data.names.Lookup(name)
	if !ok {
		return value.OwnedFrozenValue{}, Private, false
	}
	fv, err := f.data.slots.Get(slot)
	if err != nil {
		return value.OwnedFrozenValue{}, Private, false
	}
	return value.NewOwnedFrozenValue(f.heap, fv), vis, true
}

// Get returns an exported binding together with the heap that owns it.
func (f *FrozenModule) Get(name string) (value.OwnedFrozenValue, bool) {
	v, vis, ok := f.GetAnyVisibility(name)
	if !ok || vis != Public {
		return value.OwnedFrozenValue{}, false
	}
	return v, true
}

// Names returns the exported names in definition order.
func (f *FrozenModule) Names() []string {
	return f.data.names.Names()
}

// FrozenHeap returns the heap backing every value of the module.
func (f *FrozenModule) FrozenHeap() *value.FrozenHeapRef {
	return f.heap
}

// Data exposes the module content, for evaluators that run frozen code.
func (f *FrozenModule) Data() *FrozenModuleData {
	return f.data
}

// Describe prints one line per exported binding.
func (f *FrozenModule) Describe() string {
	lines := []string{}
	for _, b := range f.data.names.Symbols() {
		fv, err := f.data.slots.Get(b.Slot)
		if err != nil {
			continue
		}
		lines = append(lines, value.Describe(b.Name, fv.ToValue()))
	}
	return strings.Join(lines, "\n")
}

// Documentation returns the module docstring as a doc item, if any.
func (f *FrozenModule) Documentation() *docs.Item {
	return moduleDoc(f.data.docstring)
}

// ModuleDocumentation returns the module doc and the docs of its exported,
// public-looking members.
func (f *FrozenModule) ModuleDocumentation() docs.ModuleDocs {
	members := map[string]*docs.Item{}
	for _, name := range f.Names() {
		if DefaultVisibility(name) != Public {
			continue
		}
		owned, ok := f.Get(name)
		if !ok {
			continue
		}
		members[name] = memberDoc(owned.Value().ToValue())
	}
	return docs.ModuleDocs{
		Module:  f.Documentation(),
		Members: members,
	}
}
