// Package env implements module environments: the mutable Module a script
// executes into, and the immutable FrozenModule it becomes.
package env

import (
	"strings"

	"github.com/xirelogy/go-starenv/internal/docs"
	"github.com/xirelogy/go-starenv/internal/value"
)

// Module is the environment a script executes into. It has a single writer.
// Freeze consumes it; any use afterwards panics, except global reads by the
// module's own unfrozen functions, which fail with ErrModuleFrozen.
type Module struct {
	heap       *value.Heap
	frozenHeap *value.FrozenHeap
	names      *MutableNames
	slots      *MutableSlots
	docstring  *string
	consumed   bool
}

func NewModule() *Module {
	return &Module{
		heap:       value.NewHeap(),
		frozenHeap: value.NewFrozenHeap(),
		names:      NewMutableNames(),
		slots:      NewMutableSlots(),
	}
}

// DefaultVisibility is the one place the naming rule lives: names that start
// with an underscore are private.
func DefaultVisibility(name string) Visibility {
	if strings.HasPrefix(name, "_") {
		return Private
	}
	return Public
}

func (m *Module) live() {
	if m.consumed {
		panic("module used after freeze")
	}
}

// Heap returns the heap mutable values are allocated on.
func (m *Module) Heap() *value.Heap {
	m.live()
	return m.heap
}

// FrozenHeap returns the heap that will back the frozen module.
func (m *Module) FrozenHeap() *value.FrozenHeap {
	m.live()
	return m.frozenHeap
}

func (m *Module) Names() *MutableNames {
	m.live()
	return m.names
}

func (m *Module) Slots() *MutableSlots {
	m.live()
	return m.slots
}

// Declare allocates a slot for name without assigning it.
func (m *Module) Declare(name string) Slot {
	m.live()
	slot := m.names.Add(name, DefaultVisibility(name))
	m.slots.Ensure(slot)
	return slot
}

// DeclarePrivate allocates a slot for name as Private, for bindings such as
// loaded symbols that must never be re-exported.
func (m *Module) DeclarePrivate(name string) Slot {
	m.live()
	slot := m.names.Add(name, Private)
	m.slots.Ensure(slot)
	return slot
}

// Set binds name with its default visibility.
func (m *Module) Set(name string, v value.Value) {
	m.setVisibility(name, v, DefaultVisibility(name))
}

// SetPrivate binds name as Private so it is not re-exported. An existing
// Public binding stays Public.
func (m *Module) SetPrivate(name string, v value.Value) {
	m.setVisibility(name, v, Private)
}

func (m *Module) setVisibility(name string, v value.Value, vis Visibility) {
	m.live()
	slot := m.names.Add(name, vis)
	m.slots.Ensure(slot)
	// Ensure makes the slot addressable, so Set cannot fail.
	_ = m.slots.Set(slot, v)
}

// SetSlot writes a slot the evaluator allocated.
func (m *Module) SetSlot(slot Slot, v value.Value) error {
	m.live()
	return m.slots.Set(slot, v)
}

// GetSlot reads a slot, naming the variable when it is unassigned.
func (m *Module) GetSlot(slot int) (value.Value, error) {
	if m.consumed {
		return value.Value{}, ErrModuleFrozen
	}
	v, err := m.slots.Get(Slot(slot))
	if err != nil {
		return value.Value{}, m.nameSlotError(err)
	}
	return v, nil
}

// SlotName resolves a slot to its name for error messages.
func (m *Module) SlotName(slot int) (string, bool) {
	m.live()
	return m.names.SlotName(Slot(slot))
}

func (m *Module) nameSlotError(err error) error {
	if ee, ok := err.(*EnvironmentError); ok && ee.Kind == SlotAbsent && ee.Symbol == "" {
		if name, ok := m.names.SlotName(ee.Slot); ok {
			named := *ee
			named.Symbol = name
			return &named
		}
	}
	return err
}

// GetAnyVisibility reads a binding regardless of visibility. It is meant
// for the module's own diagnostics and for load.
func (m *Module) GetAnyVisibility(name string) (value.Value, Visibility, bool) {
	m.live()
	slot, vis, ok := m.names.Lookup(name)
	if !ok {
		return value.Value{}, Private, false
	}
	v, err := m.slots.Get(slot)
	if err != nil {
		return value.Value{}, Private, false
	}
	return v, vis, true
}

// Get returns an exported binding. Private or unassigned names are absent.
func (m *Module) Get(name string) (value.Value, bool) {
	v, vis, ok := m.GetAnyVisibility(name)
	if !ok || vis != Public {
		return value.Value{}, false
	}
	return v, true
}

// Describe prints one line per assigned exported binding.
func (m *Module) Describe() string {
	m.live()
	lines := []string{}
	for _, b := range m.names.All() {
		if b.Visibility != Public {
			continue
		}
		v, err := m.slots.Get(b.Slot)
		if err != nil {
			continue
		}
		lines = append(lines, value.Describe(b.Name, v))
	}
	return strings.Join(lines, "\n")
}

// SetDocstring records the module docstring; later calls overwrite it.
func (m *Module) SetDocstring(doc string) {
	m.live()
	m.docstring = &doc
}

// Collect runs a collection using the slot array and extra as roots.
func (m *Module) Collect(extra ...value.Trace) {
	m.live()
	roots := append([]value.Trace{m.slots}, extra...)
	m.heap.Collect(roots...)
}

// ImportPublicSymbols binds every public symbol of other into m as Private,
// and makes m's frozen heap keep other's heap alive.
func (m *Module) ImportPublicSymbols(other *FrozenModule) {
	m.live()
	m.frozenHeap.AddReference(other.heap)
	for _, b := range other.data.names.Symbols() {
		if DefaultVisibility(b.Name) != Public {
			continue
		}
		fv, err := other.data.slots.Get(b.Slot)
		if err != nil {
			continue
		}
		m.SetPrivate(b.Name, fv.ToValue())
	}
}

// LoadSymbol resolves symbol in other for a load statement. Private-looking
// names are rejected before other is consulted.
func (m *Module) LoadSymbol(other *FrozenModule, symbol string) (value.Value, error) {
	m.live()
	if DefaultVisibility(symbol) != Public {
		return value.Value{}, &EnvironmentError{Kind: PrivateImportRejected, Symbol: symbol}
	}
	owned, vis, ok := other.GetAnyVisibility(symbol)
	if !ok {
		return value.Value{}, &EnvironmentError{
			Kind:       NameNotFound,
			Symbol:     symbol,
			Suggestion: didYouMean(symbol, other.Names()),
		}
	}
	if vis != Public {
		return value.Value{}, &EnvironmentError{Kind: NameNotExported, Symbol: symbol}
	}
	return owned.OwnedValue(m.frozenHeap), nil
}

// Freeze consumes the module and produces its immutable snapshot. Every slot
// is a root, named or not. On failure the module is still consumed.
func (m *Module) Freeze() (*FrozenModule, error) {
	m.live()
	m.consumed = true
	heap := m.heap
	defer heap.Drop()

	fz := value.NewFreezer(m.frozenHeap)
	slots, err := m.slots.Freeze(fz)
	if err != nil {
		return nil, m.nameFreezeError(err)
	}
	data := &FrozenModuleData{
		names:     m.names.Freeze(),
		slots:     slots,
		docstring: m.docstring,
	}
	fz.SetMagic(data)
	return &FrozenModule{heap: fz.Into(), data: data}, nil
}

func (m *Module) nameFreezeError(err error) error {
	if se, ok := err.(*SlotFreezeError); ok {
		if name, ok := m.names.SlotName(se.Slot); ok {
			se.Name = name
		}
	}
	return err
}

// Documentation returns the module docstring as a doc item, if any.
func (m *Module) Documentation() *docs.Item {
	m.live()
	return moduleDoc(m.docstring)
}

func moduleDoc(doc *string) *docs.Item {
	if doc == nil {
		return nil
	}
	return &docs.Item{Kind: docs.ModuleItem, Doc: docs.ParseDocString(*doc)}
}

func memberDoc(v value.Value) *docs.Item {
	if v.Kind != value.KindFunction {
		return nil
	}
	return &docs.Item{
		Kind:   docs.FunctionItem,
		Params: v.Func.Params,
		Doc:    docs.ParseDocString(v.Func.Doc),
	}
}
