package env

import "fmt"

// Visibility decides whether a binding can be loaded by other modules.
type Visibility int

const (
	Private Visibility = iota
	Public
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "private"
}

// Slot is a dense index into a module's slot array.
type Slot int

type nameEntry struct {
	name string
	slot Slot
	vis  Visibility
}

// MutableNames allocates slots to names while a module executes. Insertion
// order is the only order and is preserved by every operation.
type MutableNames struct {
	entries []nameEntry
	index   map[string]int
	next    Slot
}

func NewMutableNames() *MutableNames {
	return &MutableNames{index: make(map[string]int)}
}

// Count reports how many slots have been allocated, including slots whose
// name was removed.
func (n *MutableNames) Count() int {
	return int(n.next)
}

// Add returns the slot for name, allocating one if needed. Re-adding a
// Private name as Public upgrades it; Public is never downgraded.
func (n *MutableNames) Add(name string, vis Visibility) Slot {
	if i, ok := n.index[name]; ok {
		e := &n.entries[i]
		if e.vis == Private {
			e.vis = vis
		}
		return e.slot
	}
	slot := n.next
	n.next++
	n.index[name] = len(n.entries)
	n.entries = append(n.entries, nameEntry{name: name, slot: slot, vis: vis})
	return slot
}

// Lookup returns the slot and visibility bound to name.
func (n *MutableNames) Lookup(name string) (Slot, Visibility, bool) {
	i, ok := n.index[name]
	if !ok {
		return 0, Private, false
	}
	e := n.entries[i]
	return e.slot, e.vis, true
}

// Remove forgets name. Its slot stays allocated but nameless.
func (n *MutableNames) Remove(name string) {
	i, ok := n.index[name]
	if !ok {
		return
	}
	n.entries = append(n.entries[:i], n.entries[i+1:]...)
	delete(n.index, name)
	for j := i; j < len(n.entries); j++ {
		n.index[n.entries[j].name] = j
	}
}

// SlotName goes back from a slot to a name. Linear; error paths only.
func (n *MutableNames) SlotName(slot Slot) (string, bool) {
	return slotName(n.entries, slot)
}

// Names returns the public names in insertion order.
func (n *MutableNames) Names() []string {
	return publicNames(n.entries)
}

// Binding is a name with its slot and visibility, as reported by All.
type Binding struct {
	Name       string
	Slot       Slot
	Visibility Visibility
}

// All returns every binding in insertion order.
func (n *MutableNames) All() []Binding {
	return bindings(n.entries)
}

// Freeze copies the table into its immutable form.
func (n *MutableNames) Freeze() *FrozenNames {
	out := &FrozenNames{
		entries: make([]nameEntry, len(n.entries)),
		index:   make(map[string]int, len(n.index)),
	}
	copy(out.entries, n.entries)
	for k, v := range n.index {
		out.index[k] = v
	}
	return out
}

// FrozenNames is the immutable symbol table of a frozen module.
type FrozenNames struct {
	entries []nameEntry
	index   map[string]int
}

func (n *FrozenNames) Lookup(name string) (Slot, Visibility, bool) {
	i, ok := n.index[name]
	if !ok {
		return 0, Private, false
	}
	e := n.entries[i]
	return e.slot, e.vis, true
}

// Names returns the public names in insertion order.
func (n *FrozenNames) Names() []string {
	return publicNames(n.entries)
}

// Symbols returns the public bindings in insertion order.
func (n *FrozenNames) Symbols() []Binding {
	out := make([]Binding, 0, len(n.entries))
	for _, e := range n.entries {
		if e.vis == Public {
			out = append(out, Binding{Name: e.name, Slot: e.slot, Visibility: e.vis})
		}
	}
	return out
}

// SlotName goes back from a slot to a name. Linear; error paths only.
func (n *FrozenNames) SlotName(slot Slot) (string, bool) {
	return slotName(n.entries, slot)
}

func slotName(entries []nameEntry, slot Slot) (string, bool) {
	for _, e := range entries {
		if e.slot == slot {
			return e.name, true
		}
	}
	return "", false
}

func publicNames(entries []nameEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.vis == Public {
			out = append(out, e.name)
		}
	}
	return out
}

func bindings(entries []nameEntry) []Binding {
	out := make([]Binding, len(entries))
	for i, e := range entries {
		out[i] = Binding{Name: e.name, Slot: e.slot, Visibility: e.vis}
	}
	return out
}

func (b Binding) String() string {
	return fmt.Sprintf("%s@%d(%s)", b.Name, b.Slot, b.Visibility)
}
