package value

import "fmt"

type dictKey struct {
	kind Kind
	i    int64
	s    string
	b    bool
}

func keyOf(v Value) (dictKey, error) {
	switch v.Kind {
	case KindNone, KindBool, KindInt, KindString:
		return dictKey{kind: v.Kind, i: v.Int, s: v.Str, b: v.B}, nil
	default:
		return dictKey{}, fmt.Errorf("unhashable type: '%s'", TypeName(v))
	}
}

// Dict is an insertion-ordered map with scalar keys.
type Dict struct {
	keys   []Value
	vals   []Value
	index  map[dictKey]int
	frozen bool
}

func newDict() *Dict {
	return &Dict{index: make(map[dictKey]int)}
}

func (d *Dict) Len() int { return len(d.keys) }

// Frozen reports whether the dict lives on a frozen heap.
func (d *Dict) Frozen() bool { return d.frozen }

// Get looks up k; an unhashable key is an error.
func (d *Dict) Get(k Value) (Value, bool, error) {
	key, err := keyOf(k)
	if err != nil {
		return Value{}, false, err
	}
	i, ok := d.index[key]
	if !ok {
		return Value{}, false, nil
	}
	return d.vals[i], true, nil
}

// Set inserts or overwrites k. Overwriting keeps the original position.
func (d *Dict) Set(k, v Value) error {
	if d.frozen {
		return ErrFrozen
	}
	key, err := keyOf(k)
	if err != nil {
		return err
	}
	if i, ok := d.index[key]; ok {
		d.vals[i] = v
		return nil
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
	return nil
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	out := make([]Value, len(d.keys))
	copy(out, d.keys)
	return out
}

// Each visits entries in insertion order until fn returns false.
func (d *Dict) Each(fn func(k, v Value) bool) {
	for i := range d.keys {
		if !fn(d.keys[i], d.vals[i]) {
			return
		}
	}
}

func (d *Dict) Trace(t *Tracer) {
	t.Values(d.vals)
}

func (d *Dict) clone() *Dict {
	out := &Dict{
		keys:  make([]Value, len(d.keys)),
		vals:  make([]Value, len(d.vals)),
		index: make(map[dictKey]int, len(d.index)),
	}
	copy(out.keys, d.keys)
	copy(out.vals, d.vals)
	for k, i := range d.index {
		out.index[k] = i
	}
	return out
}
