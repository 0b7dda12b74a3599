package value

import "fmt"

// List is the heap object behind KindList values.
type List struct {
	Items  []Value
	frozen bool
}

func (l *List) Len() int { return len(l.Items) }

// Frozen reports whether the list lives on a frozen heap.
func (l *List) Frozen() bool { return l.frozen }

func (l *List) checkMutable() error {
	if l.frozen {
		return ErrFrozen
	}
	return nil
}

func (l *List) Append(v Value) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	l.Items = append(l.Items, v)
	return nil
}

func (l *List) Clear() error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	l.Items = l.Items[:0]
	return nil
}

// Extend appends every item of vs. Extending a list with itself doubles it.
func (l *List) Extend(vs []Value) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	l.Items = append(l.Items, vs...)
	return nil
}

// Insert places v before index i; i is clamped to [0, len].
func (l *List) Insert(i int, v Value) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	i = ClampIndex(i, len(l.Items))
	l.Items = append(l.Items, Value{})
	copy(l.Items[i+1:], l.Items[i:])
	l.Items[i] = v
	return nil
}

// RemoveAt deletes and returns the item at index i.
func (l *List) RemoveAt(i int) (Value, error) {
	if err := l.checkMutable(); err != nil {
		return Value{}, err
	}
	if i < 0 || i >= len(l.Items) {
		return Value{}, fmt.Errorf("index %d out of bounds for list of length %d", i, len(l.Items))
	}
	v := l.Items[i]
	l.Items = append(l.Items[:i], l.Items[i+1:]...)
	return v, nil
}

// SetIndex replaces the item at index i; negative indices count from the end.
func (l *List) SetIndex(i int, v Value) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	idx, err := resolveIndex(i, len(l.Items))
	if err != nil {
		return err
	}
	l.Items[idx] = v
	return nil
}

// Index reads the item at index i; negative indices count from the end.
func (l *List) Index(i int) (Value, error) {
	idx, err := resolveIndex(i, len(l.Items))
	if err != nil {
		return Value{}, err
	}
	return l.Items[idx], nil
}

func (l *List) Trace(t *Tracer) {
	t.Values(l.Items)
}

// ClampIndex converts a possibly negative index into [0, n].
func ClampIndex(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}
	return i
}

func resolveIndex(i, n int) (int, error) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of bounds for length %d", i, n)
	}
	return i, nil
}
