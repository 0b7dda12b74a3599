package value

// Captured is the cell a nested function closes over. It holds an optional
// value and never holds another capture cell.
type Captured struct {
	value   Value
	present bool
	frozen  bool
}

// Get returns the current contents, or false if the cell was never set.
func (c *Captured) Get() (Value, bool) {
	if c == nil || !c.present {
		return Value{}, false
	}
	return c.value, true
}

// Set stores v. Storing a capture cell or writing a frozen cell is an
// evaluator bug and panics.
func (c *Captured) Set(v Value) {
	if v.Kind == KindCaptured {
		panic("capture cell cannot hold another capture cell")
	}
	if c.frozen {
		panic("capture cell is frozen")
	}
	c.value = v
	c.present = true
}

func (c *Captured) Frozen() bool { return c.frozen }

func (c *Captured) Trace(t *Tracer) {
	if c.present {
		t.Value(&c.value)
	}
}

// CapturedGet reads through a KindCaptured value of either flavor.
func CapturedGet(v Value) (Value, bool) {
	if v.Kind != KindCaptured {
		panic("not a capture cell")
	}
	return v.Cell.Get()
}
