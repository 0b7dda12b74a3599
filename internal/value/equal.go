package value

// Equal compares values structurally. Functions, cells, hosts and modules
// compare by identity. Recursive containers compare without looping: a
// pair already under comparison is assumed equal.
func Equal(a, b Value) bool {
	return equal(a, b, map[[2]any]bool{})
}

func equal(a, b Value, active map[[2]any]bool) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindList:
		if a.List == b.List {
			return true
		}
		if len(a.List.Items) != len(b.List.Items) {
			return false
		}
		pair := [2]any{a.List, b.List}
		if active[pair] {
			return true
		}
		active[pair] = true
		defer delete(active, pair)
		for i := range a.List.Items {
			if !equal(a.List.Items[i], b.List.Items[i], active) {
				return false
			}
		}
		return true
	case KindDict:
		if a.Dict == b.Dict {
			return true
		}
		if a.Dict.Len() != b.Dict.Len() {
			return false
		}
		pair := [2]any{a.Dict, b.Dict}
		if active[pair] {
			return true
		}
		active[pair] = true
		defer delete(active, pair)
		same := true
		a.Dict.Each(func(k, av Value) bool {
			bv, ok, err := b.Dict.Get(k)
			if err != nil || !ok || !equal(av, bv, active) {
				same = false
			}
			return same
		})
		return same
	default:
		return PtrEq(a, b)
	}
}
