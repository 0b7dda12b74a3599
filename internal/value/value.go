package value

import "errors"

type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindString
	KindList
	KindDict
	KindFunction
	KindCaptured
	KindHost
	KindModule
)

// ErrFrozen is returned when mutating a value that lives on a frozen heap.
var ErrFrozen = errors.New("cannot mutate a frozen value")

// Value is a tagged reference. Scalars are stored inline; every other kind
// points at an object owned by either a Heap or a FrozenHeap.
type Value struct {
	Kind Kind
	Int  int64
	Str  string
	B    bool
	List *List
	Dict *Dict
	Func *Function
	Cell *Captured
	Host *HostObject
	Mod  *ModuleRef
}

func None() Value { return Value{Kind: KindNone} }
func Bool(b bool) Value {
	return Value{Kind: KindBool, B: b}
}
func Int(i int64) Value {
	return Value{Kind: KindInt, Int: i}
}
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// IsScalar reports whether the value carries no heap object.
func (v Value) IsScalar() bool {
	switch v.Kind {
	case KindNone, KindBool, KindInt, KindString:
		return true
	default:
		return false
	}
}

// Frozen reports whether the value is immutable. Scalars are always frozen.
func (v Value) Frozen() bool {
	switch v.Kind {
	case KindList:
		return v.List.frozen
	case KindDict:
		return v.Dict.frozen
	case KindFunction:
		return v.Func.frozen
	case KindCaptured:
		return v.Cell.frozen
	case KindHost:
		return v.Host.frozen
	default:
		return true
	}
}

// Identity returns a comparable key naming the heap object behind v, or nil
// for scalars. The key is only meaningful until the next collection; holders
// that cache it must rebuild their caches from the Trace protocol.
func (v Value) Identity() any {
	switch v.Kind {
	case KindList:
		return v.List
	case KindDict:
		return v.Dict
	case KindFunction:
		return v.Func
	case KindCaptured:
		return v.Cell
	case KindHost:
		return v.Host
	case KindModule:
		return v.Mod
	default:
		return nil
	}
}

// PtrEq reports whether a and b are the same object (or equal scalars).
func PtrEq(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	if id := a.Identity(); id != nil {
		return id == b.Identity()
	}
	return scalarEqual(a, b)
}

func Truthy(v Value) bool {
	switch v.Kind {
	case KindNone:
		return false
	case KindBool:
		return v.B
	case KindInt:
		return v.Int != 0
	case KindString:
		return v.Str != ""
	case KindList:
		return len(v.List.Items) > 0
	case KindDict:
		return v.Dict.Len() > 0
	default:
		return true
	}
}

func scalarEqual(a, b Value) bool {
	switch a.Kind {
	case KindNone:
		return true
	case KindBool:
		return a.B == b.B
	case KindInt:
		return a.Int == b.Int
	case KindString:
		return a.Str == b.Str
	default:
		return false
	}
}

// FrozenValue is a Value known to live on a frozen heap (or to be a scalar).
type FrozenValue struct {
	v Value
}

// AsFrozen narrows v when it is already immutable.
func AsFrozen(v Value) (FrozenValue, bool) {
	if !v.Frozen() {
		return FrozenValue{}, false
	}
	return FrozenValue{v: v}, true
}

// ToValue widens a frozen value so it can be stored next to mutable ones.
func (f FrozenValue) ToValue() Value {
	return f.v
}

// Kind reports the kind of the underlying value.
func (f FrozenValue) Kind() Kind {
	return f.v.Kind
}

// TypeName reports the script-visible type name for a value.
func TypeName(v Value) string {
	switch v.Kind {
	case KindNone:
		return "NoneType"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindFunction:
		return "function"
	case KindCaptured:
		return "value_captured"
	case KindHost:
		return v.Host.Value.Type()
	case KindModule:
		return "frozen_module"
	default:
		return "unknown"
	}
}
