// Package methods is the registry of methods callable on built-in values,
// keyed by receiver kind and method name.
package methods

import (
	"fmt"
	"sort"

	"github.com/xirelogy/go-starenv/internal/value"
)

// Handler runs a method. recv is never a scalar copy of a container: list
// handlers mutate recv.List in place.
type Handler func(recv value.Value, args []value.Value) (value.Value, error)

// Spec describes one method. MaxArgs < 0 means unbounded.
type Spec struct {
	Receiver value.Kind
	Name     string
	MinArgs  int
	MaxArgs  int
	Doc      string
	Handler  Handler
}

type key struct {
	kind value.Kind
	name string
}

var registry = map[key]Spec{}

// Register installs a method. Registering the same receiver and name twice
// panics.
func Register(spec Spec) {
	if spec.Handler == nil {
		panic(fmt.Sprintf("method %s has nil handler", spec.Name))
	}
	k := key{spec.Receiver, spec.Name}
	if _, exists := registry[k]; exists {
		panic(fmt.Sprintf("method %s already registered", spec.Name))
	}
	registry[k] = spec
}

// Lookup finds the method name on receivers of kind.
func Lookup(kind value.Kind, name string) (Spec, bool) {
	spec, ok := registry[key{kind, name}]
	return spec, ok
}

// Names returns the sorted method names available on kind.
func Names(kind value.Kind) []string {
	out := []string{}
	for k := range registry {
		if k.kind == kind {
			out = append(out, k.name)
		}
	}
	sort.Strings(out)
	return out
}

// Call checks arity and dispatches.
func Call(recv value.Value, name string, args []value.Value) (value.Value, error) {
	spec, ok := Lookup(recv.Kind, name)
	if !ok {
		return value.Value{}, fmt.Errorf("type '%s' has no method %s", value.TypeName(recv), name)
	}
	if len(args) < spec.MinArgs || (spec.MaxArgs >= 0 && len(args) > spec.MaxArgs) {
		return value.Value{}, fmt.Errorf("%s.%s: %s, got %d", value.TypeName(recv), name, arityText(spec), len(args))
	}
	return spec.Handler(recv, args)
}

func arityText(spec Spec) string {
	switch {
	case spec.MaxArgs < 0:
		return fmt.Sprintf("expected at least %d args", spec.MinArgs)
	case spec.MinArgs == spec.MaxArgs:
		return fmt.Sprintf("expected %d args", spec.MinArgs)
	default:
		return fmt.Sprintf("expected %d to %d args", spec.MinArgs, spec.MaxArgs)
	}
}

// ArgInt reads an int argument.
func ArgInt(name string, v value.Value) (int, error) {
	if v.Kind != value.KindInt {
		return 0, fmt.Errorf("%s: expected int, got %s", name, value.TypeName(v))
	}
	return int(v.Int), nil
}
