package dict

import (
	"fmt"

	"github.com/xirelogy/go-starenv/internal/methods"
	"github.com/xirelogy/go-starenv/internal/value"
)

func init() {
	for _, spec := range []methods.Spec{
		{Name: "get", MinArgs: 1, MaxArgs: 2, Handler: runGet, Doc: "Read a key, falling back to a default (None) when absent."},
		{Name: "setdefault", MinArgs: 1, MaxArgs: 2, Handler: runSetDefault, Doc: "Read a key, inserting the default first when absent."},
		{Name: "update", MinArgs: 1, MaxArgs: 1, Handler: runUpdate, Doc: "Copy every entry of another dict."},
	} {
		spec.Receiver = value.KindDict
		methods.Register(spec)
	}
}

func fallback(args []value.Value) value.Value {
	if len(args) > 1 {
		return args[1]
	}
	return value.None()
}

func runGet(recv value.Value, args []value.Value) (value.Value, error) {
	v, ok, err := recv.Dict.Get(args[0])
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return fallback(args), nil
	}
	return v, nil
}

func runSetDefault(recv value.Value, args []value.Value) (value.Value, error) {
	v, ok, err := recv.Dict.Get(args[0])
	if err != nil {
		return value.Value{}, err
	}
	if ok {
		return v, nil
	}
	def := fallback(args)
	if err := recv.Dict.Set(args[0], def); err != nil {
		return value.Value{}, err
	}
	return def, nil
}

func runUpdate(recv value.Value, args []value.Value) (value.Value, error) {
	other := args[0]
	if other.Kind != value.KindDict {
		return value.Value{}, fmt.Errorf("update: '%s' is not a dict", value.TypeName(other))
	}
	if recv.Dict.Frozen() {
		return value.Value{}, value.ErrFrozen
	}
	var err error
	other.Dict.Each(func(k, v value.Value) bool {
		err = recv.Dict.Set(k, v)
		return err == nil
	})
	return value.None(), err
}
