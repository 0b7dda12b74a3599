package exec

import (
	"fmt"

	"github.com/xirelogy/go-starenv/internal/value"
)

// universe holds the predeclared names every module can read. Its
// functions live on a frozen heap of their own.
var universe = func() map[string]value.Value {
	heap := value.NewFrozenHeap()
	u := map[string]value.Value{
		"None":  value.None(),
		"True":  value.Bool(true),
		"False": value.Bool(false),
		"len":   heap.NewFunction("len", []string{"x"}, builtinLen).ToValue(),
		"str":   heap.NewFunction("str", []string{"x"}, builtinStr).ToValue(),
		"type":  heap.NewFunction("type", []string{"x"}, builtinType).ToValue(),
	}
	heap.Into()
	return u
}()

func oneArg(name string, args []value.Value) error {
	if len(args) != 1 {
		return fmt.Errorf("%s() takes exactly one argument (%d given)", name, len(args))
	}
	return nil
}

func builtinLen(args []value.Value) (value.Value, error) {
	if err := oneArg("len", args); err != nil {
		return value.Value{}, err
	}
	switch x := args[0]; x.Kind {
	case value.KindList:
		return value.Int(int64(x.List.Len())), nil
	case value.KindDict:
		return value.Int(int64(x.Dict.Len())), nil
	case value.KindString:
		return value.Int(int64(len(x.Str))), nil
	default:
		return value.Value{}, fmt.Errorf("len: value of type '%s' has no len", value.TypeName(x))
	}
}

func builtinStr(args []value.Value) (value.Value, error) {
	if err := oneArg("str", args); err != nil {
		return value.Value{}, err
	}
	return value.String(value.Str(args[0])), nil
}

func builtinType(args []value.Value) (value.Value, error) {
	if err := oneArg("type", args); err != nil {
		return value.Value{}, err
	}
	return value.String(value.TypeName(args[0])), nil
}
