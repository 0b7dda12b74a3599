package list

import (
	"fmt"

	"github.com/xirelogy/go-starenv/internal/methods"
	"github.com/xirelogy/go-starenv/internal/value"
)

func init() {
	for _, spec := range []methods.Spec{
		{Name: "append", MinArgs: 1, MaxArgs: 1, Handler: runAppend, Doc: "Append an element to the end of the list."},
		{Name: "clear", MinArgs: 0, MaxArgs: 0, Handler: runClear, Doc: "Remove every element."},
		{Name: "extend", MinArgs: 1, MaxArgs: 1, Handler: runExtend, Doc: "Append every element of another list."},
		{Name: "index", MinArgs: 1, MaxArgs: 3, Handler: runIndex, Doc: "Find the first index of an element."},
		{Name: "insert", MinArgs: 2, MaxArgs: 2, Handler: runInsert, Doc: "Insert an element before an index."},
		{Name: "pop", MinArgs: 0, MaxArgs: 1, Handler: runPop, Doc: "Remove and return an element, the last by default."},
		{Name: "remove", MinArgs: 1, MaxArgs: 1, Handler: runRemove, Doc: "Remove the first occurrence of an element."},
	} {
		spec.Receiver = value.KindList
		methods.Register(spec)
	}
}

func runAppend(recv value.Value, args []value.Value) (value.Value, error) {
	return value.None(), recv.List.Append(args[0])
}

func runClear(recv value.Value, _ []value.Value) (value.Value, error) {
	return value.None(), recv.List.Clear()
}

func runExtend(recv value.Value, args []value.Value) (value.Value, error) {
	other := args[0]
	switch other.Kind {
	case value.KindList:
		return value.None(), recv.List.Extend(other.List.Items)
	case value.KindDict:
		return value.None(), recv.List.Extend(other.Dict.Keys())
	default:
		return value.Value{}, fmt.Errorf("extend: '%s' is not iterable", value.TypeName(other))
	}
}

func optionalIndex(name string, args []value.Value, i, def int) (int, error) {
	if i >= len(args) || args[i].Kind == value.KindNone {
		return def, nil
	}
	return methods.ArgInt(name, args[i])
}

func runIndex(recv value.Value, args []value.Value) (value.Value, error) {
	items := recv.List.Items
	n := len(items)
	start, err := optionalIndex("start", args, 1, 0)
	if err != nil {
		return value.Value{}, err
	}
	end, err := optionalIndex("end", args, 2, n)
	if err != nil {
		return value.Value{}, err
	}
	start, end = value.ClampIndex(start, n), value.ClampIndex(end, n)
	for i := start; i < end; i++ {
		if value.Equal(items[i], args[0]) {
			return value.Int(int64(i)), nil
		}
	}
	return value.Value{}, fmt.Errorf("element '%s' not found in '%s'", value.Repr(args[0]), value.Repr(recv))
}

func runInsert(recv value.Value, args []value.Value) (value.Value, error) {
	i, err := methods.ArgInt("index", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.None(), recv.List.Insert(i, args[1])
}

func runPop(recv value.Value, args []value.Value) (value.Value, error) {
	i, err := optionalIndex("index", args, 0, recv.List.Len()-1)
	if err != nil {
		return value.Value{}, err
	}
	return recv.List.RemoveAt(i)
}

func runRemove(recv value.Value, args []value.Value) (value.Value, error) {
	for i, item := range recv.List.Items {
		if value.Equal(item, args[0]) {
			_, err := recv.List.RemoveAt(i)
			return value.None(), err
		}
	}
	return value.Value{}, fmt.Errorf("element '%s' not found in list '%s'", value.Repr(args[0]), value.Repr(recv))
}
