package exec

import (
	"errors"

	"go.starlark.net/syntax"

	"github.com/xirelogy/go-starenv/internal/env"
	"github.com/xirelogy/go-starenv/internal/methods"
	"github.com/xirelogy/go-starenv/internal/value"
)

func (ev *evaluator) eval(expr syntax.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case *syntax.Literal:
		return ev.literal(e)
	case *syntax.Ident:
		return ev.lookup(e)
	case *syntax.ParenExpr:
		return ev.eval(e.X)
	case *syntax.ListExpr:
		items, err := ev.evalAll(e.List)
		if err != nil {
			return value.Value{}, err
		}
		return ev.module.Heap().NewList(items), nil
	case *syntax.DictExpr:
		d := ev.module.Heap().NewDict()
		for _, item := range e.List {
			entry := item.(*syntax.DictEntry)
			k, err := ev.eval(entry.Key)
			if err != nil {
				return value.Value{}, err
			}
			v, err := ev.eval(entry.Value)
			if err != nil {
				return value.Value{}, err
			}
			if err := d.Dict.Set(k, v); err != nil {
				return value.Value{}, ev.errorAt(entry, err)
			}
		}
		return d, nil
	case *syntax.IndexExpr:
		x, err := ev.eval(e.X)
		if err != nil {
			return value.Value{}, err
		}
		y, err := ev.eval(e.Y)
		if err != nil {
			return value.Value{}, err
		}
		return ev.index(e, x, y)
	case *syntax.UnaryExpr:
		return ev.unary(e)
	case *syntax.BinaryExpr:
		return ev.binary(e)
	case *syntax.CallExpr:
		return ev.evalCall(e)
	case *syntax.DotExpr:
		return value.Value{}, ev.errorf(e, "method %s must be called", e.Name.Name)
	}
	return value.Value{}, ev.errorf(expr, "unsupported expression")
}

func (ev *evaluator) evalAll(exprs []syntax.Expr) ([]value.Value, error) {
	out := make([]value.Value, 0, len(exprs))
	for _, x := range exprs {
		v, err := ev.eval(x)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (ev *evaluator) literal(e *syntax.Literal) (value.Value, error) {
	switch e.Token {
	case syntax.INT:
		if i, ok := e.Value.(int64); ok {
			return value.Int(i), nil
		}
		return value.Value{}, ev.errorf(e, "integer literal %s out of range", e.Raw)
	case syntax.STRING:
		return value.String(e.Value.(string)), nil
	}
	return value.Value{}, ev.errorf(e, "unsupported literal %s", e.Raw)
}

func (ev *evaluator) lookup(id *syntax.Ident) (value.Value, error) {
	if sc := ev.scope; sc != nil {
		if v, ok := sc.locals[id.Name]; ok {
			return v, nil
		}
		if slot, ok := sc.body.globals[id.Name]; ok {
			v, err := sc.fn.Global(int(slot))
			if errors.Is(err, env.ErrSlotAbsent) {
				pos, _ := id.Span()
				name := sc.fn.GlobalName(int(slot))
				return v, ev.newRuntimeError(pos, "global `"+name+"` referenced before assignment", err)
			}
			return v, ev.errorAt(id, err)
		}
	} else if slot, _, ok := ev.module.Names().Lookup(id.Name); ok {
		v, err := ev.module.GetSlot(int(slot))
		return v, ev.errorAt(id, err)
	}
	if v, ok := universe[id.Name]; ok {
		return v, nil
	}
	return value.Value{}, ev.errorf(id, "name `%s` is not defined", id.Name)
}

func (ev *evaluator) index(node syntax.Node, x, y value.Value) (value.Value, error) {
	switch x.Kind {
	case value.KindList:
		if y.Kind != value.KindInt {
			return value.Value{}, ev.errorf(node, "list index must be int, not %s", value.TypeName(y))
		}
		v, err := x.List.Index(int(y.Int))
		return v, ev.errorAt(node, err)
	case value.KindDict:
		v, ok, err := x.Dict.Get(y)
		if err != nil {
			return value.Value{}, ev.errorAt(node, err)
		}
		if !ok {
			return value.Value{}, ev.errorf(node, "key %s not found in dict", value.Repr(y))
		}
		return v, nil
	case value.KindString:
		if y.Kind != value.KindInt {
			return value.Value{}, ev.errorf(node, "string index must be int, not %s", value.TypeName(y))
		}
		i, n := int(y.Int), len(x.Str)
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return value.Value{}, ev.errorf(node, "index %d out of bounds for string of length %d", y.Int, n)
		}
		return value.String(x.Str[i : i+1]), nil
	}
	return value.Value{}, ev.errorf(node, "'%s' is not indexable", value.TypeName(x))
}

func (ev *evaluator) setIndex(node syntax.Node, x, y, v value.Value) error {
	switch x.Kind {
	case value.KindList:
		if y.Kind != value.KindInt {
			return ev.errorf(node, "list index must be int, not %s", value.TypeName(y))
		}
		return ev.errorAt(node, x.List.SetIndex(int(y.Int), v))
	case value.KindDict:
		return ev.errorAt(node, x.Dict.Set(y, v))
	}
	return ev.errorf(node, "'%s' does not support item assignment", value.TypeName(x))
}

func (ev *evaluator) unary(e *syntax.UnaryExpr) (value.Value, error) {
	x, err := ev.eval(e.X)
	if err != nil {
		return value.Value{}, err
	}
	switch e.Op {
	case syntax.NOT:
		return value.Bool(!value.Truthy(x)), nil
	case syntax.MINUS:
		if x.Kind == value.KindInt {
			return value.Int(-x.Int), nil
		}
	case syntax.PLUS:
		if x.Kind == value.KindInt {
			return x, nil
		}
	}
	return value.Value{}, ev.errorf(e, "unsupported operand type for %s: '%s'", e.Op, value.TypeName(x))
}

func (ev *evaluator) binary(e *syntax.BinaryExpr) (value.Value, error) {
	x, err := ev.eval(e.X)
	if err != nil {
		return value.Value{}, err
	}
	y, err := ev.eval(e.Y)
	if err != nil {
		return value.Value{}, err
	}
	switch e.Op {
	case syntax.PLUS:
		return ev.add(e, x, y)
	case syntax.EQL:
		return value.Bool(value.Equal(x, y)), nil
	case syntax.NEQ:
		return value.Bool(!value.Equal(x, y)), nil
	}
	return value.Value{}, ev.errorf(e, "unsupported operator %s", e.Op)
}

func (ev *evaluator) add(node syntax.Node, x, y value.Value) (value.Value, error) {
	switch {
	case x.Kind == value.KindInt && y.Kind == value.KindInt:
		return value.Int(x.Int + y.Int), nil
	case x.Kind == value.KindString && y.Kind == value.KindString:
		return value.String(x.Str + y.Str), nil
	case x.Kind == value.KindList && y.Kind == value.KindList:
		items := make([]value.Value, 0, x.List.Len()+y.List.Len())
		items = append(items, x.List.Items...)
		items = append(items, y.List.Items...)
		return ev.module.Heap().NewList(items), nil
	}
	return value.Value{}, ev.errorf(node, "unsupported operand types for +: '%s' and '%s'", value.TypeName(x), value.TypeName(y))
}

func (ev *evaluator) callArgs(e *syntax.CallExpr) ([]value.Value, error) {
	for _, a := range e.Args {
		switch x := a.(type) {
		case *syntax.BinaryExpr:
			if x.Op == syntax.EQ {
				return nil, ev.errorf(a, "keyword arguments are not supported")
			}
		case *syntax.UnaryExpr:
			if x.Op == syntax.STAR || x.Op == syntax.STARSTAR {
				return nil, ev.errorf(a, "argument unpacking is not supported")
			}
		}
	}
	return ev.evalAll(e.Args)
}

func (ev *evaluator) evalCall(e *syntax.CallExpr) (value.Value, error) {
	if dot, ok := e.Fn.(*syntax.DotExpr); ok {
		recv, err := ev.eval(dot.X)
		if err != nil {
			return value.Value{}, err
		}
		args, err := ev.callArgs(e)
		if err != nil {
			return value.Value{}, err
		}
		v, err := methods.Call(recv, dot.Name.Name, args)
		return v, ev.errorAt(e, err)
	}
	fnv, err := ev.eval(e.Fn)
	if err != nil {
		return value.Value{}, err
	}
	args, err := ev.callArgs(e)
	if err != nil {
		return value.Value{}, err
	}
	return ev.call(e, fnv, args)
}

func (ev *evaluator) call(e *syntax.CallExpr, fnv value.Value, args []value.Value) (value.Value, error) {
	if fnv.Kind != value.KindFunction {
		return value.Value{}, ev.errorf(e, "'%s' is not callable", value.TypeName(fnv))
	}
	fn := fnv.Func
	var body *funcBody
	if fn.Native == nil {
		b, ok := fn.Body.(*funcBody)
		if !ok {
			return value.Value{}, ev.errorf(e, "function %s has no body", fn.Name)
		}
		if len(args) != len(fn.Params) {
			return value.Value{}, ev.errorf(e, "%s() takes %d arguments, got %d", fn.Name, len(fn.Params), len(args))
		}
		body = b
	}
	if len(ev.frames) >= maxCallDepth {
		return value.Value{}, ev.errorf(e, "call stack exceeds %d frames", maxCallDepth)
	}

	pos, _ := e.Span()
	ev.frames = append(ev.frames, callFrame{function: fn.Name, pos: pos})
	defer func() { ev.frames = ev.frames[:len(ev.frames)-1] }()
	if p := ev.opts.Profile; p != nil {
		p.RecordCallEnter(fnv)
		defer p.RecordCallExit()
	}

	if body == nil {
		v, err := fn.Native(args)
		return v, ev.errorAt(e, err)
	}
	if body.result == nil {
		return value.None(), nil
	}
	locals := make(map[string]value.Value, len(args))
	for i, name := range fn.Params {
		locals[name] = args[i]
	}
	saved := ev.scope
	ev.scope = &scope{fn: fn, body: body, locals: locals}
	defer func() { ev.scope = saved }()
	return ev.eval(body.result)
}
