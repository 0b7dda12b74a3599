package value

import (
	"strconv"
	"strings"
)

// Repr renders v the way the REPL prints it. Containers that contain
// themselves render the inner occurrence as [...] or {...}.
func Repr(v Value) string {
	var sb strings.Builder
	writeRepr(&sb, v, map[any]bool{})
	return sb.String()
}

// Str renders v for display; strings print without quotes.
func Str(v Value) string {
	if v.Kind == KindString {
		return v.Str
	}
	return Repr(v)
}

func writeRepr(sb *strings.Builder, v Value, active map[any]bool) {
	switch v.Kind {
	case KindNone:
		sb.WriteString("None")
	case KindBool:
		if v.B {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case KindString:
		sb.WriteString(strconv.Quote(v.Str))
	case KindList:
		if active[v.List] {
			sb.WriteString("[...]")
			return
		}
		active[v.List] = true
		sb.WriteByte('[')
		for i, item := range v.List.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeRepr(sb, item, active)
		}
		sb.WriteByte(']')
		delete(active, v.List)
	case KindDict:
		if active[v.Dict] {
			sb.WriteString("{...}")
			return
		}
		active[v.Dict] = true
		sb.WriteByte('{')
		first := true
		v.Dict.Each(func(k, val Value) bool {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			writeRepr(sb, k, active)
			sb.WriteString(": ")
			writeRepr(sb, val, active)
			return true
		})
		sb.WriteByte('}')
		delete(active, v.Dict)
	case KindFunction:
		sb.WriteString("<function ")
		sb.WriteString(v.Func.Name)
		sb.WriteByte('>')
	case KindCaptured:
		if inner, ok := v.Cell.Get(); ok {
			sb.WriteString("<captured ")
			writeRepr(sb, inner, active)
			sb.WriteByte('>')
		} else {
			sb.WriteString("<captured>")
		}
	case KindHost:
		sb.WriteString(v.Host.Value.String())
	case KindModule:
		sb.WriteString("<frozen_module>")
	default:
		sb.WriteString("<unknown>")
	}
}

// Describe renders one line for a module listing: a def header for
// functions, an assignment otherwise.
func Describe(name string, v Value) string {
	if v.Kind == KindFunction {
		return "def " + name + "(" + strings.Join(v.Func.Params, ", ") + "): ..."
	}
	return name + " = " + Repr(v)
}
