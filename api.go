// Package starenv hosts module environments for a Starlark-style language:
// mutable modules that scripts execute into, and the frozen modules they
// become once execution finishes.
package starenv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"

	"github.com/xirelogy/go-starenv/internal/docs"
	"github.com/xirelogy/go-starenv/internal/env"
	"github.com/xirelogy/go-starenv/internal/exec"
	"github.com/xirelogy/go-starenv/internal/value"
)

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// Errors surfaced by module operations.
type (
	EnvironmentError = env.EnvironmentError
	ErrorKind        = env.ErrorKind
	FreezeError      = value.FreezeError
	RuntimeError     = exec.RuntimeError
	CycleError       = exec.CycleError
)

const (
	NameNotExported       = env.NameNotExported
	NameNotFound          = env.NameNotFound
	PrivateImportRejected = env.PrivateImportRejected
	SlotOutOfRange        = env.SlotOutOfRange
	SlotAbsent            = env.SlotAbsent
)

var (
	ErrNameNotExported       = env.ErrNameNotExported
	ErrNameNotFound          = env.ErrNameNotFound
	ErrPrivateImportRejected = env.ErrPrivateImportRejected
	ErrSlotAbsent            = env.ErrSlotAbsent
	ErrFrozen                = value.ErrFrozen
	ErrModuleFrozen          = env.ErrModuleFrozen
)

// Host is an opaque Go value stored in a module. Implement FreezableHost to
// let it survive freezing.
type (
	Host          = value.Host
	FreezableHost = value.FreezableHost
)

// Value is a module value handed to Go. Values read from a frozen module
// keep that module's heap alive.
type Value struct {
	v     value.Value
	owner *value.FrozenHeapRef

	// module is the module that created v, while v is still mutable.
	module *env.Module
}

// ArgError represents a typed conversion error.
type ArgError struct {
	Name string
	Want string
	Got  string
}

func (e ArgError) Error() string {
	switch {
	case e.Name != "" && e.Want != "" && e.Got != "":
		return fmt.Sprintf("argument %q: want %s, got %s", e.Name, e.Want, e.Got)
	case e.Name != "" && e.Want != "":
		return fmt.Sprintf("argument %q: want %s", e.Name, e.Want)
	case e.Want != "" && e.Got != "":
		return fmt.Sprintf("want %s, got %s", e.Want, e.Got)
	default:
		return "argument error"
	}
}

// Marshaler allows custom control over Go to module value conversion. The
// returned Go value is marshaled in its place.
type Marshaler interface {
	MarshalStarenv() (any, error)
}

// Unmarshaler allows custom control over conversion in Unmarshal.
type Unmarshaler interface {
	UnmarshalStarenv(Value) error
}

// ValueKind mirrors the runtime kinds for convenient inspection.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueBool
	ValueInt
	ValueString
	ValueList
	ValueDict
	ValueFunction
	ValueCaptured
	ValueHost
	ValueModule
)

func kindName(k ValueKind) string {
	switch k {
	case ValueNone:
		return "None"
	case ValueBool:
		return "bool"
	case ValueInt:
		return "int"
	case ValueString:
		return "string"
	case ValueList:
		return "list"
	case ValueDict:
		return "dict"
	case ValueFunction:
		return "function"
	case ValueCaptured:
		return "captured"
	case ValueHost:
		return "host"
	case ValueModule:
		return "module"
	default:
		return "unknown"
	}
}

// Kind reports the underlying value kind.
func (v Value) Kind() ValueKind {
	return ValueKind(v.v.Kind)
}

// Frozen reports whether the value is immutable.
func (v Value) Frozen() bool {
	return v.v.Frozen()
}

// Repr renders the value the way scripts print it.
func (v Value) Repr() string {
	return value.Repr(v.v)
}

// IsNone reports whether the value is None.
func (v Value) IsNone() bool {
	return v.v.Kind == value.KindNone
}

// Bool returns the boolean value when the kind matches.
func (v Value) Bool() (bool, bool) {
	if v.v.Kind != value.KindBool {
		return false, false
	}
	return v.v.B, true
}

// Int returns the integer value when the kind matches.
func (v Value) Int() (int64, bool) {
	if v.v.Kind != value.KindInt {
		return 0, false
	}
	return v.v.Int, true
}

// String returns the string value when the kind matches.
func (v Value) String() (string, bool) {
	if v.v.Kind != value.KindString {
		return "", false
	}
	return v.v.Str, true
}

// List unwraps a list into Values when the kind matches.
func (v Value) List() ([]Value, bool) {
	if v.v.Kind != value.KindList {
		return nil, false
	}
	out := make([]Value, len(v.v.List.Items))
	for i, el := range v.v.List.Items {
		out[i] = Value{v: el, owner: v.owner, module: v.module}
	}
	return out, true
}

// DictEntry is one key/value pair of a dict, in insertion order.
type DictEntry struct {
	Key   Value
	Value Value
}

// Dict unwraps a dict into its entries when the kind matches.
func (v Value) Dict() ([]DictEntry, bool) {
	if v.v.Kind != value.KindDict {
		return nil, false
	}
	out := make([]DictEntry, 0, v.v.Dict.Len())
	v.v.Dict.Each(func(k, el value.Value) bool {
		out = append(out, DictEntry{
			Key:   Value{v: k, owner: v.owner, module: v.module},
			Value: Value{v: el, owner: v.owner, module: v.module},
		})
		return true
	})
	return out, true
}

// Host returns the wrapped Go value when the kind matches.
func (v Value) Host() (Host, bool) {
	if v.v.Kind != value.KindHost {
		return nil, false
	}
	return v.v.Host.Value, true
}

// Raw returns a Go representation of the value. Functions are not
// convertible and return an error; use AsFunction.
func (v Value) Raw() (any, error) {
	return unmarshalToGo(v.v, map[any]bool{})
}

// MustRaw returns Raw() or panics on error.
func (v Value) MustRaw() any {
	val, err := v.Raw()
	if err != nil {
		panic(err)
	}
	return val
}

// AsFunction extracts a callable handle when the value is a function.
func (v Value) AsFunction() (*FunctionHandle, bool) {
	if v.v.Kind != value.KindFunction {
		return nil, false
	}
	return &FunctionHandle{fn: v}, true
}

// FunctionHandle calls a module function from Go.
type FunctionHandle struct {
	fn Value
}

// Name returns the function's declared name.
func (h *FunctionHandle) Name() string {
	return h.fn.v.Func.Name
}

// Params returns the declared parameter names.
func (h *FunctionHandle) Params() []string {
	return append([]string(nil), h.fn.v.Func.Params...)
}

// Call marshals args and runs the function. Values the call allocates are
// owned by the returned Value.
func (h *FunctionHandle) Call(ctx context.Context, args ...any) (Value, error) {
	if h == nil {
		return Value{}, errors.New("nil function handle")
	}
	if err := ctx.Err(); err != nil {
		return Value{}, err
	}
	scratch := env.NewModule()
	argVals := make([]value.Value, len(args))
	for i, a := range args {
		mv, err := marshalGoValue(scratchTarget(scratch.Heap()), a)
		if err != nil {
			return Value{}, fmt.Errorf("argument %d: %w", i, err)
		}
		argVals[i] = mv
	}
	res, err := exec.Call(scratch, h.fn.v, argVals, exec.Options{})
	if err != nil {
		return Value{}, err
	}
	return Value{v: res, owner: h.fn.owner, module: scratch}, nil
}

// Module is a mutable environment. It has a single writer; Freeze consumes it.
type Module struct {
	m *env.Module
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{m: env.NewModule()}
}

// Set marshals val and binds it to name. Names that start with an
// underscore are private.
func (m *Module) Set(name string, val any) error {
	v, err := marshalGoValue(moduleTarget(m.m), val)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	m.m.Set(name, v)
	return nil
}

// SetPrivate marshals val and binds it to name without exporting it.
func (m *Module) SetPrivate(name string, val any) error {
	v, err := marshalGoValue(moduleTarget(m.m), val)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	m.m.SetPrivate(name, v)
	return nil
}

// SetFunction binds a Go function as a callable named name.
// Supported signatures:
//
//	func(...) T
//	func(...) (T, error)
//	func(...) error
//	func(...), which returns None
//
// Where T is any type supported by Set.
func (m *Module) SetFunction(name string, fn any) error {
	native, params, err := nativeFromFunc(name, fn)
	if err != nil {
		return fmt.Errorf("marshal function %s: %w", name, err)
	}
	// Natives carry no module state, so they start out frozen.
	m.m.Set(name, m.m.FrozenHeap().NewFunction(name, params, native).ToValue())
	return nil
}

// SetDocstring records the module docstring; later calls overwrite it.
func (m *Module) SetDocstring(doc string) {
	m.m.SetDocstring(doc)
}

// Get returns an exported binding.
func (m *Module) Get(name string) (Value, bool) {
	v, ok := m.m.Get(name)
	if !ok {
		return Value{}, false
	}
	return Value{v: v, module: m.m}, true
}

// Names returns the exported names in definition order.
func (m *Module) Names() []string {
	return m.m.Names().Names()
}

// Describe prints one line per exported binding.
func (m *Module) Describe() string {
	return m.m.Describe()
}

// Exec runs src into the module. load statements are resolved through
// loader; a nil loader rejects them.
func (m *Module) Exec(filename string, src any, loader *Loader) error {
	opts := exec.Options{}
	if loader != nil {
		opts.Importer = loader.l.Importer()
	}
	return exec.ExecFile(m.m, filename, src, opts)
}

// LoadSymbol resolves symbol in other as a load statement would.
func (m *Module) LoadSymbol(other *FrozenModule, symbol string) (Value, error) {
	v, err := m.m.LoadSymbol(other.fm, symbol)
	if err != nil {
		return Value{}, err
	}
	return Value{v: v, owner: other.fm.FrozenHeap()}, nil
}

// ImportPublicSymbols binds every public symbol of other into m as private.
func (m *Module) ImportPublicSymbols(other *FrozenModule) {
	m.m.ImportPublicSymbols(other.fm)
}

// Freeze consumes the module and returns its immutable snapshot.
func (m *Module) Freeze() (*FrozenModule, error) {
	fm, err := m.m.Freeze()
	if err != nil {
		return nil, err
	}
	return &FrozenModule{fm: fm}, nil
}

// FrozenModule is an immutable module, safe for concurrent readers.
type FrozenModule struct {
	fm *env.FrozenModule
}

// Get returns an exported binding.
func (f *FrozenModule) Get(name string) (Value, bool) {
	owned, ok := f.fm.Get(name)
	if !ok {
		return Value{}, false
	}
	return Value{v: owned.Value().ToValue(), owner: owned.Owner()}, true
}

// Names returns the exported names in definition order.
func (f *FrozenModule) Names() []string {
	return f.fm.Names()
}

// Describe prints one line per exported binding.
func (f *FrozenModule) Describe() string {
	return f.fm.Describe()
}

// RenderDocs renders the module documentation as HTML.
func (f *FrozenModule) RenderDocs(title string) (string, error) {
	return docs.RenderHTML(title, f.fm.ModuleDocumentation())
}

// Loader resolves load targets against search roots and caches the frozen
// results. It is safe for concurrent use.
type Loader struct {
	l *exec.Loader
}

// NewLoader creates a loader. A nil logger discards output.
func NewLoader(roots []string, logger *slog.Logger) *Loader {
	return &Loader{l: exec.NewLoader(roots, logger)}
}

// Load returns the frozen module for name, executing it on first use.
func (l *Loader) Load(name string) (*FrozenModule, error) {
	fm, err := l.l.Load(name)
	if err != nil {
		return nil, err
	}
	return &FrozenModule{fm: fm}, nil
}

func nativeFromFunc(name string, fn any) (value.NativeFunc, []string, error) {
	if fn == nil {
		return nil, nil, errors.New("nil function")
	}
	rv := reflect.ValueOf(fn)
	rt := rv.Type()
	if rt.Kind() != reflect.Func {
		return nil, nil, fmt.Errorf("value of %s is not a function", name)
	}
	if rt.IsVariadic() {
		return nil, nil, fmt.Errorf("function %s is variadic", name)
	}
	if rt.NumOut() > 2 {
		return nil, nil, fmt.Errorf("function %s has too many return values (max 2)", name)
	}
	retValIndex := -1
	retErrIndex := -1
	switch rt.NumOut() {
	case 0:
	case 1:
		if rt.Out(0) == errorType {
			retErrIndex = 0
		} else {
			retValIndex = 0
		}
	case 2:
		if rt.Out(1) != errorType {
			return nil, nil, fmt.Errorf("function %s second return value must be error", name)
		}
		retValIndex = 0
		retErrIndex = 1
	}

	paramNames := make([]string, rt.NumIn())
	for i := range paramNames {
		paramNames[i] = fmt.Sprintf("arg%d", i)
	}

	native := func(args []value.Value) (value.Value, error) {
		if len(args) != rt.NumIn() {
			return value.Value{}, fmt.Errorf("%s() takes %d arguments, got %d", name, rt.NumIn(), len(args))
		}
		inputs := make([]reflect.Value, rt.NumIn())
		for i := range inputs {
			ptr := reflect.New(rt.In(i))
			if err := assignValue(args[i], ptr.Elem()); err != nil {
				return value.Value{}, fmt.Errorf("argument %s: %w", paramNames[i], err)
			}
			inputs[i] = ptr.Elem()
		}
		results := rv.Call(inputs)
		if retErrIndex >= 0 && !results[retErrIndex].IsNil() {
			return value.Value{}, results[retErrIndex].Interface().(error)
		}
		if retValIndex >= 0 {
			// Results outlive the call, so they get a heap of their own.
			return marshalGoValue(scratchTarget(value.NewHeap()), results[retValIndex].Interface())
		}
		return value.None(), nil
	}
	return native, paramNames, nil
}

// marshalTarget is where marshalled values land. module is the module the
// result will be bound into, or nil for scratch values that are never frozen.
type marshalTarget struct {
	heap   *value.Heap
	module *env.Module
}

func moduleTarget(m *env.Module) marshalTarget {
	return marshalTarget{heap: m.Heap(), module: m}
}

func scratchTarget(h *value.Heap) marshalTarget {
	return marshalTarget{heap: h}
}

// adopt admits a Value read from some module. Mutable values may only be
// bound into the module that created them; frozen ones make the target keep
// their heap alive.
func (t marshalTarget) adopt(v Value) (value.Value, error) {
	if t.module == nil {
		return v.v, nil
	}
	if _, frozen := value.AsFrozen(v.v); !frozen {
		if v.module != t.module {
			return value.Value{}, fmt.Errorf("mutable %s belongs to another module; freeze that module first", value.TypeName(v.v))
		}
		return v.v, nil
	}
	t.module.FrozenHeap().AddReference(v.owner)
	return v.v, nil
}

// marshalGoValue converts common Go types into module values allocated on
// the target heap.
func marshalGoValue(t marshalTarget, val any) (value.Value, error) {
	if m, ok := val.(Marshaler); ok {
		custom, err := m.MarshalStarenv()
		if err != nil {
			return value.Value{}, err
		}
		if _, again := custom.(Marshaler); again {
			return value.Value{}, errors.New("MarshalStarenv returned another Marshaler")
		}
		return marshalGoValue(t, custom)
	}
	switch v := val.(type) {
	case Value:
		return t.adopt(v)
	case nil:
		return value.None(), nil
	case bool:
		return value.Bool(v), nil
	case int:
		return value.Int(int64(v)), nil
	case int64:
		return value.Int(v), nil
	case string:
		return value.String(v), nil
	case []any:
		return marshalSlice(t, reflect.ValueOf(v))
	case map[string]any:
		d := t.heap.NewDict()
		for k, el := range v {
			mv, err := marshalGoValue(t, el)
			if err != nil {
				return value.Value{}, err
			}
			if err := d.Dict.Set(value.String(k), mv); err != nil {
				return value.Value{}, err
			}
		}
		return d, nil
	case Host:
		return t.heap.NewHost(v), nil
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return value.None(), nil
		}
		return marshalGoValue(t, rv.Elem().Interface())
	case reflect.Interface:
		if rv.IsNil() {
			return value.None(), nil
		}
		return marshalGoValue(t, rv.Elem().Interface())
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return value.Value{}, fmt.Errorf("integer %d out of range", u)
		}
		return value.Int(int64(u)), nil
	case reflect.String:
		return value.String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		return marshalSlice(t, rv)
	case reflect.Map:
		d := t.heap.NewDict()
		iter := rv.MapRange()
		for iter.Next() {
			k, err := marshalGoValue(t, iter.Key().Interface())
			if err != nil {
				return value.Value{}, err
			}
			el, err := marshalGoValue(t, iter.Value().Interface())
			if err != nil {
				return value.Value{}, err
			}
			if err := d.Dict.Set(k, el); err != nil {
				return value.Value{}, err
			}
		}
		return d, nil
	case reflect.Struct:
		d := t.heap.NewDict()
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if field.PkgPath != "" { // unexported
				continue
			}
			el, err := marshalGoValue(t, rv.Field(i).Interface())
			if err != nil {
				return value.Value{}, err
			}
			if err := d.Dict.Set(value.String(field.Name), el); err != nil {
				return value.Value{}, err
			}
		}
		return d, nil
	case reflect.Func:
		native, params, err := nativeFromFunc(rv.Type().String(), val)
		if err != nil {
			return value.Value{}, err
		}
		if t.module != nil {
			return t.module.FrozenHeap().NewFunction("native", params, native).ToValue(), nil
		}
		return t.heap.NewFunction(&value.Function{Name: "native", Params: params, Native: native}, nil), nil
	}
	return value.Value{}, fmt.Errorf("unsupported value type %T", val)
}

func marshalSlice(t marshalTarget, rv reflect.Value) (value.Value, error) {
	items := make([]value.Value, rv.Len())
	for i := range items {
		mv, err := marshalGoValue(t, rv.Index(i).Interface())
		if err != nil {
			return value.Value{}, err
		}
		items[i] = mv
	}
	return t.heap.NewList(items), nil
}

// unmarshalToGo converts a module value into plain Go values for Raw.
func unmarshalToGo(v value.Value, active map[any]bool) (any, error) {
	switch v.Kind {
	case value.KindNone:
		return nil, nil
	case value.KindBool:
		return v.B, nil
	case value.KindInt:
		return v.Int, nil
	case value.KindString:
		return v.Str, nil
	case value.KindList:
		if active[v.List] {
			return nil, errors.New("Raw() not supported on self-referential values")
		}
		active[v.List] = true
		defer delete(active, v.List)
		out := make([]any, len(v.List.Items))
		for i, el := range v.List.Items {
			val, err := unmarshalToGo(el, active)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case value.KindDict:
		if active[v.Dict] {
			return nil, errors.New("Raw() not supported on self-referential values")
		}
		active[v.Dict] = true
		defer delete(active, v.Dict)
		out := make(map[string]any, v.Dict.Len())
		var err error
		v.Dict.Each(func(k, el value.Value) bool {
			if k.Kind != value.KindString {
				err = fmt.Errorf("Raw() needs string dict keys, got %s", value.TypeName(k))
				return false
			}
			var val any
			if val, err = unmarshalToGo(el, active); err != nil {
				return false
			}
			out[k.Str] = val
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case value.KindHost:
		return v.Host.Value, nil
	case value.KindFunction:
		return nil, errors.New("Raw() not supported on function values; use AsFunction")
	default:
		return nil, fmt.Errorf("Raw() not supported on %s values", value.TypeName(v))
	}
}

// Unmarshal assigns a module value into a Go target using reflection.
// Supports primitives, slices, maps, structs, and Unmarshaler.
func Unmarshal(val Value, target any) error {
	if target == nil {
		return errors.New("nil target")
	}
	if u, ok := target.(Unmarshaler); ok {
		return u.UnmarshalStarenv(val)
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("target must be non-nil pointer")
	}
	return assignValue(val.v, rv.Elem())
}

func mismatch(want string, src value.Value) error {
	return ArgError{Want: want, Got: kindName(ValueKind(src.Kind))}
}

func assignValue(src value.Value, dst reflect.Value) error {
	if !dst.CanSet() {
		return errors.New("cannot set target")
	}
	switch dst.Kind() {
	case reflect.Interface:
		if src.Kind == value.KindNone {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		raw, err := unmarshalToGo(src, map[any]bool{})
		if err != nil {
			return err
		}
		rv := reflect.ValueOf(raw)
		if !rv.Type().AssignableTo(dst.Type()) {
			return fmt.Errorf("cannot assign %s to %s", rv.Type(), dst.Type())
		}
		dst.Set(rv)
		return nil
	case reflect.Pointer:
		if src.Kind == value.KindNone {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		ptr := reflect.New(dst.Type().Elem())
		if err := assignValue(src, ptr.Elem()); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	case reflect.Bool:
		if src.Kind != value.KindBool {
			return mismatch("bool", src)
		}
		dst.SetBool(src.B)
		return nil
	case reflect.String:
		if src.Kind != value.KindString {
			return mismatch("string", src)
		}
		dst.SetString(src.Str)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if src.Kind != value.KindInt {
			return mismatch("int", src)
		}
		if dst.OverflowInt(src.Int) {
			return fmt.Errorf("integer %d overflows %s", src.Int, dst.Type())
		}
		dst.SetInt(src.Int)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if src.Kind != value.KindInt {
			return mismatch("int", src)
		}
		if src.Int < 0 || dst.OverflowUint(uint64(src.Int)) {
			return fmt.Errorf("integer %d overflows %s", src.Int, dst.Type())
		}
		dst.SetUint(uint64(src.Int))
		return nil
	case reflect.Float32, reflect.Float64:
		if src.Kind != value.KindInt {
			return mismatch("int", src)
		}
		dst.SetFloat(float64(src.Int))
		return nil
	case reflect.Slice:
		if src.Kind != value.KindList {
			return mismatch("list", src)
		}
		l := src.List.Len()
		dst.Set(reflect.MakeSlice(dst.Type(), l, l))
		for i := 0; i < l; i++ {
			if err := assignValue(src.List.Items[i], dst.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Array:
		if src.Kind != value.KindList {
			return mismatch("list", src)
		}
		l := src.List.Len()
		if l != dst.Len() {
			return fmt.Errorf("array length mismatch: have %d want %d", l, dst.Len())
		}
		for i := 0; i < l; i++ {
			if err := assignValue(src.List.Items[i], dst.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if src.Kind != value.KindDict {
			return mismatch("dict", src)
		}
		dst.Set(reflect.MakeMapWithSize(dst.Type(), src.Dict.Len()))
		var err error
		src.Dict.Each(func(k, v value.Value) bool {
			key := reflect.New(dst.Type().Key()).Elem()
			if err = assignValue(k, key); err != nil {
				return false
			}
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err = assignValue(v, elem); err != nil {
				return false
			}
			dst.SetMapIndex(key, elem)
			return true
		})
		return err
	case reflect.Struct:
		if src.Kind != value.KindDict {
			return mismatch("dict", src)
		}
		rt := dst.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if field.PkgPath != "" { // unexported
				continue
			}
			v, ok, err := src.Dict.Get(value.String(field.Name))
			if err != nil {
				return err
			}
			if ok {
				if err := assignValue(v, dst.Field(i)); err != nil {
					return fmt.Errorf("field %s: %w", field.Name, err)
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported unmarshal target kind %s", dst.Kind())
	}
}
