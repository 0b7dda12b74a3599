package exec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xirelogy/go-starenv/internal/env"
	"github.com/xirelogy/go-starenv/internal/profile"
	"github.com/xirelogy/go-starenv/internal/value"
)

func run(t *testing.T, src string, opts Options) *env.Module {
	t.Helper()
	m := env.NewModule()
	if err := ExecFile(m, "test.star", src, opts); err != nil {
		t.Fatalf("exec: %v", err)
	}
	return m
}

func runErr(t *testing.T, src string, opts Options) error {
	t.Helper()
	err := ExecFile(env.NewModule(), "test.star", src, opts)
	if err == nil {
		t.Fatalf("expected an error")
	}
	return err
}

func get(t *testing.T, m *env.Module, name string) value.Value {
	t.Helper()
	v, ok := m.Get(name)
	if !ok {
		t.Fatalf("missing %s", name)
	}
	return v
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

const basics = `"""Module doc."""
x = 1
y = [x, "a"]
y.append(3)
d = {"k": y}
d["j"] = x + 1
def add(a, b):
    """Adds two values."""
    return a + b
z = add(x, 2)
w = add("a", "b")
n = len(y) + len(d)
_hidden = 0
`

func TestExecBasics(t *testing.T) {
	m := run(t, basics, Options{})
	if got := value.Repr(get(t, m, "y")); got != `[1, "a", 3]` {
		t.Fatalf("y = %s", got)
	}
	if got := get(t, m, "z"); got.Int != 3 {
		t.Fatalf("z = %s", value.Repr(got))
	}
	if got := get(t, m, "w"); got.Str != "ab" {
		t.Fatalf("w = %s", value.Repr(got))
	}
	if got := get(t, m, "n"); got.Int != 5 {
		t.Fatalf("n = %s", value.Repr(got))
	}
	if _, ok := m.Get("_hidden"); ok {
		t.Fatalf("expected _hidden to be private")
	}
	if doc := m.Documentation(); doc == nil || doc.Doc.Summary != "Module doc." {
		t.Fatalf("unexpected module doc %#v", doc)
	}

	fm, err := m.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	desc := fm.Describe()
	for _, line := range []string{"x = 1", `d = {"k": [1, "a", 3], "j": 2}`, "def add(a, b): ..."} {
		if !strings.Contains(desc, line) {
			t.Fatalf("describe missing %q:\n%s", line, desc)
		}
	}
	if d := fm.ModuleDocumentation().Members["add"]; d == nil || d.Doc.Summary != "Adds two values." {
		t.Fatalf("unexpected add docs %#v", d)
	}
}

func TestExecUseBeforeAssignment(t *testing.T) {
	err := runErr(t, "a = b\nb = 1\n", Options{})
	if !errors.Is(err, env.ErrSlotAbsent) {
		t.Fatalf("expected absent slot, got %v", err)
	}
	if !strings.Contains(err.Error(), "test.star:1:5") || !strings.Contains(err.Error(), "variable `b` referenced before assignment") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestExecUndefinedName(t *testing.T) {
	err := runErr(t, "a = nope\n", Options{})
	if !strings.Contains(err.Error(), "name `nope` is not defined") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestExecRecursiveList(t *testing.T) {
	m := run(t, "cyclic = [1, 2, 3]\ncyclic[1] = cyclic\nn1 = len(cyclic)\nn2 = len(cyclic[1])\n", Options{})
	if get(t, m, "n1").Int != 3 || get(t, m, "n2").Int != 3 {
		t.Fatalf("expected 3 and 3")
	}
	fm, err := m.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	owned, _ := fm.Get("cyclic")
	if got := value.Repr(owned.Value().ToValue()); got != "[1, [...], 3]" {
		t.Fatalf("cyclic = %s", got)
	}
}

func TestExecForwardReferenceInFunction(t *testing.T) {
	src := "def f():\n    return later\nlater = 7\nv = f()\n"
	m := run(t, src, Options{})
	if get(t, m, "v").Int != 7 {
		t.Fatalf("expected f to read later")
	}
	err := runErr(t, "def f():\n    return later\nv = f()\nlater = 7\n", Options{})
	if !errors.Is(err, env.ErrSlotAbsent) || !strings.Contains(err.Error(), "in f: global `later` referenced before assignment") {
		t.Fatalf("expected absent read inside f, got %v", err)
	}
}

func TestExecUnsupported(t *testing.T) {
	for _, src := range []string{
		"if True:\n    x = 1\n",
		"def f():\n    x = 1\n    return x\n",
		"def f(a, b = 1):\n    return a\n",
		"x = len(y = 1)\n",
		"x = 1 - 2\n",
	} {
		err := runErr(t, src, Options{})
		var re *RuntimeError
		if !errors.As(err, &re) {
			t.Fatalf("%q: expected runtime error, got %v", src, err)
		}
	}
}

func TestExecErrorBacktrace(t *testing.T) {
	err := runErr(t, "def f(x):\n    return x[5]\ny = f([1])\n", Options{})
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if re.Frame.Function != "f" || re.Frame.Line != 2 {
		t.Fatalf("unexpected frame %+v", re.Frame)
	}
	if len(re.Stack) != 2 || re.Stack[1].Function != "<toplevel>" || re.Stack[1].Line != 3 {
		t.Fatalf("unexpected stack %+v", re.Stack)
	}
	if !strings.Contains(re.Backtrace(), "test.star:3:5 in <toplevel>") {
		t.Fatalf("unexpected backtrace:\n%s", re.Backtrace())
	}
}

func TestExecAugmentedAssignment(t *testing.T) {
	m := run(t, "xs = [1]\nalias = xs\nxs += [2]\nn = 1\nn += 2\n", Options{})
	if got := value.Repr(get(t, m, "alias")); got != "[1, 2]" {
		t.Fatalf("expected in-place extend, got %s", got)
	}
	if get(t, m, "n").Int != 3 {
		t.Fatalf("expected n = 3")
	}
}

const lib = `"""Shared helpers."""
factor = 2
items = [1]
_private = 1
def double(x):
    return x + x
def scaled(x):
    return [x, factor]
`

func TestLoad(t *testing.T) {
	dir := writeFiles(t, map[string]string{"lib.star": lib})
	loader := NewLoader([]string{dir}, nil)
	src := `load("lib.star", "double", "scaled", f = "factor")
r = double(21)
s = scaled(1)
g = f
`
	m := run(t, src, Options{Importer: loader.Importer()})
	if get(t, m, "r").Int != 42 {
		t.Fatalf("expected 42")
	}
	if got := value.Repr(get(t, m, "s")); got != "[1, 2]" {
		t.Fatalf("s = %s", got)
	}
	if get(t, m, "g").Int != 2 {
		t.Fatalf("expected g = 2")
	}
	if _, ok := m.Get("double"); ok {
		t.Fatalf("loaded symbols must not be re-exported")
	}
	if _, ok := m.Get("f"); ok {
		t.Fatalf("loaded alias must not be re-exported")
	}
	fm, err := m.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if refs := fm.FrozenHeap().References(); len(refs) != 1 {
		t.Fatalf("expected a reference to the library heap, got %d", len(refs))
	}
}

func TestLoadErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{"lib.star": lib})
	loader := NewLoader([]string{dir}, nil)
	opts := Options{Importer: loader.Importer()}

	err := runErr(t, `load("lib.star", "_private")`, opts)
	if !errors.Is(err, env.ErrPrivateImportRejected) {
		t.Fatalf("expected private rejection, got %v", err)
	}
	err = runErr(t, `load("lib.star", "doubel")`, opts)
	var ee *env.EnvironmentError
	if !errors.As(err, &ee) || ee.Kind != env.NameNotFound || ee.Suggestion != "double" {
		t.Fatalf("expected suggestion double, got %v", err)
	}
	err = runErr(t, `load("missing.star", "x")`, opts)
	if !strings.Contains(err.Error(), "cannot find module") {
		t.Fatalf("expected not found, got %v", err)
	}
	err = runErr(t, `load("../lib.star", "x")`, opts)
	if !strings.Contains(err.Error(), "escapes") {
		t.Fatalf("expected escape rejection, got %v", err)
	}
	err = runErr(t, `load("lib.star", "items")`+"\nitems.append(2)\n", opts)
	if !errors.Is(err, value.ErrFrozen) {
		t.Fatalf("expected frozen list, got %v", err)
	}
	err = runErr(t, `load("lib.star", "double")`, Options{})
	if !strings.Contains(err.Error(), "load is not available") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoadCycle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.star": `load("b.star", "b")` + "\na = 1\n",
		"b.star": `load("a.star", "a")` + "\nb = 1\n",
	})
	loader := NewLoader([]string{dir}, nil)
	_, err := loader.Load("a.star")
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if len(ce.Chain) != 3 || filepath.Base(ce.Chain[0]) != "a.star" || filepath.Base(ce.Chain[2]) != "a.star" {
		t.Fatalf("unexpected chain %v", ce.Chain)
	}
}

func TestLoaderCachesAcrossGoroutines(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"lib.star":      lib,
		"nested/x.star": `load("lib.star", "factor")` + "\nx = factor\n",
	})
	loader := NewLoader([]string{dir}, nil)
	first, err := loader.Load("lib.star")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var wg sync.WaitGroup
	results := make([]*env.FrozenModule, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fm, err := loader.Load("lib.star")
			if err != nil {
				t.Errorf("load: %v", err)
				return
			}
			results[i] = fm
		}(i)
	}
	wg.Wait()
	for _, fm := range results {
		if fm != first {
			t.Fatalf("expected the cached module")
		}
	}
	if _, err := loader.Load("nested/x.star"); err != nil {
		t.Fatalf("load nested: %v", err)
	}
	if loader.Cached() != 2 {
		t.Fatalf("expected two cached modules, got %d", loader.Cached())
	}
}

func TestLoaderSearchRootsInOrder(t *testing.T) {
	first := writeFiles(t, map[string]string{"v.star": "v = 1\n"})
	second := writeFiles(t, map[string]string{"v.star": "v = 2\n", "only.star": "o = 3\n"})
	loader := NewLoader([]string{first, second}, nil)
	if roots := loader.Roots(); len(roots) != 2 || roots[0] != first || roots[1] != second {
		t.Fatalf("unexpected roots %v", roots)
	}
	fm, err := loader.Load("v.star")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v, _ := fm.Get("v"); v.Value().ToValue().Int != 1 {
		t.Fatalf("expected first root to win")
	}
	if _, err := loader.Load("only.star"); err != nil {
		t.Fatalf("expected fallback to second root: %v", err)
	}
}

func TestExecProfile(t *testing.T) {
	clock := time.Unix(0, 0)
	p := profile.NewFlameProfile()
	p.Now = func() time.Time {
		now := clock
		clock = clock.Add(time.Millisecond)
		return now
	}
	p.Enable()
	run(t, "def f():\n    return 1\ndef g():\n    return f()\nx = g()\n", Options{Profile: p})
	want := "root;<function g> 2\nroot;<function g>;<function f> 1\n"
	if got := p.String(); got != want {
		t.Fatalf("unexpected profile:\n%s\nwant:\n%s", got, want)
	}
}

func TestExecCollectsBetweenStatements(t *testing.T) {
	p := profile.NewFlameProfile()
	p.Enable()
	src := `def pair(a):
    return [a, a]
garbage = [1, 2, 3]
garbage = None
keep = pair("x")
again = pair("y")
`
	m := run(t, src, Options{Profile: p, CollectEvery: 1})
	if m.Heap().Collections() == 0 {
		t.Fatalf("expected collections to run")
	}
	if got := value.Repr(get(t, m, "keep")); got != `["x", "x"]` {
		t.Fatalf("keep = %s", got)
	}
	// pair, keep and again survive; the dropped list does not.
	if got := m.Heap().Allocated(); got != 3 {
		t.Fatalf("expected 3 live objects, got %d", got)
	}
	fm, err := m.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if _, ok := fm.Get("pair"); !ok {
		t.Fatalf("expected pair to survive collection")
	}
}

func TestExecInteractive(t *testing.T) {
	m := env.NewModule()
	if _, ok, err := ExecInteractive(m, "<repl>", "xs = [1, 2]", Options{}); err != nil || ok {
		t.Fatalf("assignment: ok=%v err=%v", ok, err)
	}
	v, ok, err := ExecInteractive(m, "<repl>", "xs + [3]", Options{})
	if err != nil || !ok {
		t.Fatalf("expression: ok=%v err=%v", ok, err)
	}
	if got := value.Repr(v); got != "[1, 2, 3]" {
		t.Fatalf("unexpected result %s", got)
	}
	if _, _, err := ExecInteractive(m, "<repl>", "missing", Options{}); err == nil {
		t.Fatalf("expected undefined name error")
	}
}

func TestDictMethods(t *testing.T) {
	m := run(t, "cfg = {\"a\": 1}\nx = cfg.get(\"a\")\ny = cfg.get(\"b\", 5)\ncfg.setdefault(\"c\", 3)\n", Options{})
	if got := get(t, m, "x").Int; got != 1 {
		t.Fatalf("x = %d", got)
	}
	if got := get(t, m, "y").Int; got != 5 {
		t.Fatalf("y = %d", got)
	}
	if got := value.Repr(get(t, m, "cfg")); got != `{"a": 1, "c": 3}` {
		t.Fatalf("cfg = %s", got)
	}
}
