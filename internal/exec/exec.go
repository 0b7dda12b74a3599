// Package exec evaluates a small statement subset of Starlark into a module
// environment: assignments, expression statements, load and single-return
// def. It exists to drive modules end to end, not as a full interpreter.
package exec

import (
	"go.starlark.net/syntax"

	_ "github.com/xirelogy/go-starenv/internal/builtins"
	"github.com/xirelogy/go-starenv/internal/env"
	"github.com/xirelogy/go-starenv/internal/profile"
	"github.com/xirelogy/go-starenv/internal/value"
)

// Importer resolves the target of a load statement to a frozen module.
type Importer interface {
	Import(module string) (*env.FrozenModule, error)
}

// Options controls a single execution.
type Options struct {
	Importer Importer
	Profile  *profile.FlameProfile
	// CollectEvery runs a collection after every n top-level statements.
	// Zero disables collection.
	CollectEvery int
}

const maxCallDepth = 200

// Parse parses src as a file named filename.
func Parse(filename string, src any) (*syntax.File, error) {
	return syntax.Parse(filename, src, 0)
}

// ExecFile parses src and executes it into m.
func ExecFile(m *env.Module, filename string, src any, opts Options) error {
	f, err := Parse(filename, src)
	if err != nil {
		return err
	}
	return Exec(m, f, opts)
}

// Exec runs the statements of f against m. Every top-level name is declared
// before the first statement runs, so a read that comes before the
// assignment reports the variable by name.
func Exec(m *env.Module, f *syntax.File, opts Options) error {
	ev := &evaluator{module: m, opts: opts}
	ev.predeclare(f.Stmts)
	for i, stmt := range f.Stmts {
		if i == 0 {
			if doc, ok := docstring(stmt); ok {
				m.SetDocstring(doc)
				continue
			}
		}
		if err := ev.execStmt(stmt); err != nil {
			return err
		}
		if opts.CollectEvery > 0 && (i+1)%opts.CollectEvery == 0 {
			ev.collect()
		}
	}
	return nil
}

// ExecInteractive runs one chunk of interactive input against m. When the
// last statement is an expression its value is returned with ok set.
// Docstrings are not recognised.
func ExecInteractive(m *env.Module, filename string, src any, opts Options) (result value.Value, ok bool, err error) {
	f, err := Parse(filename, src)
	if err != nil {
		return value.None(), false, err
	}
	ev := &evaluator{module: m, opts: opts}
	ev.predeclare(f.Stmts)
	for i, stmt := range f.Stmts {
		es, isExpr := stmt.(*syntax.ExprStmt)
		if isExpr && i == len(f.Stmts)-1 {
			v, err := ev.eval(es.X)
			if err != nil {
				return value.None(), false, err
			}
			return v, true, nil
		}
		if err := ev.execStmt(stmt); err != nil {
			return value.None(), false, err
		}
	}
	return value.None(), false, nil
}

type evaluator struct {
	module *env.Module
	opts   Options
	frames []callFrame
	scope  *scope
}

type scope struct {
	fn     *value.Function
	body   *funcBody
	locals map[string]value.Value
}

// funcBody is what a def compiles to: its result expression and the module
// slots of every global it mentions.
type funcBody struct {
	result  syntax.Expr
	globals map[string]env.Slot
}

func (ev *evaluator) collect() {
	var roots []value.Trace
	if ev.opts.Profile != nil {
		roots = append(roots, ev.opts.Profile)
	}
	ev.module.Collect(roots...)
}

func (ev *evaluator) predeclare(stmts []syntax.Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *syntax.AssignStmt:
			if id, ok := s.LHS.(*syntax.Ident); ok {
				ev.module.Declare(id.Name)
			}
		case *syntax.DefStmt:
			ev.module.Declare(s.Name.Name)
		case *syntax.LoadStmt:
			for _, to := range s.To {
				ev.module.DeclarePrivate(to.Name)
			}
		}
	}
}

func docstring(stmt syntax.Stmt) (string, bool) {
	es, ok := stmt.(*syntax.ExprStmt)
	if !ok {
		return "", false
	}
	lit, ok := es.X.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}

func (ev *evaluator) execStmt(stmt syntax.Stmt) error {
	switch s := stmt.(type) {
	case *syntax.ExprStmt:
		_, err := ev.eval(s.X)
		return err
	case *syntax.AssignStmt:
		return ev.assign(s)
	case *syntax.LoadStmt:
		return ev.load(s)
	case *syntax.DefStmt:
		return ev.def(s)
	case *syntax.BranchStmt:
		if s.Token == syntax.PASS {
			return nil
		}
	}
	return ev.errorf(stmt, "unsupported statement")
}

func (ev *evaluator) assign(s *syntax.AssignStmt) error {
	rhs, err := ev.eval(s.RHS)
	if err != nil {
		return err
	}
	switch s.Op {
	case syntax.EQ:
	case syntax.PLUS_EQ:
		cur, err := ev.eval(s.LHS)
		if err != nil {
			return err
		}
		if cur.Kind == value.KindList && rhs.Kind == value.KindList {
			// x += y extends x in place.
			return ev.errorAt(s, cur.List.Extend(rhs.List.Items))
		}
		if rhs, err = ev.add(s, cur, rhs); err != nil {
			return err
		}
	default:
		return ev.errorf(s, "unsupported assignment operator %s", s.Op)
	}

	switch lhs := s.LHS.(type) {
	case *syntax.Ident:
		ev.module.Set(lhs.Name, rhs)
		return nil
	case *syntax.IndexExpr:
		x, err := ev.eval(lhs.X)
		if err != nil {
			return err
		}
		y, err := ev.eval(lhs.Y)
		if err != nil {
			return err
		}
		return ev.setIndex(lhs, x, y, rhs)
	default:
		return ev.errorf(s.LHS, "unsupported assignment target")
	}
}

func (ev *evaluator) load(s *syntax.LoadStmt) error {
	if ev.opts.Importer == nil {
		return ev.errorf(s, "load is not available here")
	}
	other, err := ev.opts.Importer.Import(s.ModuleName())
	if err != nil {
		return ev.errorAt(s.Module, err)
	}
	for i, from := range s.From {
		v, err := ev.module.LoadSymbol(other, from.Name)
		if err != nil {
			return ev.errorAt(from, err)
		}
		ev.module.SetPrivate(s.To[i].Name, v)
	}
	return nil
}

func (ev *evaluator) def(s *syntax.DefStmt) error {
	params := make([]string, 0, len(s.Params))
	isParam := map[string]bool{}
	for _, p := range s.Params {
		id, ok := p.(*syntax.Ident)
		if !ok {
			return ev.errorf(p, "only plain parameters are supported")
		}
		params = append(params, id.Name)
		isParam[id.Name] = true
	}

	stmts := s.Body
	doc := ""
	if len(stmts) > 0 {
		if d, ok := docstring(stmts[0]); ok {
			doc = d
			stmts = stmts[1:]
		}
	}
	body := &funcBody{globals: map[string]env.Slot{}}
	switch {
	case len(stmts) == 0:
	case len(stmts) == 1:
		switch r := stmts[0].(type) {
		case *syntax.ReturnStmt:
			body.result = r.Result
		case *syntax.BranchStmt:
			if r.Token != syntax.PASS {
				return ev.errorf(r, "unsupported statement in function body")
			}
		default:
			return ev.errorf(r, "function body must be a single return statement")
		}
	default:
		return ev.errorf(stmts[1], "function body must be a single return statement")
	}

	if body.result != nil {
		syntax.Walk(body.result, func(n syntax.Node) bool {
			id, ok := n.(*syntax.Ident)
			if !ok || isParam[id.Name] {
				return true
			}
			if slot, _, ok := ev.module.Names().Lookup(id.Name); ok {
				body.globals[id.Name] = slot
			}
			return true
		})
	}

	fn := &value.Function{
		Name:   s.Name.Name,
		Params: params,
		Doc:    doc,
		Body:   body,
	}
	ev.module.Set(s.Name.Name, ev.module.Heap().NewFunction(fn, ev.module))
	return nil
}

// Call invokes fn from outside any script. Values the call allocates live
// on scratch, which must stay unfrozen for as long as they are used.
func Call(scratch *env.Module, fn value.Value, args []value.Value, opts Options) (value.Value, error) {
	ev := &evaluator{module: scratch, opts: opts}
	call := &syntax.CallExpr{Fn: &syntax.Ident{Name: fnName(fn)}}
	return ev.call(call, fn, args)
}

func fnName(fn value.Value) string {
	if fn.Kind == value.KindFunction {
		return fn.Func.Name
	}
	return "<value>"
}
