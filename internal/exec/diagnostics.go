package exec

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// FrameInfo captures one call frame at the time of an error.
type FrameInfo struct {
	Function string
	Source   string
	Line     int
	Col      int
}

func (f FrameInfo) location() string {
	parts := []string{}
	if f.Source != "" {
		if f.Line > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d:%d", f.Source, f.Line, f.Col))
		} else {
			parts = append(parts, f.Source)
		}
	} else if f.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", f.Line))
	}
	if f.Function != "" {
		parts = append(parts, fmt.Sprintf("in %s", f.Function))
	}
	return strings.Join(parts, " ")
}

// RuntimeError carries source and stack information for evaluation failures.
type RuntimeError struct {
	Message string
	Frame   FrameInfo
	Stack   []FrameInfo
	Cause   error
}

func (e *RuntimeError) Error() string {
	if loc := e.Frame.location(); loc != "" {
		return fmt.Sprintf("%s: %s", loc, e.Message)
	}
	return e.Message
}

// Unwrap exposes the original error, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// Backtrace renders the stack innermost first.
func (e *RuntimeError) Backtrace() string {
	lines := make([]string, 0, len(e.Stack))
	for _, f := range e.Stack {
		lines = append(lines, "  at "+f.location())
	}
	return strings.Join(lines, "\n")
}

type callFrame struct {
	function string
	pos      syntax.Position
}

func frameInfo(function string, pos syntax.Position) FrameInfo {
	if !pos.IsValid() {
		return FrameInfo{Function: function}
	}
	return FrameInfo{
		Function: function,
		Source:   pos.Filename(),
		Line:     int(pos.Line),
		Col:      int(pos.Col),
	}
}

// errorAt wraps err with the position of node, keeping the innermost
// location when err is already a RuntimeError.
func (ev *evaluator) errorAt(node syntax.Node, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*RuntimeError); ok {
		return err
	}
	pos, _ := node.Span()
	return ev.newRuntimeError(pos, err.Error(), err)
}

func (ev *evaluator) errorf(node syntax.Node, format string, args ...any) error {
	pos, _ := node.Span()
	return ev.newRuntimeError(pos, fmt.Sprintf(format, args...), nil)
}

func (ev *evaluator) newRuntimeError(pos syntax.Position, msg string, cause error) *RuntimeError {
	current := ev.currentFunction()
	stack := []FrameInfo{frameInfo(current, pos)}
	for i := len(ev.frames) - 1; i >= 0; i-- {
		caller := "<toplevel>"
		if i > 0 {
			caller = ev.frames[i-1].function
		}
		stack = append(stack, frameInfo(caller, ev.frames[i].pos))
	}
	return &RuntimeError{
		Message: msg,
		Frame:   stack[0],
		Stack:   stack,
		Cause:   cause,
	}
}

func (ev *evaluator) currentFunction() string {
	if len(ev.frames) == 0 {
		return "<toplevel>"
	}
	return ev.frames[len(ev.frames)-1].function
}
