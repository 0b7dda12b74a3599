// Package profile records call stacks and writes them in the folded format
// flame graph tools read.
package profile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/xirelogy/go-starenv/internal/value"
)

type frameKind uint8

const (
	framePush frameKind = iota
	framePop
)

type frame struct {
	kind  frameKind
	index int
	at    time.Time
}

// FlameProfile is disabled until Enable is called; recording on a disabled
// profile does nothing. It is owned by a single evaluator.
type FlameProfile struct {
	// Now supplies timestamps. Defaults to time.Now.
	Now func() time.Time

	enabled bool
	frames  []frame
	values  []value.Value
	byID    map[any]int
}

func NewFlameProfile() *FlameProfile {
	return &FlameProfile{Now: time.Now}
}

func (p *FlameProfile) Enable() {
	p.enabled = true
	p.frames = nil
	p.values = nil
	p.byID = make(map[any]int)
}

func (p *FlameProfile) Enabled() bool {
	return p.enabled
}

func (p *FlameProfile) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// RecordCallEnter pushes fn. Functions are deduplicated by identity.
func (p *FlameProfile) RecordCallEnter(fn value.Value) {
	if !p.enabled {
		return
	}
	id := fn.Identity()
	idx, ok := p.byID[id]
	if !ok {
		idx = len(p.values)
		p.values = append(p.values, fn)
		p.byID[id] = idx
	}
	p.frames = append(p.frames, frame{kind: framePush, index: idx, at: p.now()})
}

func (p *FlameProfile) RecordCallExit() {
	if !p.enabled {
		return
	}
	p.frames = append(p.frames, frame{kind: framePop, at: p.now()})
}

// Trace relocates the recorded functions. Identities change across a
// collection, so the lookup map is rebuilt from the value list.
func (p *FlameProfile) Trace(t *value.Tracer) {
	if !p.enabled {
		return
	}
	t.Values(p.values)
	p.byID = make(map[any]int, len(p.values))
	for i, v := range p.values {
		p.byID[v.Identity()] = i
	}
}

// WriteTo writes one `root;a;b N` line per stack, N in whole milliseconds.
// Stacks that took no measurable time are left out.
func (p *FlameProfile) WriteTo(w io.Writer) (int64, error) {
	names := make([]string, len(p.values))
	for i, v := range p.values {
		names[i] = value.Repr(v)
	}
	root := buildStacks(names, p.frames)
	cw := &countingWriter{w: bufio.NewWriter(w)}
	if err := root.render(cw, ""); err != nil {
		return cw.n, err
	}
	return cw.n, cw.w.Flush()
}

// WriteFile writes the profile to path. It is a no-op when disabled.
func (p *FlameProfile) WriteFile(path string) error {
	if !p.enabled {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create profile output %s: %w", path, err)
	}
	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write profile output %s: %w", path, err)
	}
	return f.Close()
}

type stack struct {
	name     string
	elapsed  time.Duration
	order    []int
	children map[int]*stack
}

func newStack(name string) *stack {
	return &stack{name: name, children: map[int]*stack{}}
}

func buildStacks(names []string, frames []frame) *stack {
	root := newStack("root")
	if len(frames) == 0 {
		return root
	}
	last := frames[0].at
	rest := frames
	root.add(names, &rest, &last)
	return root
}

// add charges time to s until the frame that pops it.
func (s *stack) add(names []string, frames *[]frame, last *time.Time) {
	for len(*frames) > 0 {
		f := (*frames)[0]
		*frames = (*frames)[1:]
		s.elapsed += f.at.Sub(*last)
		*last = f.at
		if f.kind == framePop {
			return
		}
		child, ok := s.children[f.index]
		if !ok {
			child = newStack(names[f.index])
			s.children[f.index] = child
			s.order = append(s.order, f.index)
		}
		child.add(names, frames, last)
	}
}

func (s *stack) render(w io.Writer, prefix string) error {
	path := s.name
	if prefix != "" {
		path = prefix + ";" + s.name
	}
	if ms := s.elapsed.Milliseconds(); ms > 0 {
		if _, err := fmt.Fprintf(w, "%s %d\n", path, ms); err != nil {
			return err
		}
	}
	for _, idx := range s.order {
		if err := s.children[idx].render(w, path); err != nil {
			return err
		}
	}
	return nil
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// String renders the profile, mostly for tests and the REPL.
func (p *FlameProfile) String() string {
	var sb strings.Builder
	_, _ = p.WriteTo(&sb)
	return sb.String()
}
