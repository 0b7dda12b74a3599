package exec

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xirelogy/go-starenv/internal/env"
)

// CycleError reports a chain of loads that leads back to itself.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "load cycle: " + strings.Join(e.Chain, " -> ")
}

type loadEntry struct {
	done   chan struct{}
	module *env.FrozenModule
	err    error
}

// Loader resolves load targets against a list of search roots, executes
// and freezes each module once, and hands out the cached frozen module on
// every later load. It is safe for concurrent use.
type Loader struct {
	roots  []string
	logger *slog.Logger

	// CollectEvery is passed to every module the loader executes.
	CollectEvery int

	mu    sync.Mutex
	cache map[string]*loadEntry
}

func NewLoader(roots []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}
	return &Loader{
		roots:  append([]string(nil), roots...),
		logger: logger,
		cache:  make(map[string]*loadEntry),
	}
}

// Roots returns the search roots in lookup order.
func (l *Loader) Roots() []string {
	return append([]string(nil), l.roots...)
}

// Resolve maps a load target to the absolute path of the file that
// provides it. The first root that has the file wins.
func (l *Loader) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty module name")
	}
	if filepath.IsAbs(name) {
		if !isFile(name) {
			return "", fmt.Errorf("cannot find module %q: %w", name, fs.ErrNotExist)
		}
		return filepath.Clean(name), nil
	}
	rel := filepath.Clean(filepath.FromSlash(name))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("module %q escapes the search roots", name)
	}
	for _, root := range l.roots {
		candidate := filepath.Join(root, rel)
		if !isFile(candidate) {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", err
		}
		return abs, nil
	}
	return "", fmt.Errorf("cannot find module %q in %s: %w", name, strings.Join(l.roots, ", "), fs.ErrNotExist)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load returns the frozen module for name, executing it on first use.
func (l *Loader) Load(name string) (*env.FrozenModule, error) {
	return l.load(name, nil)
}

// Importer returns an Importer for a top-level module that is not itself
// loaded through l.
func (l *Loader) Importer() Importer {
	return &chainImporter{loader: l}
}

// Cached reports how many modules have been loaded or are loading.
func (l *Loader) Cached() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

func (l *Loader) load(name string, chain []string) (*env.FrozenModule, error) {
	path, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	for _, p := range chain {
		if p == path {
			return nil, &CycleError{Chain: append(append([]string(nil), chain...), path)}
		}
	}

	l.mu.Lock()
	if e, ok := l.cache[path]; ok {
		l.mu.Unlock()
		<-e.done
		l.logger.Debug("module cache hit", "path", path)
		return e.module, e.err
	}
	e := &loadEntry{done: make(chan struct{})}
	l.cache[path] = e
	l.mu.Unlock()

	next := append(append([]string(nil), chain...), path)
	e.module, e.err = l.exec(path, next)
	close(e.done)
	return e.module, e.err
}

func (l *Loader) exec(path string, chain []string) (*env.FrozenModule, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", path, err)
	}
	start := time.Now()
	m := env.NewModule()
	opts := Options{
		Importer:     &chainImporter{loader: l, chain: chain},
		CollectEvery: l.CollectEvery,
	}
	if err := ExecFile(m, path, src, opts); err != nil {
		l.logger.Debug("module failed", "path", path, "error", err)
		return nil, err
	}
	fm, err := m.Freeze()
	if err != nil {
		return nil, fmt.Errorf("freeze module %s: %w", path, err)
	}
	l.logger.Debug("module loaded",
		"path", path,
		"exports", len(fm.Names()),
		"elapsed", time.Since(start))
	return fm, nil
}

type chainImporter struct {
	loader *Loader
	chain  []string
}

func (c *chainImporter) Import(module string) (*env.FrozenModule, error) {
	return c.loader.load(module, c.chain)
}
