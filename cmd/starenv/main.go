// Command starenv runs, lints and documents Starlark modules, and offers an
// interactive prompt over a module environment.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/xirelogy/go-starenv/internal/docs"
	"github.com/xirelogy/go-starenv/internal/env"
	"github.com/xirelogy/go-starenv/internal/exec"
	"github.com/xirelogy/go-starenv/internal/lint"
	"github.com/xirelogy/go-starenv/internal/profile"
	"github.com/xirelogy/go-starenv/internal/value"
)

const appName = "starenv"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
	logger := cfg.logger()

	switch cmd := os.Args[1]; cmd {
	case "run":
		os.Exit(cmdRun(cfg, logger, os.Args[2:]))
	case "lint":
		os.Exit(cmdLint(os.Args[2:]))
	case "docs":
		os.Exit(cmdDocs(cfg, logger, os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(cfg, logger, os.Args[2:]))
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`Usage:
  %s run [-profile path] <file.star>   Execute a module and describe its exports.
  %s lint <file.star>...               Report dubious patterns.
  %s docs <file.star>                  Print the module documentation as HTML.
  %s repl                              Start the interactive prompt.
`, appName, appName, appName, appName)
}

func reportError(err error) {
	var rt *exec.RuntimeError
	if errors.As(err, &rt) {
		fmt.Fprintln(os.Stderr, rt.Error())
		fmt.Fprint(os.Stderr, rt.Backtrace())
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}

// execModule executes file into a fresh module and freezes it. When prof
// is non-nil the profile is written to profilePath before the freeze.
func execModule(cfg *config, logger *slog.Logger, file string, prof *profile.FlameProfile, profilePath string) (*env.FrozenModule, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", file, err)
	}
	loader := exec.NewLoader(cfg.searchRoots(filepath.Dir(file)), logger)
	logger.Debug("executing module", "file", file, "roots", loader.Roots())
	m := env.NewModule()
	opts := exec.Options{Importer: loader.Importer(), Profile: prof}
	if err := exec.ExecFile(m, file, src, opts); err != nil {
		return nil, err
	}
	if prof != nil && profilePath != "" {
		if err := prof.WriteFile(profilePath); err != nil {
			return nil, err
		}
		logger.Debug("profile written", "path", profilePath)
	}
	fm, err := m.Freeze()
	if err != nil {
		return nil, err
	}
	logger.Debug("module frozen", "file", file, "exports", len(fm.Names()))
	return fm, nil
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(cfg *config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	profilePath := fs.String("profile", cfg.Profile, "write a flame profile to `path`")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run [-profile path] <file.star>\n", appName)
		return 2
	}

	var prof *profile.FlameProfile
	if *profilePath != "" {
		prof = profile.NewFlameProfile()
		prof.Enable()
	}
	fm, err := execModule(cfg, logger, fs.Arg(0), prof, *profilePath)
	if err != nil {
		reportError(err)
		return 1
	}
	if out := fm.Describe(); out != "" {
		fmt.Println(out)
	}
	return 0
}

// -----------------------------------------------------------------------------
// lint
// -----------------------------------------------------------------------------

func cmdLint(args []string) int {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s lint <file.star>...\n", appName)
		return 2
	}
	ret := 0
	for _, file := range args {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, file, err)
			ret = 1
			continue
		}
		lints, err := lint.ParseAndLint(file, src)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			ret = 1
			continue
		}
		for _, l := range lints {
			fmt.Println(l.String())
			if l.Serious {
				ret = 1
			}
		}
	}
	return ret
}

// -----------------------------------------------------------------------------
// docs
// -----------------------------------------------------------------------------

func cmdDocs(cfg *config, logger *slog.Logger, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s docs <file.star>\n", appName)
		return 2
	}
	file := args[0]
	fm, err := execModule(cfg, logger, file, nil, "")
	if err != nil {
		reportError(err)
		return 1
	}
	out, err := docs.RenderHTML(filepath.Base(file), fm.ModuleDocumentation())
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	fmt.Print(out)
	return 0
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

// session is the state behind the interactive prompt. Every line executes
// into the same scratch module until it is frozen.
type session struct {
	module *env.Module
	opts   exec.Options
	out    io.Writer
}

func newSession(loader *exec.Loader, out io.Writer) *session {
	return &session{
		module: env.NewModule(),
		opts:   exec.Options{Importer: loader.Importer()},
		out:    out,
	}
}

// handle runs one line of input. It reports false once the user asks to
// leave.
func (s *session) handle(line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, ":") {
		switch strings.ToLower(trimmed) {
		case ":quit":
			return false, nil
		case ":describe":
			if out := s.module.Describe(); out != "" {
				fmt.Fprintln(s.out, out)
			}
		case ":freeze":
			fm, err := s.module.Freeze()
			if err != nil {
				// The module is consumed either way.
				s.module = env.NewModule()
				return true, err
			}
			if out := fm.Describe(); out != "" {
				fmt.Fprintln(s.out, out)
			}
			s.module = env.NewModule()
			s.module.ImportPublicSymbols(fm)
		default:
			fmt.Fprintln(s.out, "unknown command. Type :describe, :freeze or :quit.")
		}
		return true, nil
	}
	if trimmed == "" {
		return true, nil
	}
	v, ok, err := exec.ExecInteractive(s.module, "<repl>", line, s.opts)
	if err != nil {
		return true, err
	}
	if ok && v.Kind != value.KindNone {
		fmt.Fprintln(s.out, value.Repr(v))
	}
	return true, nil
}

func cmdRepl(cfg *config, logger *slog.Logger, _ []string) int {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if cfg.History != "" {
		if f, err := os.Open(cfg.History); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(cfg.History); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	s := newSession(exec.NewLoader(cfg.searchRoots(cwd), logger), os.Stdout)
	for {
		line, err := ln.Prompt(cfg.Prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintln(os.Stderr, err.Error())
			}
			fmt.Println()
			return 0
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		more, err := s.handle(line)
		if err != nil {
			reportError(err)
		}
		if !more {
			return 0
		}
	}
}
