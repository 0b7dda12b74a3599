package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile  = ".starenv.yaml"
	defaultHistoryFile = ".starenv_history"
	defaultPrompt      = ">>> "
)

// config is the content of the YAML config file after environment
// overrides are applied.
type config struct {
	Paths   []string `yaml:"paths"`
	History string   `yaml:"history"`
	Prompt  string   `yaml:"prompt"`
	Profile string   `yaml:"profile"`
	Debug   bool     `yaml:"debug"`
}

// loadConfig reads the file named by STARENV_CONFIG. A missing file yields
// the defaults.
func loadConfig() (*config, error) {
	cfg, err := readConfig(env.Str("STARENV_CONFIG", defaultConfigFile))
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func readConfig(path string) (*config, error) {
	cfg := &config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg.defaults()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, nil
}

func (c *config) defaults() {
	if c.Prompt == "" {
		c.Prompt = defaultPrompt
	}
	if c.History == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.History = filepath.Join(home, defaultHistoryFile)
		}
	}
}

func (c *config) applyEnv() {
	if extra := env.Str("STARENV_PATH"); extra != "" {
		c.Paths = append(c.Paths, filepath.SplitList(extra)...)
	}
	if env.Bool("STARENV_DEBUG") {
		c.Debug = true
	}
}

// searchRoots lists the load roots for a script living in dir. The
// script's own directory is searched last.
func (c *config) searchRoots(dir string) []string {
	roots := append([]string(nil), c.Paths...)
	return append(roots, dir)
}

func (c *config) logger() *slog.Logger {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
