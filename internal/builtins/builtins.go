// Package builtins links every method plugin into the registry.
package builtins

import (
	_ "github.com/xirelogy/go-starenv/internal/builtins/dict"
	_ "github.com/xirelogy/go-starenv/internal/builtins/list"
)
