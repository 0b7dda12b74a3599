// Package lint reports patterns that are legal but almost certainly
// mistakes.
package lint

import (
	"fmt"
	"math/big"
	"strconv"

	"go.starlark.net/syntax"
)

// Lint is one finding.
type Lint struct {
	Location  syntax.Position
	ShortName string
	Serious   bool
	// Key is the offending expression as written in messages.
	Key     string
	Message string
}

func (l Lint) String() string {
	return fmt.Sprintf("%s: %s: %s", l.Location, l.ShortName, l.Message)
}

const duplicateKey = "duplicate-key"

type keyKind uint8

const (
	intKey keyKind = iota
	stringKey
	identKey
)

type dictKey struct {
	kind keyKind
	text string
}

// Dubious reports duplicate dictionary keys. Only int literals, string
// literals and identifiers count as keys; a call may give a different
// answer each time so it is never reported.
func Dubious(file *syntax.File) []Lint {
	var out []Lint
	syntax.Walk(file, func(n syntax.Node) bool {
		d, ok := n.(*syntax.DictExpr)
		if !ok {
			return true
		}
		seen := map[dictKey]syntax.Position{}
		for _, e := range d.List {
			entry, ok := e.(*syntax.DictEntry)
			if !ok {
				continue
			}
			k, display, ok := keyOf(entry.Key)
			if !ok {
				continue
			}
			pos, _ := entry.Key.Span()
			if old, dup := seen[k]; dup {
				out = append(out, Lint{
					Location:  old,
					ShortName: duplicateKey,
					Serious:   true,
					Key:       display,
					Message:   fmt.Sprintf("Duplicate dictionary key `%s`, also used at %s", display, pos),
				})
			}
			seen[k] = pos
		}
		return true
	})
	return out
}

func keyOf(e syntax.Expr) (dictKey, string, bool) {
	switch x := e.(type) {
	case *syntax.Literal:
		switch v := x.Value.(type) {
		case int64:
			s := strconv.FormatInt(v, 10)
			return dictKey{intKey, s}, s, true
		case *big.Int:
			s := v.String()
			return dictKey{intKey, s}, s, true
		case string:
			if x.Token != syntax.STRING {
				return dictKey{}, "", false
			}
			return dictKey{stringKey, v}, strconv.Quote(v), true
		}
	case *syntax.Ident:
		return dictKey{identKey, x.Name}, x.Name, true
	}
	return dictKey{}, "", false
}

// ParseAndLint parses src as a file called name and lints it.
func ParseAndLint(name string, src any) ([]Lint, error) {
	f, err := syntax.Parse(name, src, 0)
	if err != nil {
		return nil, err
	}
	return Dubious(f), nil
}
