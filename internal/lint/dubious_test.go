package lint

import (
	"reflect"
	"strings"
	"testing"
)

const duplicates = `
{'no1': 1, 'no1': 2}
{42: 1, 78: 9, 'no2': 100, 42: 6, 'no2': 8}

# Variables can't change during evaluation, so repeats are always wrong.
{no3: 1, no4: 2, yes: 3, no3: 1, no3: 3, no4: 8}

# Calls may differ each time round.
{f(): 1, f(): 2}
`

func TestDuplicateKeys(t *testing.T) {
	lints, err := ParseAndLint("X", duplicates)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var keys []string
	for _, l := range lints {
		keys = append(keys, l.Key)
		if l.ShortName != "duplicate-key" || !l.Serious {
			t.Fatalf("unexpected lint %+v", l)
		}
	}
	want := []string{`"no1"`, "42", `"no2"`, "no3", "no3", "no4"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}

func TestDuplicateKeyLocations(t *testing.T) {
	lints, err := ParseAndLint("x.star", "d = {'a': 1,\n     'a': 2}\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(lints) != 1 {
		t.Fatalf("expected one lint, got %d", len(lints))
	}
	l := lints[0]
	if l.Location.Line != 1 {
		t.Fatalf("expected lint at first use, got %s", l.Location)
	}
	if !strings.Contains(l.Message, "also used at x.star:2:6") {
		t.Fatalf("unexpected message %q", l.Message)
	}
	if !strings.HasPrefix(l.String(), "x.star:1:6: duplicate-key: Duplicate dictionary key `\"a\"`") {
		t.Fatalf("unexpected rendering %q", l.String())
	}
}

func TestNestedDictsAreChecked(t *testing.T) {
	lints, err := ParseAndLint("n.star", "def f():\n    return [{1: 2, 1: 3}]\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(lints) != 1 || lints[0].Key != "1" {
		t.Fatalf("expected one lint for key 1, got %v", lints)
	}
}

func TestParseError(t *testing.T) {
	if _, err := ParseAndLint("bad.star", "{1: "); err == nil {
		t.Fatalf("expected parse error")
	}
}
