// Package docs holds documentation extracted from modules and renders it.
package docs

import (
	"bytes"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type ItemKind int

const (
	ModuleItem ItemKind = iota
	FunctionItem
)

// DocString is a docstring split into its summary line and the rest.
type DocString struct {
	Summary string
	Details string
}

// ParseDocString splits raw at the first blank line and trims common
// indentation. An empty docstring yields nil.
func ParseDocString(raw string) *DocString {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	summary := []string{}
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			break
		}
		summary = append(summary, line)
	}
	rest := dedent(lines[i:])
	return &DocString{
		Summary: strings.Join(summary, " "),
		Details: strings.TrimSpace(strings.Join(rest, "\n")),
	}
}

func dedent(lines []string) []string {
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= indent && indent > 0 {
			out[i] = l[indent:]
		} else {
			out[i] = strings.TrimSpace(l)
		}
	}
	return out
}

// Item documents a module or one of its members.
type Item struct {
	Kind   ItemKind
	Params []string
	Doc    *DocString
}

// ModuleDocs is the documentation of a module and its public members.
type ModuleDocs struct {
	Module  *Item
	Members map[string]*Item
}

// RenderHTML renders docs as an HTML fragment. Docstrings are Markdown.
// Members are listed by name.
func RenderHTML(title string, d ModuleDocs) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<h1>%s</h1>\n", html.EscapeString(title))
	if d.Module != nil && d.Module.Doc != nil {
		if err := renderDoc(md, &buf, d.Module.Doc); err != nil {
			return "", err
		}
	}
	names := make([]string, 0, len(d.Members))
	for name := range d.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		item := d.Members[name]
		header := name
		if item != nil && item.Kind == FunctionItem {
			header = fmt.Sprintf("%s(%s)", name, strings.Join(item.Params, ", "))
		}
		fmt.Fprintf(&buf, "<h2><code>%s</code></h2>\n", html.EscapeString(header))
		if item == nil || item.Doc == nil {
			continue
		}
		if err := renderDoc(md, &buf, item.Doc); err != nil {
			return "", fmt.Errorf("rendering %s: %w", name, err)
		}
	}
	return buf.String(), nil
}

func renderDoc(md goldmark.Markdown, buf *bytes.Buffer, d *DocString) error {
	src := d.Summary
	if d.Details != "" {
		src += "\n\n" + d.Details
	}
	return md.Convert([]byte(src), buf)
}
