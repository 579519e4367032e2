// Package gotpl implements a text-template engine compatible with Go's
// text/template action language: delimiter-bounded actions, pipe-chained
// pipelines, and variable declarations, evaluated against user-supplied
// data and a function map. It re-exports the runtime package's types as
// the module's public surface.
package gotpl

import (
	"io"
	"os"
	"path/filepath"

	"github.com/arvidnorberg/gotpl/parser"
	"github.com/arvidnorberg/gotpl/runtime"
)

// Sink receives emitted text fragments during Execute.
type Sink = runtime.Sink

// FuncMap is a caller-supplied function map.
type FuncMap = runtime.FuncMap

// Error is returned by Parse/Execute for both parse and execute failures.
type Error = runtime.Error

// ErrorType distinguishes parse errors from execute errors.
type ErrorType = runtime.ErrorType

const (
	ErrorTypeParse   = runtime.ErrorTypeParse
	ErrorTypeExecute = runtime.ErrorTypeExecute
)

// Template is a named, parsed template plus the table of sub-templates
// (from nested define/block) it shares with them.
type Template struct {
	rt  *runtime.Template
	env *runtime.Environment
}

// New creates an empty, unparsed Template named name with a fresh
// Environment using the default "{{"/"}}" delimiters.
func New(name string) *Template {
	env := runtime.NewEnvironment()
	common := runtime.NewCommonTable(env.Globals())
	return &Template{rt: runtime.NewTemplate(name, common), env: env}
}

// Name reports t's name.
func (t *Template) Name() string { return t.rt.Name() }

// Funcs attaches fm's entries to t's Environment and to t's own common
// table, available to every template sharing it from this point on. The
// common table's globals started as a snapshot of the Environment's at New
// time, so a Funcs call after that point must re-sync it explicitly.
func (t *Template) Funcs(fm FuncMap) *Template {
	t.env.SetGlobals(fm)
	for name, v := range t.env.Globals() {
		t.rt.Common().SetGlobal(name, v)
	}
	return t
}

// Delims overrides the delimiter pair subsequent Parse calls use.
func (t *Template) Delims(left, right string) *Template {
	t.env.SetDelims(left, right)
	return t
}

// Parse parses src and merges the result into t: a fresh parse shares t's
// globals but builds its own common table; each named sub-template it
// produces is inserted into t's table if absent, or overwrites the
// existing entry's body if the new one is non-empty.
func (t *Template) Parse(src string) (*Template, error) {
	left, right := t.env.Delims()
	fresh, err := parser.ParseShared(t.rt.Name(), src, left, right, runtime.NewCommonTable(t.env.Globals()))
	if err != nil {
		return nil, err
	}
	mergeCommonInto(t.rt.Common(), fresh.Common())
	return t, nil
}

// ParseFile reads path and merges the result into t, the same way Parse
// merges a string.
func (t *Template) ParseFile(path string) (*Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return t.Parse(string(b))
}

// ParseReader reads src to completion and merges the result into t, the
// same way Parse merges a string.
func (t *Template) ParseReader(src io.Reader) (*Template, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return t.Parse(string(b))
}

// mergeCommonInto implements the insert-if-absent/overwrite-if-nonempty
// merge rule for every name fresh produced, including name's own entry.
func mergeCommonInto(target, fresh *runtime.CommonTable) {
	for _, name := range fresh.Names() {
		sub, _ := fresh.Lookup(name)
		if existing, ok := target.Lookup(name); ok {
			if !runtime.NodesEmpty(sub.Root()) {
				existing.SetRoot(sub.Root())
			}
			continue
		}
		runtime.NewTemplate(name, target).SetRoot(sub.Root())
	}
}

// Execute runs t's own body against data, writing rendered output to sink.
func (t *Template) Execute(sink Sink, data interface{}) error {
	return t.rt.Execute(sink, data)
}

// ExecuteTemplate runs the named sub-template (shared with t) against data.
func (t *Template) ExecuteTemplate(sink Sink, name string, data interface{}) error {
	return t.rt.ExecuteTemplate(sink, name, data)
}

// GetSub looks up a named sub-template sharing t's common table.
func (t *Template) GetSub(name string) (*Template, bool) {
	sub, ok := t.rt.GetSub(name)
	if !ok {
		return nil, false
	}
	return &Template{rt: sub, env: t.env}, true
}

// Clone makes a deep-enough copy of t and its sub-templates that further
// Parse calls on the clone do not affect t.
func (t *Template) Clone() *Template {
	return &Template{rt: t.rt.Clone(), env: t.env}
}

// IsEmpty reports whether t's body has no nodes, or only whitespace-only
// text nodes.
func (t *Template) IsEmpty() bool { return t.rt.IsEmpty() }

// Dump renders t's body as an indented debug tree.
func (t *Template) Dump() string { return t.rt.Dump() }

// WriterSink adapts an io.Writer into a Sink, for callers who would rather
// hand Execute a Writer than implement the sink callable directly.
func WriterSink(w io.Writer) Sink {
	return func(b []byte) error {
		_, err := w.Write(b)
		return err
	}
}

// Parse builds a new Template named name from src.
func Parse(name, src string) (*Template, error) {
	return New(name).Parse(src)
}

// ParseFile builds a new Template named after path's base name, reading
// its contents from path.
func ParseFile(path string) (*Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(filepath.Base(path), string(b))
}

// ParseReader builds a new Template named name, reading src to completion.
func ParseReader(name string, src io.Reader) (*Template, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return Parse(name, string(b))
}
