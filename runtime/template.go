package runtime

import (
	"strings"

	"github.com/arvidnorberg/gotpl/ast"
	"github.com/arvidnorberg/gotpl/value"
)

// CommonTable is the per-parse-tree table of named templates plus the
// shared global function map: a map name → Template plus the globals
// function map. Modeled as a plain append-mostly map, relying on the
// single-threaded execution discipline for safety rather than a mutex —
// the table is read-only once parsing of a tree has finished.
type CommonTable struct {
	templates map[string]*Template
	globals   map[string]Value
}

// NewCommonTable creates an empty table seeded with globals.
func NewCommonTable(globals map[string]Value) *CommonTable {
	if globals == nil {
		globals = make(map[string]Value)
	}
	return &CommonTable{templates: make(map[string]*Template), globals: globals}
}

// Register inserts or overwrites the named template: last-writer-wins. Used
// by the parser while building a single parse tree; the more careful
// insert-if-absent/overwrite-if-nonempty rule for *merging two separately
// parsed trees* is implemented by the caller that drives that merge (the
// root package's Template.Parse), using Lookup and SetRoot on names that
// already exist and NewTemplate only for names that do not.
func (c *CommonTable) Register(name string, t *Template) { c.templates[name] = t }

// Lookup finds a named template.
func (c *CommonTable) Lookup(name string) (*Template, bool) {
	t, ok := c.templates[name]
	return t, ok
}

// Names returns every registered template name, in no particular order.
func (c *CommonTable) Names() []string {
	out := make([]string, 0, len(c.templates))
	for name := range c.templates {
		out = append(out, name)
	}
	return out
}

// Global looks up a function-map entry attached to the common table.
func (c *CommonTable) Global(name string) (Value, bool) {
	v, ok := c.globals[name]
	return v, ok
}

// SetGlobal attaches a function-map entry, available to every template
// sharing this table.
func (c *CommonTable) SetGlobal(name string, v Value) { c.globals[name] = v }

// Template is a named entity: a name, an ordered root block, and a shared
// CommonTable.
type Template struct {
	name   string
	root   []ast.Node
	common *CommonTable
}

// NewTemplate creates a Template bound to common and self-registers it
// under name. The parser calls this once per define/block/top-level parse.
func NewTemplate(name string, common *CommonTable) *Template {
	t := &Template{name: name, common: common}
	common.Register(name, t)
	return t
}

// Name reports the template's registered name.
func (t *Template) Name() string { return t.name }

// Root returns the template's parsed statement list.
func (t *Template) Root() []ast.Node { return t.root }

// SetRoot installs nodes as t's body. Called once by the parser when a
// template's body finishes parsing, and again by merge logic when a later
// parse supplies a non-empty body for an existing name.
func (t *Template) SetRoot(nodes []ast.Node) { t.root = nodes }

// Common returns the shared table t belongs to.
func (t *Template) Common() *CommonTable { return t.common }

// GetSub looks up a named sub-template sharing this Template's common
// table.
func (t *Template) GetSub(name string) (*Template, bool) { return t.common.Lookup(name) }

// NodesEmpty reports whether nodes is empty: no nodes, or only
// whitespace-only Text nodes.
func NodesEmpty(nodes []ast.Node) bool {
	for _, n := range nodes {
		txt, ok := n.(*ast.Text)
		if !ok {
			return false
		}
		if strings.TrimSpace(txt.Content) != "" {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the template's body is empty.
func (t *Template) IsEmpty() bool { return NodesEmpty(t.root) }

// Clone makes a shallow copy of the AST (nodes are immutable after parse,
// so sharing node pointers is safe) plus a keyed copy of the child-template
// map, with the self-entry remapped to the clone.
func (t *Template) Clone() *Template {
	globalsCopy := make(map[string]Value, len(t.common.globals))
	for k, v := range t.common.globals {
		globalsCopy[k] = v
	}
	newCommon := NewCommonTable(globalsCopy)
	clone := &Template{name: t.name, root: t.root, common: newCommon}
	newCommon.Register(t.name, clone)
	for name, sub := range t.common.templates {
		if name == t.name {
			continue
		}
		newCommon.Register(name, &Template{name: name, root: sub.root, common: newCommon})
	}
	return clone
}

// Dump renders a debug tree of t's body.
func (t *Template) Dump() string {
	var b strings.Builder
	b.WriteString("Template(" + t.name + ")\n")
	for _, n := range t.root {
		b.WriteString(ast.Dump(n))
	}
	return b.String()
}

// Execute runs t's own root against data, writing rendered text to sink.
func (t *Template) Execute(sink Sink, data interface{}) error {
	return t.ExecuteTemplate(sink, t.name, data)
}

// ExecuteTemplate runs the named sub-template (which must share t's common
// table) against data.
func (t *Template) ExecuteTemplate(sink Sink, name string, data interface{}) error {
	target, ok := t.common.Lookup(name)
	if !ok {
		return &Error{Type: ErrorTypeExecute, Message: "no such template " + name}
	}
	dv := value.FromGo(data)
	ctx := newContext(sink, dv, t.common.globals, target)
	_, err := runNodes(ctx, target.root)
	return WrapExecuteError(err)
}
