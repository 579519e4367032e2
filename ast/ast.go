// Package ast defines the parse tree that the parser builds and the
// evaluator walks. Nodes are passive data: evaluation logic lives in the
// evaluator, so every type here carries only structural fields plus the
// bookkeeping (Accept/GetChildren/String/Type) that lets a visitor dispatch
// without a central type switch living inside the AST itself.
package ast

import (
	"fmt"
	"strings"
)

// Pos is a source position, used for error reporting.
type Pos struct {
	Line   int
	Column int
}

// Visitor is implemented by evaluators (and the debug dumper) that want to
// walk the tree without every node knowing how to evaluate itself.
type Visitor interface {
	Visit(n Node) interface{}
}

// Node is the common interface for every AST node, expression or statement.
type Node interface {
	Pos() Pos
	Accept(v Visitor) interface{}
	GetChildren() []Node
	String() string
	Type() string
}

// base carries the fields every node needs.
type base struct {
	pos Pos
}

func (b base) Pos() Pos { return b.pos }

// Expr is any node that produces a Value when evaluated.
type Expr interface {
	Node
	isExpr()
}

// ---- Expressions -----------------------------------------------------

// Dot evaluates to the current `.`.
type Dot struct {
	base
}

func NewDot(pos Pos) *Dot                   { return &Dot{base{pos}} }
func (n *Dot) isExpr()                      {}
func (n *Dot) Accept(v Visitor) interface{} { return v.Visit(n) }
func (n *Dot) GetChildren() []Node          { return nil }
func (n *Dot) Type() string                 { return "Dot" }
func (n *Dot) String() string               { return "." }

// Root evaluates to the root data value (`$`).
type Root struct {
	base
}

func NewRoot(pos Pos) *Root                  { return &Root{base{pos}} }
func (n *Root) isExpr()                      {}
func (n *Root) Accept(v Visitor) interface{} { return v.Visit(n) }
func (n *Root) GetChildren() []Node          { return nil }
func (n *Root) Type() string                 { return "Root" }
func (n *Root) String() string               { return "$" }

// Var is a variable lookup ($name, or "" for the implicit root binding).
type Var struct {
	base
	Name string
}

func NewVar(pos Pos, name string) *Var      { return &Var{base{pos}, name} }
func (n *Var) isExpr()                      {}
func (n *Var) Accept(v Visitor) interface{} { return v.Visit(n) }
func (n *Var) GetChildren() []Node          { return nil }
func (n *Var) Type() string                 { return "Var" }
func (n *Var) String() string                { return "$" + n.Name }

// Field is a dotted member chain. Base is nil when the chain starts at `.`.
type Field struct {
	base
	Base  Expr
	Names []string
}

func NewField(pos Pos, baseExpr Expr, names []string) *Field {
	return &Field{base{pos}, baseExpr, names}
}
func (n *Field) isExpr()                      {}
func (n *Field) Accept(v Visitor) interface{} { return v.Visit(n) }
func (n *Field) GetChildren() []Node {
	if n.Base != nil {
		return []Node{n.Base}
	}
	return nil
}
func (n *Field) Type() string { return "Field" }
func (n *Field) String() string {
	if n.Base == nil {
		return "." + strings.Join(n.Names, ".")
	}
	return n.Base.String() + "." + strings.Join(n.Names, ".")
}

// Ident is a bare identifier operand: a function/global name to resolve,
// distinct from Field, which traverses members of `.` or of its Base.
type Ident struct {
	base
	Name string
}

func NewIdent(pos Pos, name string) *Ident   { return &Ident{base{pos}, name} }
func (n *Ident) isExpr()                     {}
func (n *Ident) Accept(v Visitor) interface{} { return v.Visit(n) }
func (n *Ident) GetChildren() []Node          { return nil }
func (n *Ident) Type() string                 { return "Ident" }
func (n *Ident) String() string               { return n.Name }

// Bool is a boolean literal.
type Bool struct {
	base
	Value bool
}

func NewBool(pos Pos, v bool) *Bool          { return &Bool{base{pos}, v} }
func (n *Bool) isExpr()                      {}
func (n *Bool) Accept(v Visitor) interface{} { return v.Visit(n) }
func (n *Bool) GetChildren() []Node          { return nil }
func (n *Bool) Type() string                 { return "Bool" }
func (n *Bool) String() string               { return fmt.Sprintf("%t", n.Value) }

// StringLit is a string or raw-string literal.
type StringLit struct {
	base
	Value string
}

func NewStringLit(pos Pos, v string) *StringLit   { return &StringLit{base{pos}, v} }
func (n *StringLit) isExpr()                      {}
func (n *StringLit) Accept(v Visitor) interface{} { return v.Visit(n) }
func (n *StringLit) GetChildren() []Node          { return nil }
func (n *StringLit) Type() string                 { return "String" }
func (n *StringLit) String() string               { return fmt.Sprintf("%q", n.Value) }

// NumberKind distinguishes the three numeric literal families.
type NumberKind int

const (
	NumInt NumberKind = iota
	NumUint
	NumFloat
)

// Number is a numeric literal, classified and width-narrowed at parse time.
type Number struct {
	base
	Kind  NumberKind
	Width int
	I     int64
	U     uint64
	F     float64
}

func NewIntNumber(pos Pos, width int, v int64) *Number {
	return &Number{base: base{pos}, Kind: NumInt, Width: width, I: v}
}
func NewUintNumber(pos Pos, width int, v uint64) *Number {
	return &Number{base: base{pos}, Kind: NumUint, Width: width, U: v}
}
func NewFloatNumber(pos Pos, width int, v float64) *Number {
	return &Number{base: base{pos}, Kind: NumFloat, Width: width, F: v}
}
func (n *Number) isExpr()                      {}
func (n *Number) Accept(v Visitor) interface{} { return v.Visit(n) }
func (n *Number) GetChildren() []Node          { return nil }
func (n *Number) Type() string                 { return "Number" }
func (n *Number) String() string {
	switch n.Kind {
	case NumInt:
		return fmt.Sprintf("%d", n.I)
	case NumUint:
		return fmt.Sprintf("%d", n.U)
	default:
		return fmt.Sprintf("%g", n.F)
	}
}

// Char is a character literal; Width is the code point's natural byte width
// (1/2/4).
type Char struct {
	base
	Width int
	Value rune
}

func NewChar(pos Pos, width int, r rune) *Char { return &Char{base{pos}, width, r} }
func (n *Char) isExpr()                        {}
func (n *Char) Accept(v Visitor) interface{}   { return v.Visit(n) }
func (n *Char) GetChildren() []Node            { return nil }
func (n *Char) Type() string                   { return "Char" }
func (n *Char) String() string                 { return fmt.Sprintf("%q", n.Value) }

// Command is an ordered list of expression arguments; the first is the
// callee candidate.
type Command struct {
	Args []Expr
}

func (c *Command) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

// Pipeline is a chain of commands, optionally preceded by a `:=`/`=`
// variable declaration/assignment.
type Pipeline struct {
	base
	IsAssign bool
	Decls    []string
	Commands []*Command
}

func NewPipeline(pos Pos, isAssign bool, decls []string, commands []*Command) *Pipeline {
	return &Pipeline{base{pos}, isAssign, decls, commands}
}
func (n *Pipeline) isExpr()                      {}
func (n *Pipeline) Accept(v Visitor) interface{} { return v.Visit(n) }
func (n *Pipeline) GetChildren() []Node {
	var out []Node
	for _, c := range n.Commands {
		for _, a := range c.Args {
			out = append(out, a)
		}
	}
	return out
}
func (n *Pipeline) Type() string { return "Pipeline" }
func (n *Pipeline) String() string {
	var b strings.Builder
	if len(n.Decls) > 0 {
		b.WriteString(strings.Join(n.Decls, ", "))
		if n.IsAssign {
			b.WriteString(" = ")
		} else {
			b.WriteString(" := ")
		}
	}
	parts := make([]string, len(n.Commands))
	for i, c := range n.Commands {
		parts[i] = c.String()
	}
	b.WriteString(strings.Join(parts, " | "))
	return b.String()
}

// IsEmpty reports whether the pipeline has no commands at all.
func (n *Pipeline) IsEmpty() bool { return n == nil || len(n.Commands) == 0 }
