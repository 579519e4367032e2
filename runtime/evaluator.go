package runtime

import (
	"fmt"

	"github.com/arvidnorberg/gotpl/ast"
	"github.com/arvidnorberg/gotpl/value"
)

// signal is the explicit control-flow-as-return-value channel used in place
// of exception-based break/continue.
type signal int

const (
	sigNone signal = iota
	sigBreak
	sigContinue
)

// nodeResult carries a statement's control outcome and error back through
// ast.Node.Accept, letting the evaluator implement ast.Visitor instead of
// type-switching outside the visitor contract the AST package defines.
type nodeResult struct {
	sig signal
	err error
}

type evaluator struct {
	ctx *Context
}

// runNodes executes a statement list under ctx, used by Template.Execute
// and by TemplateCall to enter a (possibly different) template's body.
func runNodes(ctx *Context, nodes []ast.Node) (signal, error) {
	e := &evaluator{ctx: ctx}
	return e.execNodes(nodes)
}

func (e *evaluator) execNodes(nodes []ast.Node) (signal, error) {
	for _, n := range nodes {
		res := n.Accept(e).(nodeResult)
		if res.err != nil {
			return sigNone, res.err
		}
		if res.sig != sigNone {
			return res.sig, nil
		}
	}
	return sigNone, nil
}

// Visit implements ast.Visitor, dispatching each node kind to its execution
// rule.
func (e *evaluator) Visit(n ast.Node) interface{} {
	switch v := n.(type) {
	case *ast.Text:
		return nodeResult{err: e.ctx.emit(v.Content)}
	case *ast.PipelineAction:
		return nodeResult{err: e.execPipelineAction(v)}
	case *ast.If:
		return e.execIf(v)
	case *ast.With:
		return e.execWith(v)
	case *ast.Range:
		return e.execRange(v)
	case *ast.TemplateCall:
		return nodeResult{err: e.execTemplateCall(v)}
	case *ast.Break:
		return nodeResult{sig: sigBreak}
	case *ast.Continue:
		return nodeResult{sig: sigContinue}
	default:
		return nodeResult{err: fmt.Errorf("runtime: unhandled node type %T", n)}
	}
}

func (e *evaluator) execPipelineAction(n *ast.PipelineAction) error {
	val, err := e.evalPipeline(n.Pipeline)
	if err != nil {
		return err
	}
	if len(n.Pipeline.Decls) > 0 {
		return e.applyDecls(n.Pipeline, val)
	}
	return e.ctx.emit(val.String())
}

// applyDecls implements the tail of pipeline evaluation: the result of a
// complete pipeline is assigned to each declared name, either updating an
// existing binding (`=`) or pushing a fresh one (`:=`).
func (e *evaluator) applyDecls(p *ast.Pipeline, val Value) error {
	for _, name := range p.Decls {
		if p.IsAssign {
			if !e.ctx.setVar(name, val) {
				return fmt.Errorf("cannot assign to undeclared variable $%s", name)
			}
		} else {
			e.ctx.push(name, val)
		}
	}
	return nil
}

func (e *evaluator) execIf(n *ast.If) nodeResult {
	mark := e.ctx.mark()
	defer e.ctx.pop(mark)
	val, err := e.evalPipeline(n.Branch.Pipeline)
	if err != nil {
		return nodeResult{err: err}
	}
	body := n.Branch.ElseBody
	if val.Truthy() {
		body = n.Branch.Body
	}
	sig, err := e.execNodes(body)
	return nodeResult{sig: sig, err: err}
}

func (e *evaluator) execWith(n *ast.With) nodeResult {
	mark := e.ctx.mark()
	defer e.ctx.pop(mark)
	val, err := e.evalPipeline(n.Branch.Pipeline)
	if err != nil {
		return nodeResult{err: err}
	}
	if !val.Truthy() {
		sig, err := e.execNodes(n.Branch.ElseBody)
		return nodeResult{sig: sig, err: err}
	}
	saved := e.ctx.self
	e.ctx.self = val
	sig, err := e.execNodes(n.Branch.Body)
	e.ctx.self = saved
	return nodeResult{sig: sig, err: err}
}

func (e *evaluator) execRange(n *ast.Range) nodeResult {
	outerMark := e.ctx.mark()
	defer e.ctx.pop(outerMark)

	val, err := e.evalPipeline(n.Branch.Pipeline)
	if err != nil {
		return nodeResult{err: err}
	}
	if !val.Truthy() {
		sig, err := e.execNodes(n.Branch.ElseBody)
		return nodeResult{sig: sig, err: err}
	}
	entries, err := val.Iterate()
	if err != nil {
		return nodeResult{err: err}
	}

	decls := n.Branch.Pipeline.Decls
	savedSelf := e.ctx.self
	defer func() { e.ctx.self = savedSelf }()

	for _, entry := range entries {
		iterMark := e.ctx.mark()
		switch len(decls) {
		case 2:
			e.ctx.push(decls[0], entry.Key)
			e.ctx.push(decls[1], entry.Value)
		case 1:
			e.ctx.push(decls[0], entry.Value)
		}
		e.ctx.self = entry.Value
		sig, err := e.execNodes(n.Branch.Body)
		e.ctx.pop(iterMark)
		if err != nil {
			return nodeResult{err: err}
		}
		if sig == sigBreak {
			break
		}
		// sigContinue and sigNone both fall through to the next entry.
	}
	return nodeResult{}
}

func (e *evaluator) execTemplateCall(n *ast.TemplateCall) error {
	target, ok := e.ctx.tmpl.common.Lookup(n.Name)
	if !ok {
		return fmt.Errorf("no such template %q", n.Name)
	}
	dataVal := value.Absent()
	if n.Pipeline != nil {
		v, err := e.evalPipeline(n.Pipeline)
		if err != nil {
			return err
		}
		dataVal = v
	}
	childCtx := newContext(e.ctx.sink, dataVal, target.common.globals, target)
	_, err := runNodes(childCtx, target.root)
	return err
}

// evalPipeline evaluates commands left to right; each command receives the
// previous command's value as extraParam (the first command receives
// absent). Decl application is left to the caller: a plain PipelineAction
// assigns the final result, while a Range header reads Decls itself to bind
// per-iteration key/value pairs instead.
func (e *evaluator) evalPipeline(p *ast.Pipeline) (Value, error) {
	if p == nil || len(p.Commands) == 0 {
		return value.Absent(), nil
	}
	var cur Value
	hasExtra := false
	for _, cmd := range p.Commands {
		v, err := e.evalCommand(cmd, cur, hasExtra)
		if err != nil {
			return value.Absent(), err
		}
		cur = v
		hasExtra = true
	}
	return cur, nil
}

// evalCommand evaluates one command: and/or are special forms recognized by
// name before the first argument is evaluated as a callee candidate.
func (e *evaluator) evalCommand(cmd *ast.Command, extra Value, hasExtra bool) (Value, error) {
	if len(cmd.Args) == 0 {
		return value.Absent(), fmt.Errorf("empty command")
	}
	if name, ok := identName(cmd.Args[0]); ok && (name == "and" || name == "or") {
		return e.evalAndOr(name, cmd.Args[1:], extra, hasExtra)
	}

	arg0, err := e.evalExpr(cmd.Args[0])
	if err != nil {
		return value.Absent(), err
	}
	if arg0.IsAbsent() {
		return value.Absent(), nil
	}
	if arg0.IsCallable() {
		args := make([]Value, 0, len(cmd.Args))
		for _, a := range cmd.Args[1:] {
			v, err := e.evalExpr(a)
			if err != nil {
				return value.Absent(), err
			}
			args = append(args, v)
		}
		if hasExtra {
			args = append(args, extra)
		}
		return arg0.Invoke(args)
	}
	if len(cmd.Args) > 1 {
		return value.Absent(), fmt.Errorf("%s is not callable but was given %d extra argument(s)", cmd.Args[0].String(), len(cmd.Args)-1)
	}
	return arg0, nil
}

func identName(e ast.Expr) (string, bool) {
	id, ok := e.(*ast.Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}

// evalAndOr implements the and/or special form. The extraParam, when
// present, is scanned last — as if it were appended to args — so it can
// itself short-circuit, and otherwise becomes the last evaluated argument
// when nothing short-circuits.
func (e *evaluator) evalAndOr(op string, args []ast.Expr, extra Value, hasExtra bool) (Value, error) {
	target := op == "or"
	var last Value
	any := false
	for _, a := range args {
		v, err := e.evalExpr(a)
		if err != nil {
			return value.Absent(), err
		}
		last, any = v, true
		if v.Truthy() == target {
			return v, nil
		}
	}
	if hasExtra {
		if extra.Truthy() == target {
			return extra, nil
		}
		last, any = extra, true
	}
	if any {
		return last, nil
	}
	return value.Absent(), nil
}

func (e *evaluator) evalExpr(expr ast.Expr) (Value, error) {
	switch n := expr.(type) {
	case *ast.Dot:
		return e.ctx.self, nil
	case *ast.Root:
		return e.ctx.root, nil
	case *ast.Var:
		v, ok := e.ctx.getVar(n.Name)
		if !ok {
			return value.Absent(), fmt.Errorf("undeclared variable: $%s", n.Name)
		}
		return v, nil
	case *ast.Ident:
		if v, ok := e.ctx.lookupGlobal(n.Name); ok {
			return v, nil
		}
		return value.Absent(), nil
	case *ast.Field:
		return e.evalField(n)
	case *ast.Bool:
		return value.Bool(n.Value), nil
	case *ast.StringLit:
		return value.String(n.Value), nil
	case *ast.Char:
		return value.Char(n.Width, n.Value), nil
	case *ast.Number:
		return evalNumber(n), nil
	case *ast.Pipeline:
		return e.evalPipeline(n)
	default:
		return value.Absent(), fmt.Errorf("runtime: unhandled expression type %T", expr)
	}
}

func evalNumber(n *ast.Number) Value {
	switch n.Kind {
	case ast.NumInt:
		return value.Int(n.Width, n.I)
	case ast.NumUint:
		return value.Uint(n.Width, n.U)
	default:
		return value.Float(n.Width, n.F)
	}
}

// evalField implements field traversal: each step delegates through
// Value.Member, which already auto-invokes zero-arg methods and stops
// silently once the chain hits an absent value.
func (e *evaluator) evalField(n *ast.Field) (Value, error) {
	var base Value
	var err error
	if n.Base == nil {
		base = e.ctx.self
	} else {
		base, err = e.evalExpr(n.Base)
		if err != nil {
			return value.Absent(), err
		}
	}
	cur := base
	for _, name := range n.Names {
		cur, err = cur.Member(name)
		if err != nil {
			return value.Absent(), err
		}
	}
	return cur, nil
}
