// Package parser implements a recursive-descent parser over the lexer's
// token stream that builds a runtime.Template (and its nested
// sub-templates) directly, registering each define/block into the shared
// common table as it goes.
package parser

import (
	"github.com/arvidnorberg/gotpl/ast"
	"github.com/arvidnorberg/gotpl/lexer"
	"github.com/arvidnorberg/gotpl/runtime"
)

type frameKind int

const (
	frameIf frameKind = iota
	frameWith
	frameRange
)

// frame is one open if/with/range awaiting its `end`. popWithParent is set
// on the synthetic If frame an `else if` pushes, so that the `end` which
// closes it also closes the enclosing if.
type frame struct {
	kind          frameKind
	pos           ast.Pos
	pipeline      *ast.Pipeline
	body          []ast.Node
	elseBody      []ast.Node
	inElse        bool
	popWithParent bool
}

// blockCtx is the parse state for one template body: the root, or a
// define/block's nested body.
type blockCtx struct {
	name          string
	tmpl          *runtime.Template
	isBlock       bool
	blockPos      ast.Pos
	blockPipeline *ast.Pipeline
	top           []ast.Node
	frames        []*frame
	rangeDepth    int
}

// Parser drives one token stream through the grammar, accumulating into a
// stack of blockCtx (for nested define/block) each holding a stack of
// frame (for nested if/with/range).
type Parser struct {
	lx     *lexer.Lexer
	blocks []*blockCtx
	common *runtime.CommonTable
}

// Parse builds a Template named name from src, using leftDelim/rightDelim
// (empty strings mean the lexer's "{{"/"}}" defaults) and a fresh common
// table.
func Parse(name, src, leftDelim, rightDelim string) (*runtime.Template, error) {
	return ParseShared(name, src, leftDelim, rightDelim, runtime.NewCommonTable(nil))
}

// ParseShared parses src into a Template sharing common. The root package's
// Template.Parse calls this with a fresh CommonTable so it can inspect the
// result before deciding what to merge into the target, without ever
// registering names into the target's own table speculatively.
func ParseShared(name, src, leftDelim, rightDelim string, common *runtime.CommonTable) (*runtime.Template, error) {
	p := &Parser{
		lx:     lexer.New(name, src, leftDelim, rightDelim),
		common: common,
	}
	root := runtime.NewTemplate(name, common)
	p.blocks = []*blockCtx{{name: name, tmpl: root}}
	if err := p.run(); err != nil {
		return nil, err
	}
	root.SetRoot(p.blocks[0].top)
	return root, nil
}

func (p *Parser) cur() *blockCtx { return p.blocks[len(p.blocks)-1] }

func (p *Parser) run() error {
	for {
		it := p.lx.NextItem()
		switch it.Type {
		case lexer.ItemEOF:
			if len(p.blocks) != 1 {
				return p.errorAt(it, "unexpected EOF: unclosed define or block")
			}
			if len(p.cur().frames) != 0 {
				return p.errorAt(it, "unexpected EOF: unclosed if, with, or range")
			}
			return nil
		case lexer.ItemError:
			return p.errorAt(it, "%s", it.Val)
		case lexer.ItemText:
			p.appendNode(ast.NewText(posOf(it), it.Val))
		case lexer.ItemLeftDelim:
			if err := p.parseAction(); err != nil {
				return err
			}
		default:
			return p.errorAt(it, "unexpected token %v", it.Type)
		}
	}
}

// appendNode adds n to whatever is currently collecting statements: the
// innermost open frame's body/elseBody, or the current blockCtx's top list.
func (p *Parser) appendNode(n ast.Node) {
	b := p.cur()
	if len(b.frames) > 0 {
		fr := b.frames[len(b.frames)-1]
		if fr.inElse {
			fr.elseBody = append(fr.elseBody, n)
		} else {
			fr.body = append(fr.body, n)
		}
		return
	}
	b.top = append(b.top, n)
}

func (p *Parser) pushFrame(fr *frame) {
	p.cur().frames = append(p.cur().frames, fr)
	if fr.kind == frameRange {
		p.cur().rangeDepth++
	}
}

func (p *Parser) closeFrame() error {
	b := p.cur()
	if len(b.frames) == 0 {
		return p.errorf("end without a matching if, with, or range")
	}
	fr := b.frames[len(b.frames)-1]
	b.frames = b.frames[:len(b.frames)-1]
	if fr.kind == frameRange {
		b.rangeDepth--
	}
	branch := &ast.Branch{Pipeline: fr.pipeline, Body: fr.body, ElseBody: fr.elseBody}
	var node ast.Node
	switch fr.kind {
	case frameIf:
		node = ast.NewIf(fr.pos, branch)
	case frameWith:
		node = ast.NewWith(fr.pos, branch)
	case frameRange:
		node = ast.NewRange(fr.pos, branch)
	}
	p.appendNode(node)
	if fr.popWithParent {
		return p.closeFrame()
	}
	return nil
}

func (p *Parser) closeBlock() error {
	b := p.blocks[len(p.blocks)-1]
	p.blocks = p.blocks[:len(p.blocks)-1]
	b.tmpl.SetRoot(b.top)
	if b.isBlock {
		p.appendNode(ast.NewTemplateCall(b.blockPos, b.name, b.blockPipeline))
	}
	return nil
}

func (p *Parser) skipSpace() {
	for p.lx.PeekItem(0).Type == lexer.ItemSpace {
		p.lx.NextItem()
	}
}

func (p *Parser) closeAction() error {
	p.skipSpace()
	it := p.lx.NextItem()
	if it.Type != lexer.ItemRightDelim {
		return p.errorAt(it, "expected closing delimiter, got %v", it.Type)
	}
	return nil
}

var keywords = map[string]bool{
	"if": true, "with": true, "range": true, "else": true, "end": true,
	"break": true, "continue": true, "define": true, "block": true, "template": true,
}

func (p *Parser) peekKeyword() (string, bool) {
	it := p.lx.PeekItem(0)
	if it.Type != lexer.ItemIdentifier || !keywords[it.Val] {
		return "", false
	}
	return it.Val, true
}

// parseAction handles everything after an already-consumed ItemLeftDelim,
// up to and including the matching ItemRightDelim.
func (p *Parser) parseAction() error {
	p.skipSpace()
	kw, ok := p.peekKeyword()
	if !ok {
		return p.parsePlainAction()
	}
	p.lx.NextItem() // consume the keyword identifier
	switch kw {
	case "if":
		return p.parseIfLike(frameIf)
	case "with":
		return p.parseIfLike(frameWith)
	case "range":
		return p.parseRange()
	case "else":
		return p.parseElse()
	case "end":
		return p.parseEnd()
	case "break":
		return p.parseBreakContinue(true)
	case "continue":
		return p.parseBreakContinue(false)
	case "define":
		return p.parseDefine()
	case "block":
		return p.parseBlock()
	case "template":
		return p.parseTemplateCall()
	default:
		return p.errorf("unhandled keyword %q", kw)
	}
}

func (p *Parser) parsePlainAction() error {
	if p.lx.PeekItem(0).Type == lexer.ItemRightDelim {
		return p.errorf("empty pipeline")
	}
	pipe, err := p.parsePipeline()
	if err != nil {
		return err
	}
	if len(pipe.Decls) > 1 {
		return p.errorf("multiple declarations not allowed outside range")
	}
	if err := p.closeAction(); err != nil {
		return err
	}
	p.appendNode(ast.NewPipelineAction(pipe.Pos(), pipe))
	return nil
}

func (p *Parser) parseIfLike(kind frameKind) error {
	pos := posOf(p.lx.PeekItem(0))
	pipe, err := p.parsePipeline()
	if err != nil {
		return err
	}
	if len(pipe.Decls) > 0 {
		return p.errorf("if/with do not allow variable declarations")
	}
	if err := p.closeAction(); err != nil {
		return err
	}
	p.pushFrame(&frame{kind: kind, pos: pos, pipeline: pipe})
	return nil
}

func (p *Parser) parseRange() error {
	pos := posOf(p.lx.PeekItem(0))
	pipe, err := p.parsePipeline()
	if err != nil {
		return err
	}
	if len(pipe.Decls) > 2 {
		return p.errorf("range allows at most two declared variables")
	}
	if err := p.closeAction(); err != nil {
		return err
	}
	p.pushFrame(&frame{kind: frameRange, pos: pos, pipeline: pipe})
	return nil
}

func (p *Parser) parseElse() error {
	b := p.cur()
	if len(b.frames) == 0 {
		return p.errorf("else without a matching if, with, or range")
	}
	top := b.frames[len(b.frames)-1]
	if top.inElse {
		return p.errorf("else already used for this if, with, or range")
	}

	p.skipSpace()
	if it := p.lx.PeekItem(0); it.Type == lexer.ItemIdentifier && it.Val == "if" {
		p.lx.NextItem() // consume "if"
		pos := posOf(p.lx.PeekItem(0))
		pipe, err := p.parsePipeline()
		if err != nil {
			return err
		}
		if len(pipe.Decls) > 0 {
			return p.errorf("if does not allow variable declarations")
		}
		if err := p.closeAction(); err != nil {
			return err
		}
		top.inElse = true
		p.pushFrame(&frame{kind: frameIf, pos: pos, pipeline: pipe, popWithParent: true})
		return nil
	}

	top.inElse = true
	return p.closeAction()
}

func (p *Parser) parseEnd() error {
	if err := p.closeAction(); err != nil {
		return err
	}
	b := p.cur()
	if len(b.frames) > 0 {
		return p.closeFrame()
	}
	if len(p.blocks) == 1 {
		return p.errorf("end without a matching if, with, range, define, or block")
	}
	return p.closeBlock()
}

func (p *Parser) parseBreakContinue(isBreak bool) error {
	pos := posOf(p.lx.PeekItem(0))
	if err := p.closeAction(); err != nil {
		return err
	}
	if p.cur().rangeDepth == 0 {
		if isBreak {
			return p.errorf("break outside range")
		}
		return p.errorf("continue outside range")
	}
	if isBreak {
		p.appendNode(ast.NewBreak(pos))
	} else {
		p.appendNode(ast.NewContinue(pos))
	}
	return nil
}

func (p *Parser) parseStringArg() (string, error) {
	it := p.lx.NextItem()
	switch it.Type {
	case lexer.ItemString, lexer.ItemRawString:
		return it.Val, nil
	default:
		return "", p.errorAt(it, "expected a string literal name, got %v", it.Type)
	}
}

func (p *Parser) parseDefine() error {
	p.skipSpace()
	name, err := p.parseStringArg()
	if err != nil {
		return err
	}
	if err := p.closeAction(); err != nil {
		return err
	}
	tmpl := runtime.NewTemplate(name, p.common)
	p.blocks = append(p.blocks, &blockCtx{name: name, tmpl: tmpl})
	return nil
}

func (p *Parser) parseBlock() error {
	p.skipSpace()
	pos := posOf(p.lx.PeekItem(0))
	name, err := p.parseStringArg()
	if err != nil {
		return err
	}
	p.skipSpace()
	if p.lx.PeekItem(0).Type == lexer.ItemRightDelim {
		return p.errorf("block requires a pipeline argument")
	}
	pipe, err := p.parsePipeline()
	if err != nil {
		return err
	}
	if err := p.closeAction(); err != nil {
		return err
	}
	tmpl := runtime.NewTemplate(name, p.common)
	p.blocks = append(p.blocks, &blockCtx{name: name, tmpl: tmpl, isBlock: true, blockPipeline: pipe, blockPos: pos})
	return nil
}

func (p *Parser) parseTemplateCall() error {
	p.skipSpace()
	pos := posOf(p.lx.PeekItem(0))
	name, err := p.parseStringArg()
	if err != nil {
		return err
	}
	p.skipSpace()
	var pipe *ast.Pipeline
	if p.lx.PeekItem(0).Type != lexer.ItemRightDelim {
		pipe, err = p.parsePipeline()
		if err != nil {
			return err
		}
	}
	if err := p.closeAction(); err != nil {
		return err
	}
	p.appendNode(ast.NewTemplateCall(pos, name, pipe))
	return nil
}

func posOf(it lexer.Item) ast.Pos { return ast.Pos{Line: it.Line} }

func (p *Parser) errorf(format string, args ...interface{}) error {
	it := p.lx.PeekItem(0)
	return runtime.NewParseError(it.Line, 0, format, args...)
}

func (p *Parser) errorAt(it lexer.Item, format string, args ...interface{}) error {
	return runtime.NewParseError(it.Line, 0, format, args...)
}
