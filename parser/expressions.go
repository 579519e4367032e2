package parser

import (
	"strconv"
	"strings"

	"github.com/arvidnorberg/gotpl/ast"
	"github.com/arvidnorberg/gotpl/lexer"
	"github.com/arvidnorberg/gotpl/runtime"
)

// parsePipeline implements `pipeline := decl? command ('|' command)*`.
func (p *Parser) parsePipeline() (*ast.Pipeline, error) {
	pos := posOf(p.lx.PeekItem(0))
	decls, isAssign, err := p.tryParseDecl()
	if err != nil {
		return nil, err
	}

	var commands []*ast.Command
	for {
		p.skipSpace()
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
		p.skipSpace()
		if p.lx.PeekItem(0).Type != lexer.ItemPipe {
			break
		}
		p.lx.NextItem()
	}
	return ast.NewPipeline(pos, isAssign, decls, commands), nil
}

// tryParseDecl recognizes `$name (',' $name)? (':=' | '=')`, backtracking to
// leave the stream untouched when what follows turns out to be an ordinary
// variable operand rather than a declaration.
func (p *Parser) tryParseDecl() ([]string, bool, error) {
	mark := p.lx.Save()
	p.skipSpace()

	first := p.lx.PeekItem(0)
	if first.Type != lexer.ItemVariable || first.Val == "$" {
		p.lx.Restore(mark)
		return nil, false, nil
	}
	p.lx.NextItem()
	names := []string{first.Val[1:]}

	p.skipSpace()
	if p.lx.PeekItem(0).Type == lexer.ItemComma {
		p.lx.NextItem()
		p.skipSpace()
		second := p.lx.PeekItem(0)
		if second.Type != lexer.ItemVariable || second.Val == "$" {
			p.lx.Restore(mark)
			return nil, false, nil
		}
		p.lx.NextItem()
		names = append(names, second.Val[1:])
		p.skipSpace()
	}

	switch p.lx.PeekItem(0).Type {
	case lexer.ItemColonEquals:
		p.lx.NextItem()
		return names, false, nil
	case lexer.ItemAssign:
		p.lx.NextItem()
		return names, true, nil
	default:
		p.lx.Restore(mark)
		return nil, false, nil
	}
}

// parseCommand implements `command := operand (WS+ operand)*`.
func (p *Parser) parseCommand() (*ast.Command, error) {
	first, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	args := []ast.Expr{first}

	for p.lx.PeekItem(0).Type == lexer.ItemSpace {
		mark := p.lx.Save()
		p.lx.NextItem()
		if !p.isOperandStart(p.lx.PeekItem(0)) {
			p.lx.Restore(mark)
			break
		}
		operand, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		args = append(args, operand)
	}
	return &ast.Command{Args: args}, nil
}

func (p *Parser) isOperandStart(it lexer.Item) bool {
	switch it.Type {
	case lexer.ItemDot, lexer.ItemField, lexer.ItemVariable, lexer.ItemLeftParen,
		lexer.ItemString, lexer.ItemRawString, lexer.ItemChar, lexer.ItemNumber, lexer.ItemIdentifier:
		return true
	default:
		return false
	}
}

// parseOperand implements `operand := term ('.' IDENT)*`. Field lookups
// chain directly off ItemField tokens that follow the term with no
// intervening ItemSpace; whitespace before a dot ends the operand.
func (p *Parser) parseOperand() (ast.Expr, error) {
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.lx.PeekItem(0).Type == lexer.ItemField {
		it := p.lx.NextItem()
		term = ast.NewField(term.Pos(), term, []string{it.Val[1:]})
	}
	return term, nil
}

// parseTerm implements
// `term := Dot | Var | Root | '(' pipeline ')' | string | rawstring | char | number | IDENT`.
func (p *Parser) parseTerm() (ast.Expr, error) {
	it := p.lx.NextItem()
	pos := posOf(it)
	switch it.Type {
	case lexer.ItemDot:
		return ast.NewDot(pos), nil
	case lexer.ItemField:
		return ast.NewField(pos, nil, []string{it.Val[1:]}), nil
	case lexer.ItemVariable:
		if it.Val == "$" {
			return ast.NewRoot(pos), nil
		}
		return ast.NewVar(pos, it.Val[1:]), nil
	case lexer.ItemLeftParen:
		p.skipSpace()
		pipe, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		if pipe.IsEmpty() {
			return nil, p.errorf("empty pipeline inside parentheses")
		}
		if len(pipe.Decls) > 1 {
			return nil, p.errorf("multiple declarations not allowed outside range")
		}
		p.skipSpace()
		closeIt := p.lx.NextItem()
		if closeIt.Type != lexer.ItemRightParen {
			return nil, p.errorAt(closeIt, "expected ')', got %v", closeIt.Type)
		}
		return pipe, nil
	case lexer.ItemString:
		return ast.NewStringLit(pos, it.Val), nil
	case lexer.ItemRawString:
		return ast.NewStringLit(pos, it.Val), nil
	case lexer.ItemChar:
		r := []rune(it.Val)[0]
		return ast.NewChar(pos, charByteWidth(r), r), nil
	case lexer.ItemNumber:
		return classifyNumber(pos, it.Val)
	case lexer.ItemIdentifier:
		switch it.Val {
		case "true":
			return ast.NewBool(pos, true), nil
		case "false":
			return ast.NewBool(pos, false), nil
		default:
			return ast.NewIdent(pos, it.Val), nil
		}
	default:
		return nil, p.errorAt(it, "unrecognized token %v in operand", it.Type)
	}
}

func charByteWidth(r rune) int {
	switch {
	case r <= 0xFF:
		return 1
	case r <= 0xFFFF:
		return 2
	default:
		return 4
	}
}

// classifyNumber implements number classification: hex literals are
// detected by their "0x"/"0X" prefix (after stripping a leading sign); the
// literal is a float if it contains '.', a hex exponent 'p'/'P', or (for
// non-hex literals) a decimal exponent 'e'/'E'; otherwise it is an integer.
// Delegates the actual digit parsing to strconv.ParseInt/ParseUint with
// base 0, which natively understands 0x/0o/0b prefixes.
func classifyNumber(pos ast.Pos, lit string) (ast.Expr, error) {
	clean := strings.ReplaceAll(lit, "_", "")
	signStripped := clean
	negative := false
	if strings.HasPrefix(signStripped, "+") {
		signStripped = signStripped[1:]
	} else if strings.HasPrefix(signStripped, "-") {
		negative = true
		signStripped = signStripped[1:]
	}
	isHex := strings.HasPrefix(signStripped, "0x") || strings.HasPrefix(signStripped, "0X")

	isFloat := strings.Contains(clean, ".")
	if isHex {
		isFloat = isFloat || strings.ContainsAny(clean, "pP")
	} else {
		isFloat = isFloat || strings.ContainsAny(clean, "eE")
	}

	if isFloat {
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return nil, runtime.NewParseError(pos.Line, 0, "invalid number literal %q: %v", lit, err)
		}
		width := 64
		if float64(float32(f)) == f {
			width = 32
		}
		return ast.NewFloatNumber(pos, width, f), nil
	}

	if negative {
		i, err := strconv.ParseInt(clean, 0, 64)
		if err != nil {
			return nil, runtime.NewParseError(pos.Line, 0, "invalid number literal %q: %v", lit, err)
		}
		return ast.NewIntNumber(pos, intFitWidth(i), i), nil
	}

	u, err := strconv.ParseUint(signStripped, 0, 64)
	if err != nil {
		return nil, runtime.NewParseError(pos.Line, 0, "invalid number literal %q: %v", lit, err)
	}
	if u <= uint64(1<<63-1) {
		return ast.NewIntNumber(pos, intFitWidth(int64(u)), int64(u)), nil
	}
	return ast.NewUintNumber(pos, uintFitWidth(u), u), nil
}

func intFitWidth(v int64) int {
	switch {
	case v >= -1<<7 && v < 1<<7:
		return 8
	case v >= -1<<15 && v < 1<<15:
		return 16
	case v >= -1<<31 && v < 1<<31:
		return 32
	default:
		return 64
	}
}

func uintFitWidth(v uint64) int {
	switch {
	case v < 1<<8:
		return 8
	case v < 1<<16:
		return 16
	case v < 1<<32:
		return 32
	default:
		return 64
	}
}
