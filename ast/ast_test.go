package ast

import "testing"

func TestFieldString(t *testing.T) {
	f := NewField(Pos{}, nil, []string{"a", "b"})
	if got, want := f.String(), ".a.b"; got != want {
		t.Errorf("Field.String = %q, want %q", got, want)
	}
}

func TestPipelineStringWithDecl(t *testing.T) {
	p := NewPipeline(Pos{}, false, []string{"x"}, []*Command{
		{Args: []Expr{NewDot(Pos{})}},
	})
	if got, want := p.String(), "x := ."; got != want {
		t.Errorf("Pipeline.String = %q, want %q", got, want)
	}
}

func TestDumpDoesNotPanicOnEmptyTree(t *testing.T) {
	text := NewText(Pos{}, "hello")
	out := Dump(text)
	if out == "" {
		t.Errorf("expected non-empty dump output")
	}
}

func TestPipelineIsEmpty(t *testing.T) {
	var p *Pipeline
	if !p.IsEmpty() {
		t.Errorf("nil pipeline should report empty")
	}
	p2 := NewPipeline(Pos{}, false, nil, nil)
	if !p2.IsEmpty() {
		t.Errorf("pipeline with no commands should report empty")
	}
}
