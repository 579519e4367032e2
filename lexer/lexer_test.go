package lexer

import "testing"

func items(l *Lexer) []Item {
	var out []Item
	for {
		it := l.NextItem()
		out = append(out, it)
		if it.Type == ItemEOF || it.Type == ItemError {
			return out
		}
	}
}

func types(l *Lexer) []ItemType {
	var out []ItemType
	for _, it := range items(l) {
		out = append(out, it.Type)
	}
	return out
}

func eqTypes(t *testing.T, got []ItemType, want ...ItemType) {
	if len(got) != len(want) {
		t.Fatalf("got %d items %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d: got %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestPlainText(t *testing.T) {
	l := New("t", "hello world", "", "")
	got := types(l)
	eqTypes(t, got, ItemText, ItemEOF)
}

func TestSimpleAction(t *testing.T) {
	l := New("t", "{{.name}}", "", "")
	got := types(l)
	eqTypes(t, got, ItemLeftDelim, ItemField, ItemRightDelim, ItemEOF)
}

func TestDotAlone(t *testing.T) {
	l := New("t", "{{.}}", "", "")
	eqTypes(t, types(l), ItemLeftDelim, ItemDot, ItemRightDelim, ItemEOF)
}

func TestFieldChain(t *testing.T) {
	l := New("t", "{{.a.b}}", "", "")
	got := items(l)
	if got[1].Type != ItemField || got[1].Val != ".a" {
		t.Fatalf("expected .a field, got %v", got[1])
	}
	if got[2].Type != ItemField || got[2].Val != ".b" {
		t.Fatalf("expected .b field, got %v", got[2])
	}
}

func TestVariable(t *testing.T) {
	l := New("t", "{{$x}}", "", "")
	got := items(l)
	l.Restore(0)
	eqTypes(t, types(l), ItemLeftDelim, ItemVariable, ItemRightDelim, ItemEOF)
	if got[1].Val != "$x" {
		t.Fatalf("got %q, want $x", got[1].Val)
	}
}

func TestPipeAndArgs(t *testing.T) {
	l := New("t", "{{ 1 | add 2 }}", "", "")
	got := types(l)
	eqTypes(t, got,
		ItemLeftDelim, ItemSpace, ItemNumber, ItemSpace, ItemPipe, ItemSpace,
		ItemIdentifier, ItemSpace, ItemNumber, ItemRightDelim, ItemEOF)
}

func TestColonEqualsAndAssign(t *testing.T) {
	l := New("t", `{{$x:= 1}}{{$x = 2}}`, "", "")
	got := types(l)
	eqTypes(t, got,
		ItemLeftDelim, ItemVariable, ItemSpace, ItemColonEquals, ItemSpace, ItemNumber, ItemRightDelim,
		ItemLeftDelim, ItemVariable, ItemSpace, ItemAssign, ItemSpace, ItemNumber, ItemRightDelim,
		ItemEOF)
}

func TestStringLiteral(t *testing.T) {
	l := New("t", `{{"a\nb"}}`, "", "")
	got := items(l)
	if got[1].Type != ItemString || got[1].Val != "a\nb" {
		t.Fatalf("got %v, want unescaped string a\\nb", got[1])
	}
}

func TestRawString(t *testing.T) {
	l := New("t", "{{`a\\nb`}}", "", "")
	got := items(l)
	if got[1].Type != ItemRawString || got[1].Val != `a\nb` {
		t.Fatalf("got %v, want literal raw text", got[1])
	}
}

func TestCharLiteral(t *testing.T) {
	l := New("t", `{{'a'}}`, "", "")
	got := items(l)
	if got[1].Type != ItemChar || got[1].Val != "a" {
		t.Fatalf("got %v, want char 'a'", got[1])
	}
}

func TestNumberVariants(t *testing.T) {
	for _, lit := range []string{"1", "-1", "+1", "0x1F", "0b101", "0o17", "1_000", "1.5", "1e10", "0x1p4"} {
		l := New("t", "{{"+lit+"}}", "", "")
		got := items(l)
		if got[1].Type != ItemNumber || got[1].Val != lit {
			t.Errorf("lit %q: got %v", lit, got[1])
		}
	}
}

func TestParenNesting(t *testing.T) {
	l := New("t", "{{(.getOther 12).i}}", "", "")
	got := types(l)
	eqTypes(t, got,
		ItemLeftDelim, ItemLeftParen, ItemField, ItemSpace, ItemNumber, ItemRightParen,
		ItemField, ItemRightDelim, ItemEOF)
}

func TestLeftTrimMarker(t *testing.T) {
	l := New("t", "XXX{{- .}}", "", "")
	got := items(l)
	if got[0].Type != ItemText || got[0].Val != "XXX" {
		t.Fatalf("expected rtrimmed text 'XXX' (no trailing space to trim here), got %v", got[0])
	}
}

func TestLeftTrimStripsPrecedingWhitespace(t *testing.T) {
	l := New("t", "XXX {{- .}}", "", "")
	got := items(l)
	if got[0].Type != ItemText || got[0].Val != "XXX" {
		t.Fatalf("expected trailing whitespace stripped, got %q", got[0].Val)
	}
}

func TestRightTrimStripsFollowingWhitespace(t *testing.T) {
	l := New("t", ` {{- "a" -}} `, "", "")
	got := items(l)
	// First text node (" ") is consumed by the left-trim of the first
	// action (nothing precedes it, so it vanishes); the pipeline yields
	// ItemString "a"; the trailing text has its leading whitespace removed.
	var text []Item
	for _, it := range got {
		if it.Type == ItemText {
			text = append(text, it)
		}
	}
	for _, it := range text {
		if it.Val != "" {
			t.Errorf("unexpected non-empty text item %v", it)
		}
	}
}

func TestCustomDelimiters(t *testing.T) {
	l := New("t", "<%.name%>", "<%", "%>")
	eqTypes(t, types(l), ItemLeftDelim, ItemField, ItemRightDelim, ItemEOF)
}

func TestUnclosedActionErrors(t *testing.T) {
	l := New("t", "{{.name", "", "")
	got := items(l)
	last := got[len(got)-1]
	if last.Type != ItemError {
		t.Fatalf("expected trailing error item, got %v", last)
	}
}

func TestSaveRestore(t *testing.T) {
	l := New("t", "{{.a}}", "", "")
	mark := l.Save()
	first := l.NextItem()
	second := l.NextItem()
	l.Restore(mark)
	replay := l.NextItem()
	if replay != first {
		t.Fatalf("restore did not replay first item: got %v, want %v", replay, first)
	}
	_ = second
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("t", "{{.a}}", "", "")
	peeked := l.PeekItem(0)
	next := l.NextItem()
	if peeked != next {
		t.Fatalf("peek/next mismatch: %v vs %v", peeked, next)
	}
}
