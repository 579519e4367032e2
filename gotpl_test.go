package gotpl

import (
	"os"
	"strings"
	"testing"
)

func render(t *testing.T, template string, data interface{}) string {
	t.Helper()
	tmpl, err := Parse("t", template)
	if err != nil {
		t.Fatalf("Parse(%q): %v", template, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(WriterSink(&b), data); err != nil {
		t.Fatalf("Execute(%q): %v", template, err)
	}
	return b.String()
}

func TestBasicRendering(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     interface{}
		want     string
	}{
		{"plain text", "Hello World", nil, "Hello World"},
		{"field lookup", "Hello {{.Name}}!", map[string]interface{}{"Name": "World"}, "Hello World!"},
		{"dot alone", "{{.}}", "x", "x"},
		{"nested field", "{{.User.Name}}", map[string]interface{}{"User": map[string]interface{}{"Name": "Joe"}}, "Joe"},
		{
			"if true",
			"{{if .Cond}}yes{{else}}no{{end}}",
			map[string]interface{}{"Cond": true},
			"yes",
		},
		{
			"if false",
			"{{if .Cond}}yes{{else}}no{{end}}",
			map[string]interface{}{"Cond": false},
			"no",
		},
		{
			"with rebinds dot",
			"{{with .User}}{{.Name}}{{end}}",
			map[string]interface{}{"User": map[string]interface{}{"Name": "Ann"}},
			"Ann",
		},
		{
			"with falsy uses else",
			"{{with .User}}{{.Name}}{{else}}nobody{{end}}",
			map[string]interface{}{"User": nil},
			"nobody",
		},
		{
			"range over sequence",
			"{{range .Items}}{{.}},{{end}}",
			map[string]interface{}{"Items": []interface{}{"a", "b", "c"}},
			"a,b,c,",
		},
		{
			"range with index and value",
			"{{range $i, $v := .Items}}{{$i}}={{$v}} {{end}}",
			map[string]interface{}{"Items": []interface{}{5, 10, 15}},
			"0=5 1=10 2=15 ",
		},
		{
			"range break",
			"{{range $i := .Items}}{{if eq $i 2}}{{break}}{{end}}{{$i}}{{end}}",
			map[string]interface{}{"Items": []interface{}{0, 1, 2, 3}},
			"01",
		},
		{
			"range continue",
			"{{range $i := .Items}}{{if eq $i 1}}{{continue}}{{end}}{{$i}}{{end}}",
			map[string]interface{}{"Items": []interface{}{0, 1, 2}},
			"02",
		},
		{
			"range with empty sequence uses else",
			"{{range .Items}}x{{else}}empty{{end}}",
			map[string]interface{}{"Items": []interface{}{}},
			"empty",
		},
		{
			"variable declaration and reuse",
			"{{$x := 1}}{{$x}}{{$x = 2}}{{$x}}",
			nil,
			"12",
		},
		{
			"pipeline through builtin",
			"{{1 | not}}",
			nil,
			"false",
		},
		{
			"and short circuits on first falsy",
			`{{and 0 "unused"}}`,
			nil,
			"0",
		},
		{
			"or short circuits on first truthy",
			`{{or "" "first" "second"}}`,
			nil,
			"first",
		},
		{
			"print inserts space between non-strings",
			"{{print 1 2}}",
			nil,
			"1 2",
		},
		{
			"print omits space around strings",
			`{{print "a" "b"}}`,
			nil,
			"ab",
		},
		{
			"trim markers strip surrounding whitespace",
			`  {{- "a" -}}  `,
			nil,
			"a",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := render(t, tc.template, tc.data)
			if got != tc.want {
				t.Errorf("render(%q) = %q, want %q", tc.template, got, tc.want)
			}
		})
	}
}

func TestFuncMapInvocation(t *testing.T) {
	tmpl, err := New("t").Funcs(FuncMap{
		"add": func(a, b int) int { return a + b },
	}).Parse("{{add 2 3}}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(WriterSink(&b), nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if b.String() != "5" {
		t.Errorf("got %q, want %q", b.String(), "5")
	}
}

func TestDefineAndTemplateCall(t *testing.T) {
	tmpl, err := New("t").Parse(`{{define "greet"}}Hi {{.}}!{{end}}{{template "greet" .Name}}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(WriterSink(&b), map[string]interface{}{"Name": "Sam"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if b.String() != "Hi Sam!" {
		t.Errorf("got %q, want %q", b.String(), "Hi Sam!")
	}
}

func TestParseMergeInsertsAndOverwrites(t *testing.T) {
	tmpl := New("t")
	if _, err := tmpl.Parse(`{{define "a"}}first{{end}}`); err != nil {
		t.Fatalf("first Parse: %v", err)
	}
	if _, err := tmpl.Parse(`{{define "a"}}second{{end}}{{define "b"}}new{{end}}`); err != nil {
		t.Fatalf("second Parse: %v", err)
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(WriterSink(&b), "a", nil); err != nil {
		t.Fatalf("ExecuteTemplate(a): %v", err)
	}
	if b.String() != "second" {
		t.Errorf("ExecuteTemplate(a) = %q, want %q (non-empty redefinition should overwrite)", b.String(), "second")
	}

	b.Reset()
	if err := tmpl.ExecuteTemplate(WriterSink(&b), "b", nil); err != nil {
		t.Fatalf("ExecuteTemplate(b): %v", err)
	}
	if b.String() != "new" {
		t.Errorf("ExecuteTemplate(b) = %q, want %q", b.String(), "new")
	}
}

func TestParseMergeDoesNotOverwriteWithWhitespaceOnlyBody(t *testing.T) {
	tmpl := New("t")
	if _, err := tmpl.Parse(`{{define "a"}}kept{{end}}`); err != nil {
		t.Fatalf("first Parse: %v", err)
	}
	if _, err := tmpl.Parse(`{{define "a"}}   {{end}}`); err != nil {
		t.Fatalf("second Parse: %v", err)
	}
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(WriterSink(&b), "a", nil); err != nil {
		t.Fatalf("ExecuteTemplate(a): %v", err)
	}
	if b.String() != "kept" {
		t.Errorf("ExecuteTemplate(a) = %q, want %q (whitespace-only redefinition must not overwrite)", b.String(), "kept")
	}
}

func TestInstanceParseFileMergesIntoExisting(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/extra.tmpl"
	if err := os.WriteFile(path, []byte(`{{define "a"}}second{{end}}{{define "b"}}new{{end}}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tmpl := New("t")
	if _, err := tmpl.Parse(`{{define "a"}}first{{end}}`); err != nil {
		t.Fatalf("first Parse: %v", err)
	}
	if _, err := tmpl.ParseFile(path); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(WriterSink(&b), "a", nil); err != nil {
		t.Fatalf("ExecuteTemplate(a): %v", err)
	}
	if b.String() != "second" {
		t.Errorf("ExecuteTemplate(a) = %q, want %q", b.String(), "second")
	}

	b.Reset()
	if err := tmpl.ExecuteTemplate(WriterSink(&b), "b", nil); err != nil {
		t.Fatalf("ExecuteTemplate(b): %v", err)
	}
	if b.String() != "new" {
		t.Errorf("ExecuteTemplate(b) = %q, want %q", b.String(), "new")
	}
}

func TestInstanceParseReaderMergesIntoExisting(t *testing.T) {
	tmpl := New("t")
	if _, err := tmpl.Parse(`{{define "a"}}first{{end}}`); err != nil {
		t.Fatalf("first Parse: %v", err)
	}
	if _, err := tmpl.ParseReader(strings.NewReader(`{{define "a"}}second{{end}}`)); err != nil {
		t.Fatalf("ParseReader: %v", err)
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(WriterSink(&b), "a", nil); err != nil {
		t.Fatalf("ExecuteTemplate(a): %v", err)
	}
	if b.String() != "second" {
		t.Errorf("ExecuteTemplate(a) = %q, want %q", b.String(), "second")
	}
}

func TestIsEmpty(t *testing.T) {
	empty, err := Parse("t", "   ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !empty.IsEmpty() {
		t.Errorf("expected whitespace-only template to be empty")
	}

	nonEmpty, err := Parse("t", "x")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if nonEmpty.IsEmpty() {
		t.Errorf("expected non-whitespace template to be non-empty")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig, err := New("t").Parse(`{{define "a"}}orig{{end}}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	clone := orig.Clone()
	if _, err := clone.Parse(`{{define "a"}}changed{{end}}`); err != nil {
		t.Fatalf("clone Parse: %v", err)
	}

	var b strings.Builder
	if err := orig.ExecuteTemplate(WriterSink(&b), "a", nil); err != nil {
		t.Fatalf("orig ExecuteTemplate: %v", err)
	}
	if b.String() != "orig" {
		t.Errorf("mutating the clone affected the original: got %q", b.String())
	}
}

func TestUndeclaredVariableIsExecuteError(t *testing.T) {
	tmpl, err := Parse("t", "{{$x}}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var b strings.Builder
	err = tmpl.Execute(WriterSink(&b), nil)
	if err == nil {
		t.Fatalf("expected execute error for undeclared variable")
	}
	if rerr, ok := err.(*Error); !ok || rerr.Type != ErrorTypeExecute {
		t.Fatalf("error %v is not an execute_error *Error", err)
	}
}

func TestDumpProducesNonEmptyOutput(t *testing.T) {
	tmpl, err := Parse("t", "{{.Name}}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tmpl.Dump() == "" {
		t.Errorf("expected non-empty dump output")
	}
}
