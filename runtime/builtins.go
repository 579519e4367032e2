package runtime

import (
	"fmt"
	"strings"

	"github.com/arvidnorberg/gotpl/value"
)

// builtins is the fixed table of always-available global functions. `and`/
// `or` are not here: they are special forms recognized syntactically by the
// command evaluator, never looked up by name.
var builtins map[string]Value

func init() {
	builtins = map[string]Value{
		"not":     value.Fn(value.NewCallable(1, false, biNot)),
		"call":    value.Fn(value.NewCallable(1, true, biCall)),
		"index":   value.Fn(value.NewCallable(2, true, biIndex)),
		"len":     value.Fn(value.NewCallable(1, false, biLen)),
		"print":   value.Fn(value.NewCallable(0, true, biPrint)),
		"println": value.Fn(value.NewCallable(0, true, biPrintln)),
		"eq":      value.Fn(value.NewCallable(2, true, biEq)),
		"ne":      value.Fn(value.NewCallable(2, true, biNe)),
		"lt":      value.Fn(value.NewCallable(2, false, biLt)),
		"le":      value.Fn(value.NewCallable(2, false, biLe)),
		"gt":      value.Fn(value.NewCallable(2, false, biGt)),
		"ge":      value.Fn(value.NewCallable(2, false, biGe)),
	}
}

func lookupBuiltin(name string) (Value, bool) {
	v, ok := builtins[name]
	return v, ok
}

func biNot(args []Value) (Value, error) {
	return value.Bool(!args[0].Truthy()), nil
}

func biCall(args []Value) (Value, error) {
	callee := args[0]
	if !callee.IsCallable() {
		return value.Absent(), fmt.Errorf("call: first argument is not callable")
	}
	return callee.Invoke(args[1:])
}

func biIndex(args []Value) (Value, error) {
	cur := args[0]
	for _, k := range args[1:] {
		var err error
		cur, err = cur.Index(k)
		if err != nil {
			return value.Absent(), fmt.Errorf("index: %w", err)
		}
	}
	return cur, nil
}

func biLen(args []Value) (Value, error) {
	n, err := args[0].Length()
	if err != nil {
		return value.Absent(), fmt.Errorf("len: %w", err)
	}
	return value.Int(64, int64(n)), nil
}

// stringForms renders every arg with String, the shared formatting rule
// behind print/println.
func stringForms(args []Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.String()
	}
	return out
}

func biPrint(args []Value) (Value, error) {
	var b strings.Builder
	forms := stringForms(args)
	for i, s := range forms {
		if i > 0 && args[i-1].Kind() != value.KindString && args[i].Kind() != value.KindString {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	return value.String(b.String()), nil
}

func biPrintln(args []Value) (Value, error) {
	forms := stringForms(args)
	return value.String(strings.Join(forms, " ") + "\n"), nil
}

func biEq(args []Value) (Value, error) {
	for _, other := range args[1:] {
		eq, err := args[0].Equals(other)
		if err != nil {
			return value.Absent(), fmt.Errorf("eq: %w", err)
		}
		if eq {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func biNe(args []Value) (Value, error) {
	eq, err := biEq(args)
	if err != nil {
		return value.Absent(), err
	}
	return value.Bool(!eq.Truthy()), nil
}

func biLt(args []Value) (Value, error) {
	c, err := args[0].Compare(args[1])
	if err != nil {
		return value.Absent(), fmt.Errorf("lt: %w", err)
	}
	return value.Bool(c < 0), nil
}

func biLe(args []Value) (Value, error) {
	c, err := args[0].Compare(args[1])
	if err != nil {
		return value.Absent(), fmt.Errorf("le: %w", err)
	}
	return value.Bool(c <= 0), nil
}

func biGt(args []Value) (Value, error) {
	c, err := args[0].Compare(args[1])
	if err != nil {
		return value.Absent(), fmt.Errorf("gt: %w", err)
	}
	return value.Bool(c > 0), nil
}

func biGe(args []Value) (Value, error) {
	c, err := args[0].Compare(args[1])
	if err != nil {
		return value.Absent(), fmt.Errorf("ge: %w", err)
	}
	return value.Bool(c >= 0), nil
}
