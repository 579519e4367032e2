package value

import (
	"fmt"
	"reflect"
)

// Callable is a Value-level function: either a native fixed-arity/variadic
// closure built with NewCallable, or a reflect-wrapped Go function created
// by FuncFromGo. A single explicit type rather than leaving calls as ad hoc
// reflect.Call sites.
type Callable struct {
	FixedArity int
	Variadic   bool
	fn         func([]Value) (Value, error)
}

// NewCallable builds a Callable from a native Go closure over Values.
func NewCallable(fixedArity int, variadic bool, fn func([]Value) (Value, error)) *Callable {
	return &Callable{FixedArity: fixedArity, Variadic: variadic, fn: fn}
}

// Invoke implements the calling policy: an exact arity match (fixed or
// variadic-with-enough-args) invokes directly; anything else is an arity
// mismatch. A fixed arity is matched exactly, or a variadic minimum is
// satisfied — e.g. a two-argument callable like `add i j`.
func (c *Callable) Invoke(args []Value) (Value, error) {
	if c.Variadic {
		if len(args) < c.FixedArity {
			return Absent(), fmt.Errorf("arity mismatch: callable requires at least %d args, got %d", c.FixedArity, len(args))
		}
	} else if len(args) != c.FixedArity {
		return Absent(), fmt.Errorf("arity mismatch: callable requires %d args, got %d", c.FixedArity, len(args))
	}
	return c.fn(args)
}

// FuncFromGo wraps an arbitrary Go function value as a Callable using
// reflection, converting Values to the function's declared parameter types
// and its return value(s) back to a Value. Functions may optionally return
// (T, error); a non-nil error aborts the call.
func FuncFromGo(fn interface{}) (*Callable, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("FuncFromGo: %T is not a function", fn)
	}
	t := rv.Type()
	numIn := t.NumIn()
	variadic := t.IsVariadic()
	fixed := numIn
	if variadic {
		fixed = numIn - 1
	}

	call := func(args []Value) (Value, error) {
		in := make([]reflect.Value, 0, len(args))
		for i, a := range args {
			var paramType reflect.Type
			switch {
			case variadic && i >= fixed:
				paramType = t.In(numIn - 1).Elem()
			case i < numIn:
				paramType = t.In(i)
			default:
				paramType = nil
			}
			gv, err := toGoValue(a, paramType)
			if err != nil {
				return Absent(), fmt.Errorf("argument %d: %w", i, err)
			}
			in = append(in, gv)
		}
		var out []reflect.Value
		if variadic {
			out = rv.CallSlice(packVariadic(in, fixed, t.In(numIn-1)))
		} else {
			out = rv.Call(in)
		}
		return resultsToValue(out)
	}

	return &Callable{FixedArity: fixed, Variadic: variadic, fn: call}, nil
}

// packVariadic reassembles a flat reflect.Value slice into the
// (fixedArgs..., variadicSlice) shape CallSlice expects.
func packVariadic(in []reflect.Value, fixed int, sliceType reflect.Type) []reflect.Value {
	if len(in) < fixed {
		fixed = len(in)
	}
	out := make([]reflect.Value, 0, fixed+1)
	out = append(out, in[:fixed]...)
	rest := reflect.MakeSlice(sliceType, len(in)-fixed, len(in)-fixed)
	for i, v := range in[fixed:] {
		rest.Index(i).Set(v)
	}
	out = append(out, rest)
	return out
}

func resultsToValue(out []reflect.Value) (Value, error) {
	switch len(out) {
	case 0:
		return Absent(), nil
	case 1:
		if isErrorType(out[0].Type()) {
			if out[0].IsNil() {
				return Absent(), nil
			}
			return Absent(), out[0].Interface().(error)
		}
		return fromReflect(out[0]), nil
	default:
		last := out[len(out)-1]
		if isErrorType(last.Type()) && !last.IsNil() {
			return Absent(), last.Interface().(error)
		}
		return fromReflect(out[0]), nil
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func isErrorType(t reflect.Type) bool { return t.Implements(errorType) }

// toGoValue converts a Value into a reflect.Value assignable to paramType.
// When paramType is nil (an argument beyond the function's declared
// parameters with no variadic slot) the argument is rejected.
func toGoValue(v Value, paramType reflect.Type) (reflect.Value, error) {
	if paramType == nil {
		return reflect.Value{}, fmt.Errorf("too many arguments")
	}
	if paramType == reflect.TypeOf(Value{}) {
		return reflect.ValueOf(v), nil
	}
	if paramType.Kind() == reflect.Interface {
		return reflect.ValueOf(toInterface(v)).Convert(paramType), nil
	}
	switch paramType.Kind() {
	case reflect.Bool:
		return reflect.ValueOf(v.Truthy()).Convert(paramType), nil
	case reflect.String:
		return reflect.ValueOf(v.String()).Convert(paramType), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := asInt(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(paramType), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := asInt(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(uint64(n)).Convert(paramType), nil
	case reflect.Float32, reflect.Float64:
		f, err := asFloat(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(paramType), nil
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Ptr:
		return reflect.ValueOf(toInterface(v)), nil
	default:
		return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.kind, paramType)
	}
}

// toInterface unwraps a Value back into a plain Go interface{}, the inverse
// of FromGo for the common scalar kinds; collections are handed back as
// []interface{} / map[string]interface{} for compatibility with ordinary Go
// functions that were not written against this package's Value type.
func toInterface(v Value) interface{} {
	switch v.kind {
	case KindAbsent:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindChar:
		return v.r
	case KindString:
		return v.s
	case KindSeq:
		out := make([]interface{}, len(v.seq))
		for i, e := range v.seq {
			out[i] = toInterface(e)
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, v.m.Len())
		for _, e := range v.m.Entries() {
			out[e.Key.String()] = toInterface(e.Value)
		}
		return out
	case KindRecord:
		out := make(map[string]interface{})
		for _, n := range v.rec.fieldNames {
			fv, _ := v.rec.Field(n)
			out[n] = toInterface(fv)
		}
		return out
	default:
		return v
	}
}
