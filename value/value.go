// Package value implements the dynamically tagged value that the template
// evaluator operates on: the template language has no static type system, so
// every datum flowing through a pipeline — literals, field lookups, call
// results, loop variables — is a Value.
package value

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant of the tagged union a Value holds.
type Kind int

const (
	KindAbsent Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindChar
	KindString
	KindSeq
	KindMap
	KindRecord
	KindCallable
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindSeq:
		return "sequence"
	case KindMap:
		return "map"
	case KindRecord:
		return "record"
	case KindCallable:
		return "callable"
	default:
		return "unknown"
	}
}

// Value is a small, copy-by-value tagged union. Collection-kind values
// (Seq, Map, Record, Callable) hold a pointer/slice to shared state, so
// copying a Value never copies the underlying collection.
type Value struct {
	kind  Kind
	width int // bit width for Int/Uint/Float (8/16/32/64); byte width for Char (1/2/4)
	b     bool
	i     int64
	u     uint64
	f     float64
	r     rune
	s     string
	seq   []Value
	m     *Map
	rec   *Record
	call  *Callable
}

// Absent returns the absent/unit value.
func Absent() Value { return Value{kind: KindAbsent} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int wraps a signed integer of the given bit width (8/16/32/64).
func Int(width int, v int64) Value { return Value{kind: KindInt, width: width, i: v} }

// Uint wraps an unsigned integer of the given bit width (8/16/32/64).
func Uint(width int, v uint64) Value { return Value{kind: KindUint, width: width, u: v} }

// Float wraps a floating point number of the given bit width (32/64).
func Float(width int, v float64) Value { return Value{kind: KindFloat, width: width, f: v} }

// Char wraps a code point whose natural encoding is `width` bytes (1/2/4).
func Char(width int, r rune) Value { return Value{kind: KindChar, width: width, r: r} }

// String wraps a UTF-8 string.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Seq wraps an ordered sequence. The slice is held by reference.
func Seq(items []Value) Value { return Value{kind: KindSeq, seq: items} }

// MapV wraps a Map.
func MapV(m *Map) Value { return Value{kind: KindMap, m: m} }

// Rec wraps a Record.
func Rec(r *Record) Value { return Value{kind: KindRecord, rec: r} }

// Fn wraps a Callable.
func Fn(c *Callable) Value { return Value{kind: KindCallable, call: c} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Width reports the bit/byte width recorded for numeric or char kinds.
func (v Value) Width() int { return v.width }

// IsAbsent reports whether v is the absent value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Truthy implements the truthiness rule: false/zero/empty/absent are
// falsy, everything else is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindAbsent:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindUint:
		return v.u != 0
	case KindFloat:
		return v.f != 0
	case KindChar:
		return v.r != 0
	case KindString:
		return v.s != ""
	case KindSeq:
		return len(v.seq) != 0
	case KindMap:
		return v.m != nil && v.m.Len() != 0
	case KindRecord, KindCallable:
		return true
	default:
		return false
	}
}

// Length implements the length operation; it errors for kinds with no
// defined length.
func (v Value) Length() (int, error) {
	switch v.kind {
	case KindString:
		return len(v.s), nil
	case KindSeq:
		return len(v.seq), nil
	case KindMap:
		return v.m.Len(), nil
	case KindRecord:
		return v.rec.FieldCount(), nil
	default:
		return 0, fmt.Errorf("value of kind %s has no length", v.kind)
	}
}

// Index implements the indexing operation: sequence by integer, map by any
// comparable key, record by string field name.
func (v Value) Index(k Value) (Value, error) {
	switch v.kind {
	case KindSeq:
		n, err := asInt(k)
		if err != nil {
			return Absent(), fmt.Errorf("sequence index: %w", err)
		}
		if n < 0 || n >= int64(len(v.seq)) {
			return Absent(), fmt.Errorf("sequence index %d out of range [0,%d)", n, len(v.seq))
		}
		return v.seq[n], nil
	case KindMap:
		val, ok, err := v.m.Get(k)
		if err != nil {
			return Absent(), err
		}
		if !ok {
			return Absent(), fmt.Errorf("map has no key %s", k.String())
		}
		return val, nil
	case KindRecord:
		if k.kind != KindString {
			return Absent(), fmt.Errorf("record index must be a string, got %s", k.kind)
		}
		return v.rec.Field(k.s)
	default:
		return Absent(), fmt.Errorf("value of kind %s is not indexable", v.kind)
	}
}

// Member implements field traversal: a zero-argument-remaining method is
// auto-invoked; otherwise the callable itself is returned. Traversal on an
// absent value silently yields absent. A Map is treated as a record keyed
// by string, matching text/template's `.Field` working against both
// structs and string-keyed maps.
func (v Value) Member(name string) (Value, error) {
	if v.kind == KindAbsent {
		return Absent(), nil
	}
	// Delegates: a zero-argument callable is invoked before applying name.
	if v.kind == KindCallable && v.call.FixedArity == 0 && !v.call.Variadic {
		invoked, err := v.call.Invoke(nil)
		if err != nil {
			return Absent(), err
		}
		return invoked.Member(name)
	}
	if v.kind == KindMap {
		val, ok, err := v.m.Get(String(name))
		if err != nil {
			return Absent(), err
		}
		if !ok {
			return Absent(), nil
		}
		return val, nil
	}
	if v.kind != KindRecord {
		return Absent(), fmt.Errorf("value of kind %s has no member %q", v.kind, name)
	}
	if v.rec.HasField(name) {
		return v.rec.Field(name)
	}
	if m, ok := v.rec.Method(name); ok {
		if m.FixedArity == 0 && !m.Variadic {
			return m.Invoke(nil)
		}
		return Fn(m), nil
	}
	return Absent(), fmt.Errorf("record has no field or method %q", name)
}

// IsCallable reports whether v can be invoked.
func (v Value) IsCallable() bool { return v.kind == KindCallable }

// Callable returns the underlying Callable, if any.
func (v Value) Callable() (*Callable, bool) {
	if v.kind != KindCallable {
		return nil, false
	}
	return v.call, true
}

// Invoke implements the calling policy.
func (v Value) Invoke(args []Value) (Value, error) {
	if v.kind != KindCallable {
		return Absent(), fmt.Errorf("value of kind %s is not callable", v.kind)
	}
	return v.call.Invoke(args)
}

// Entry is one (key, value) pair yielded while iterating.
type Entry struct {
	Key   Value
	Value Value
}

// Iterate implements the iteration contract.
func (v Value) Iterate() ([]Entry, error) {
	switch v.kind {
	case KindSeq:
		out := make([]Entry, len(v.seq))
		for i, item := range v.seq {
			out[i] = Entry{Key: Int(64, int64(i)), Value: item}
		}
		return out, nil
	case KindMap:
		return v.m.Entries(), nil
	case KindInt, KindUint:
		n, err := asInt(v)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("cannot iterate a negative integer %d", n)
		}
		out := make([]Entry, n)
		for i := int64(0); i < n; i++ {
			out[i] = Entry{Key: Int(64, i), Value: Int(64, i)}
		}
		return out, nil
	case KindString:
		var out []Entry
		byteIdx := 0
		for _, r := range v.s {
			out = append(out, Entry{Key: Int(64, int64(byteIdx)), Value: charFromRune(r)})
			byteIdx += len(string(r))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value of kind %s is not iterable", v.kind)
	}
}

// Equals implements equality. Collections (Seq/Map/Record/Callable) are not
// comparable, matching text/template's `eq`, which relies on `==` and
// rejects uncomparable types.
func (v Value) Equals(other Value) (bool, error) {
	switch {
	case v.kind == KindBool && other.kind == KindBool:
		return v.b == other.b, nil
	case v.kind == KindString && other.kind == KindString:
		return v.s == other.s, nil
	case v.kind == KindChar && other.kind == KindChar:
		return v.r == other.r, nil
	case isNumeric(v.kind) && isNumeric(other.kind):
		c, err := compareNumeric(v, other)
		if err != nil {
			return false, err
		}
		return c == 0, nil
	case v.kind == KindAbsent && other.kind == KindAbsent:
		return true, nil
	case v.kind != other.kind:
		return false, nil
	default:
		return false, fmt.Errorf("values of kind %s are not comparable for equality", v.kind)
	}
}

// Compare implements ordering: defined on same-kind numerics and on
// strings; anything else is an error.
func (v Value) Compare(other Value) (int, error) {
	switch {
	case isNumeric(v.kind) && isNumeric(other.kind):
		return compareNumeric(v, other)
	case v.kind == KindString && other.kind == KindString:
		return strings.Compare(v.s, other.s), nil
	default:
		return 0, fmt.Errorf("values of kind %s and %s are not orderable", v.kind, other.kind)
	}
}

func isNumeric(k Kind) bool { return k == KindInt || k == KindUint || k == KindFloat }

func compareNumeric(a, b Value) (int, error) {
	if a.kind == KindInt && b.kind == KindInt {
		return cmpInt64(a.i, b.i), nil
	}
	if a.kind == KindUint && b.kind == KindUint {
		return cmpUint64(a.u, b.u), nil
	}
	af, err := asFloat(a)
	if err != nil {
		return 0, err
	}
	bf, err := asFloat(b)
	if err != nil {
		return 0, err
	}
	return cmpFloat64(af, bf), nil
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func asInt(v Value) (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindUint:
		if v.u > uint64(math.MaxInt64) {
			return 0, fmt.Errorf("uint value %d overflows int64", v.u)
		}
		return int64(v.u), nil
	case KindFloat:
		return int64(v.f), nil
	default:
		return 0, fmt.Errorf("value of kind %s is not an integer", v.kind)
	}
}

func asFloat(v Value) (float64, error) {
	switch v.kind {
	case KindInt:
		return float64(v.i), nil
	case KindUint:
		return float64(v.u), nil
	case KindFloat:
		return v.f, nil
	default:
		return 0, fmt.Errorf("value of kind %s is not numeric", v.kind)
	}
}

func charFromRune(r rune) Value {
	switch {
	case r <= 0xFF:
		return Char(1, r)
	case r <= 0xFFFF:
		return Char(2, r)
	default:
		return Char(4, r)
	}
}

// String renders v per the stringification rules, used when a
// PipelineAction result is emitted to the sink.
func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		bits := v.width
		if bits != 32 && bits != 64 {
			bits = 64
		}
		return strconv.FormatFloat(v.f, 'g', -1, bits)
	case KindChar:
		return string(v.r)
	case KindString:
		return v.s
	case KindSeq:
		parts := make([]string, len(v.seq))
		for i, item := range v.seq {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindMap:
		return v.m.String()
	case KindRecord:
		return v.rec.String()
	case KindCallable:
		return fmt.Sprintf("<callable arity=%d variadic=%t>", v.call.FixedArity, v.call.Variadic)
	default:
		return ""
	}
}

// GoString supports %#v/debugging and mirrors String.
func (v Value) GoString() string { return "value.Value(" + v.String() + ")" }

// FromGo adapts an arbitrary native Go value into a Value using reflection.
// This is what lets Execute accept ordinary Go structs, maps, and slices as
// data, not just values built by hand through the constructors above.
func FromGo(x interface{}) Value {
	if x == nil {
		return Absent()
	}
	if v, ok := x.(Value); ok {
		return v
	}
	rv := reflect.ValueOf(x)
	return fromReflect(rv)
}

var valueType = reflect.TypeOf(Value{})

func fromReflect(rv reflect.Value) Value {
	if rv.IsValid() && rv.Type() == valueType {
		return rv.Interface().(Value)
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Absent()
		}
		rv = rv.Elem()
		if rv.IsValid() && rv.Type() == valueType {
			return rv.Interface().(Value)
		}
	}
	if !rv.IsValid() {
		return Absent()
	}
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(intWidth(rv.Kind()), rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(uintWidth(rv.Kind()), rv.Uint())
	case reflect.Float32:
		return Float(32, rv.Float())
	case reflect.Float64:
		return Float(64, rv.Float())
	case reflect.String:
		return String(rv.String())
	case reflect.Slice, reflect.Array:
		// []byte is treated as a sequence of 8-bit unsigned integers, not
		// as a string.
		n := rv.Len()
		items := make([]Value, n)
		for i := 0; i < n; i++ {
			items[i] = fromReflect(rv.Index(i))
		}
		return Seq(items)
	case reflect.Map:
		m := NewMap()
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			_ = m.Set(fromReflect(k), fromReflect(rv.MapIndex(k)))
		}
		return MapV(m)
	case reflect.Struct:
		return Rec(recordFromStruct(rv))
	case reflect.Func:
		c, err := FuncFromGo(rv.Interface())
		if err != nil {
			return Absent()
		}
		return Fn(c)
	default:
		return Absent()
	}
}

func intWidth(k reflect.Kind) int {
	switch k {
	case reflect.Int8:
		return 8
	case reflect.Int16:
		return 16
	case reflect.Int32:
		return 32
	default:
		return 64
	}
}

func uintWidth(k reflect.Kind) int {
	switch k {
	case reflect.Uint8:
		return 8
	case reflect.Uint16:
		return 16
	case reflect.Uint32:
		return 32
	default:
		return 64
	}
}
