package value

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Record is a structured value with named fields and, optionally, named
// methods — the Value-level counterpart of a Go struct, with field-by-name
// and exported-method lookup.
type Record struct {
	fieldNames []string
	fields     map[string]Value
	methods    map[string]*Callable
}

// NewRecord creates an empty Record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]Value), methods: make(map[string]*Callable)}
}

// SetField assigns a field, recording first-insertion order.
func (r *Record) SetField(name string, v Value) {
	if _, exists := r.fields[name]; !exists {
		r.fieldNames = append(r.fieldNames, name)
	}
	r.fields[name] = v
}

// SetMethod registers a bound method.
func (r *Record) SetMethod(name string, c *Callable) {
	r.methods[name] = c
}

// HasField reports whether name is a field on r.
func (r *Record) HasField(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Field looks up a field by name.
func (r *Record) Field(name string) (Value, error) {
	if v, ok := r.fields[name]; ok {
		return v, nil
	}
	return Absent(), fmt.Errorf("record has no field %q", name)
}

// Method looks up a bound method by name.
func (r *Record) Method(name string) (*Callable, bool) {
	c, ok := r.methods[name]
	return c, ok
}

// FieldCount reports the number of fields, used as a record's length.
func (r *Record) FieldCount() int { return len(r.fieldNames) }

// String renders a record's diagnostic form: sorted "{field:value
// field:value}".
func (r *Record) String() string {
	names := append([]string(nil), r.fieldNames...)
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ":" + r.fields[n].String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// recordFromStruct reflects over a Go struct value, capturing its exported
// fields and exported methods (bound to this specific value) as a Record.
func recordFromStruct(rv reflect.Value) *Record {
	rec := NewRecord()
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		tag := f.Tag.Get("tpl")
		if tag == "-" {
			continue
		}
		name := f.Name
		if tag != "" {
			name = tag
		}
		rec.SetField(name, fromReflect(rv.Field(i)))
	}

	methodSrc := rv
	if methodSrc.CanAddr() {
		methodSrc = methodSrc.Addr()
	}
	mt := methodSrc.Type()
	for i := 0; i < mt.NumMethod(); i++ {
		m := mt.Method(i)
		if m.PkgPath != "" {
			continue
		}
		bound := methodSrc.Method(i)
		c, err := FuncFromGo(bound.Interface())
		if err != nil {
			continue
		}
		rec.SetMethod(m.Name, c)
	}
	return rec
}
