package runtime

import "github.com/arvidnorberg/gotpl/value"

// Value is the runtime package's name for the core dynamic value type; kept
// as a plain alias so evaluator code reads as "Value" without every file
// importing the value package under a prefix.
type Value = value.Value

// FuncMap is a caller-supplied function map, converted to Values via
// value.FuncFromGo when registered with an Environment.
type FuncMap map[string]interface{}

// NewCallableFromGo wraps an arbitrary Go function as a callable Value.
func NewCallableFromGo(fn interface{}) (Value, error) {
	c, err := value.FuncFromGo(fn)
	if err != nil {
		return value.Absent(), err
	}
	return value.Fn(c), nil
}
