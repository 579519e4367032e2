package value

import (
	"fmt"
	"sort"
	"strings"
)

// Map is an ordered mapping from a comparable/hashable Value to a Value.
// Keys are restricted to bool/int/uint/float/char/string kinds — sequences,
// maps, records, and callables have no stable encoding and cannot be used
// as keys. Entries are kept as ordered pairs plus a string-keyed lookup
// index that Set updates on every insertion.
type Map struct {
	keys  []Value
	vals  []Value
	index map[string]int
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

func mapKey(k Value) (string, error) {
	switch k.kind {
	case KindBool:
		if k.b {
			return "b:true", nil
		}
		return "b:false", nil
	case KindString:
		return "s:" + k.s, nil
	case KindChar:
		return fmt.Sprintf("c:%d", k.r), nil
	case KindInt:
		return fmt.Sprintf("n:%d", k.i), nil
	case KindUint:
		return fmt.Sprintf("n:%d", k.u), nil
	case KindFloat:
		// Normalized against Int/Uint so cross-kind numeric keys that are
		// mathematically equal collide under the same key.
		if k.f == float64(int64(k.f)) {
			return fmt.Sprintf("n:%d", int64(k.f)), nil
		}
		return fmt.Sprintf("f:%v", k.f), nil
	default:
		return "", fmt.Errorf("value of kind %s cannot be used as a map key", k.kind)
	}
}

// Set inserts or overwrites a key/value pair, preserving the key's original
// insertion position on overwrite.
func (m *Map) Set(k, v Value) error {
	enc, err := mapKey(k)
	if err != nil {
		return err
	}
	if i, ok := m.index[enc]; ok {
		m.vals[i] = v
		return nil
	}
	m.index[enc] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
	return nil
}

// Get looks up a key.
func (m *Map) Get(k Value) (Value, bool, error) {
	enc, err := mapKey(k)
	if err != nil {
		return Absent(), false, err
	}
	i, ok := m.index[enc]
	if !ok {
		return Absent(), false, nil
	}
	return m.vals[i], true, nil
}

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Entries returns the map's entries in a stable iteration order: keys
// sorted by their string form, which is deterministic across runs unlike
// native Go map iteration. For string keys this is the order text/template
// uses; numeric keys also sort as text, so 10 comes before 2.
func (m *Map) Entries() []Entry {
	order := make([]int, len(m.keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return m.keys[order[a]].String() < m.keys[order[b]].String()
	})
	out := make([]Entry, len(order))
	for i, idx := range order {
		out[i] = Entry{Key: m.keys[idx], Value: m.vals[idx]}
	}
	return out
}

// String renders a map's diagnostic form: sorted "map[k:v k:v]", matching
// fmt's own map formatting style.
func (m *Map) String() string {
	entries := m.Entries()
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Key.String() + ":" + e.Value.String()
	}
	return "map[" + strings.Join(parts, " ") + "]"
}
