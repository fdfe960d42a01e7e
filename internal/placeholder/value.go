package placeholder

import (
	"fmt"
	"sort"
)

// Value is one node of a job attribute graph. The set of implementations is
// closed: String, List, Tuple, Map and Scalar.
type Value interface {
	// Interface converts the value back into plain Go data
	// (string, []any, map[string]any or the scalar itself) for use as
	// template context.
	Interface() any

	substitute(vars map[string]any) (Value, error)
}

// String is a text value. Placeholders inside it are replaced.
type String string

// List is a mutable ordered sequence. String members are substituted and
// nested containers are visited.
type List []Value

// Tuple is a fixed positional sequence. Its String members are never
// substituted. Nested List and Map members are still visited.
type Tuple []Value

// Map is a key-value mapping. Values are substituted, keys never are.
type Map map[string]Value

// Scalar wraps any value that is not text or a container (numbers, booleans,
// nil). It is returned unchanged by substitution.
type Scalar struct {
	V any
}

func (s String) Interface() any { return string(s) }

func (l List) Interface() any {
	out := make([]any, len(l))
	for i, item := range l {
		out[i] = interfaceOf(item)
	}
	return out
}

func (t Tuple) Interface() any {
	out := make([]any, len(t))
	for i, item := range t {
		out[i] = interfaceOf(item)
	}
	return out
}

func (m Map) Interface() any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = interfaceOf(v)
	}
	return out
}

func (s Scalar) Interface() any { return s.V }

func interfaceOf(v Value) any {
	if v == nil {
		return nil
	}
	return v.Interface()
}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// From converts plain Go data into a Value. Slices become List, string-keyed
// maps become Map and anything unrecognised becomes Scalar. Values that are
// already a Value are returned as-is.
func From(data any) Value {
	switch v := data.(type) {
	case nil:
		return Scalar{}
	case Value:
		return v
	case string:
		return String(v)
	case []any:
		out := make(List, len(v))
		for i, item := range v {
			out[i] = From(item)
		}
		return out
	case []string:
		out := make(List, len(v))
		for i, item := range v {
			out[i] = String(item)
		}
		return out
	case map[string]any:
		out := make(Map, len(v))
		for k, item := range v {
			out[k] = From(item)
		}
		return out
	case map[string]string:
		out := make(Map, len(v))
		for k, item := range v {
			out[k] = String(item)
		}
		return out
	case map[any]any:
		out := make(Map, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = From(item)
		}
		return out
	default:
		return Scalar{V: v}
	}
}

// NewTuple builds a Tuple from plain Go data.
func NewTuple(items ...any) Tuple {
	out := make(Tuple, len(items))
	for i, item := range items {
		out[i] = From(item)
	}
	return out
}
