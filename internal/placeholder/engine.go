package placeholder

import (
	"fmt"
	"sort"
	"strings"
)

// Substitute returns a copy of value with every `{key}` placeholder replaced
// from vars. The input is never modified.
func Substitute(value Value, vars map[string]any) (Value, error) {
	if value == nil {
		return nil, nil
	}
	return value.substitute(vars)
}

func (s String) substitute(vars map[string]any) (Value, error) {
	out, err := Format(string(s), vars)
	if err != nil {
		return nil, err
	}
	return String(out), nil
}

func (l List) substitute(vars map[string]any) (Value, error) {
	out := make(List, len(l))
	for i, item := range l {
		replaced, err := Substitute(item, vars)
		if err != nil {
			return nil, fmt.Errorf("at index %d: %w", i, err)
		}
		out[i] = replaced
	}
	return out, nil
}

func (t Tuple) substitute(vars map[string]any) (Value, error) {
	out := make(Tuple, len(t))
	for i, item := range t {
		switch item.(type) {
		case List, Map, Tuple:
			replaced, err := Substitute(item, vars)
			if err != nil {
				return nil, fmt.Errorf("at index %d: %w", i, err)
			}
			out[i] = replaced
		default:
			out[i] = item
		}
	}
	return out, nil
}

func (m Map) substitute(vars map[string]any) (Value, error) {
	out := make(Map, len(m))
	for _, key := range m.Keys() {
		replaced, err := Substitute(m[key], vars)
		if err != nil {
			return nil, fmt.Errorf("in key '%s': %w", key, err)
		}
		out[key] = replaced
	}
	return out, nil
}

func (s Scalar) substitute(map[string]any) (Value, error) {
	return s, nil
}

// Format performs one named-placeholder pass over text.
//
// `{name}` is replaced by the string form of vars[name]; `{{` and `}}` produce
// literal braces. An undefined name, an empty or unterminated placeholder, a
// stray `}` and field expressions (attribute access, indexing, conversions and
// format specs) all fail with a *SubstitutionError.
func Format(text string, vars map[string]any) (string, error) {
	if !strings.ContainsAny(text, "{}") {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return "", &SubstitutionError{Text: text, Reason: "unmatched '{' in format string"}
			}
			name := text[i+1 : i+1+end]
			if err := checkFieldName(text, name); err != nil {
				return "", err
			}
			value, ok := vars[name]
			if !ok {
				return "", &SubstitutionError{Text: text, Key: name, Reason: "undefined variable"}
			}
			b.WriteString(stringify(value))
			i += end + 2
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", &SubstitutionError{Text: text, Reason: "single '}' encountered in format string"}
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String(), nil
}

func checkFieldName(text, name string) error {
	switch {
	case name == "":
		return &SubstitutionError{Text: text, Reason: "empty placeholder"}
	case strings.ContainsRune(name, '{'):
		return &SubstitutionError{Text: text, Reason: "unexpected '{' in field name"}
	case strings.ContainsAny(name, ".[]!:"):
		return &SubstitutionError{Text: text, Key: name, Reason: "unsupported field expression"}
	}
	return nil
}

func stringify(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case Value:
		return stringify(r.Interface())
	case fmt.Stringer:
		return r.String()
	default:
		return fmt.Sprint(r)
	}
}

// Placeholders returns the sorted, de-duplicated variable names referenced by
// value. Tuple string members are skipped since they are never substituted.
// Malformed placeholders are ignored here; Format reports them.
func Placeholders(value Value) []string {
	seen := make(map[string]bool)
	collect(value, seen, false)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collect(value Value, seen map[string]bool, inTuple bool) {
	switch v := value.(type) {
	case String:
		if inTuple {
			return
		}
		for _, name := range scanNames(string(v)) {
			seen[name] = true
		}
	case List:
		for _, item := range v {
			collect(item, seen, false)
		}
	case Tuple:
		for _, item := range v {
			collect(item, seen, true)
		}
	case Map:
		for _, item := range v {
			collect(item, seen, false)
		}
	}
}

func scanNames(text string) []string {
	var names []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(text[i+1:], '}')
		if end <= 0 {
			continue
		}
		name := text[i+1 : i+1+end]
		if !strings.ContainsAny(name, "{.[]!:") {
			names = append(names, name)
		}
		i += end + 1
	}
	return names
}

// Missing returns the referenced variable names that vars does not define.
func Missing(value Value, vars map[string]any) []string {
	var missing []string
	for _, name := range Placeholders(value) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Merge merges variable maps into a new map. Later maps override earlier ones.
func Merge(maps ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, m := range maps {
		for key, value := range m {
			result[key] = value
		}
	}
	return result
}
