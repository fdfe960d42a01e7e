// Package placeholder replaces `{key}` references in job attribute graphs.
//
// Attribute graphs are built from a closed set of shapes: String, List,
// Tuple, Map and Scalar. Substitution visits every String reachable through
// Lists and Maps. Tuples are positional and keep their String members as
// written, which protects sentinel pairs from being rewritten.
//
//	v := placeholder.From(map[string]any{"url": "{repo}"})
//	out, err := placeholder.Substitute(v, map[string]any{"repo": "git@host:web.git"})
//
// Errors are *SubstitutionError and are meant to abort the whole run.
package placeholder
