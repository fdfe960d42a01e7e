package render

import (
	"fmt"
	"strings"
)

// TemplateNotFoundError is returned when a logical template path is not
// found in any search root.
type TemplateNotFoundError struct {
	Path       string
	SearchPath []string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template '%s' not found in following locations:\n%s",
		e.Path, strings.Join(e.SearchPath, ",\n"))
}

// UndefinedError is returned when executing a template fails, typically
// because it references a key missing from its context.
type UndefinedError struct {
	Path string
	Err  error
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("failed to render template '%s': %v", e.Path, e.Err)
}

func (e *UndefinedError) Unwrap() error { return e.Err }

// SyntaxError is returned when a template cannot be parsed.
type SyntaxError struct {
	Path string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("failed to parse template '%s': %v", e.Path, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// IncludeDepthError is returned when include calls nest deeper than
// MaxIncludeDepth, usually because templates include each other.
type IncludeDepthError struct {
	Chain []string
}

func (e *IncludeDepthError) Error() string {
	chain := e.Chain
	if len(chain) > 4 {
		chain = append([]string{chain[0], "..."}, chain[len(chain)-3:]...)
	}
	return fmt.Sprintf("include nesting exceeds %d levels: %s",
		MaxIncludeDepth, strings.Join(chain, " -> "))
}
