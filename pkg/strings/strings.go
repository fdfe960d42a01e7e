package strings

import (
	"strings"
)

// DefaultSnippetLen bounds response bodies quoted in error messages.
const DefaultSnippetLen = 200

// MinTruncateLen is the minimum maxLen value for Snippet.
// Values smaller than this would not leave room for content plus "...".
const MinTruncateLen = 4

// Snippet collapses s onto a single line and truncates it to maxLen runes,
// adding "..." when something was cut.
//
// maxLen is clamped to MinTruncateLen.
func Snippet(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// Indent prefixes every line of s, including empty ones, with prefix.
func Indent(s, prefix string) string {
	if s == "" {
		return prefix
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// Bullets renders items one per line under the given indentation.
func Bullets(items []string, prefix string) string {
	return Indent(strings.Join(items, "\n"), prefix)
}
