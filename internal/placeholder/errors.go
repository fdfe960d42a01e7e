package placeholder

import "fmt"

// SubstitutionError reports a placeholder that could not be replaced, either
// because it names an undefined variable or because its syntax is malformed.
type SubstitutionError struct {
	// Text is the full string being formatted.
	Text string
	// Key is the variable name, when one could be parsed.
	Key string
	// Reason describes the failure.
	Reason string
}

func (e *SubstitutionError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s '%s' in %q", e.Reason, e.Key, e.Text)
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Text)
}
