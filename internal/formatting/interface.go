// Package formatting renders sync reports and plans for the terminal.
//
// Reports and plans can be printed as go-pretty tables for people, or as
// YAML or JSON documents for scripts.
package formatting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"jenkey/internal/reconciler"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatYAML  OutputFormat = "yaml"  // YAML output
	FormatJSON  OutputFormat = "json"  // JSON output
)

// ParseFormat parses table, yaml or json. The empty string selects
// FormatTable.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatYAML, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want table, yaml or json)", s)
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool      // Enable colored output
	Out    io.Writer // Defaults to os.Stdout
}

// Formatter writes reports and plans.
type Formatter interface {
	Report(r *reconciler.Report) error
	Plan(p *reconciler.Plan) error
}

// New returns the formatter for opts.Format.
func New(opts Options) Formatter {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	switch opts.Format {
	case FormatYAML:
		return &documentFormatter{out: opts.Out, encode: encodeYAML}
	case FormatJSON:
		return &documentFormatter{out: opts.Out, encode: encodeJSON}
	default:
		return NewTableFormatter(opts)
	}
}
