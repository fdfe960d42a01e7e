package formatting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"jenkey/internal/reconciler"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) *TableFormatter {
	if options.Out == nil {
		options.Out = os.Stdout
	}
	return &TableFormatter{options: options}
}

// Report prints the run summary, the unmanaged jobs and the per-operation
// call counts.
func (f *TableFormatter) Report(r *reconciler.Report) error {
	t := f.createTable()
	t.SetTitle(f.color(text.FgHiCyan, "Sync "+r.RunID))
	t.AppendRows([]table.Row{
		{"Projects", r.Projects},
		{"Jobs", r.Jobs},
		{"Remote jobs before", r.RemoteJobsBefore},
		{"Created", f.count(text.FgGreen, r.Created)},
		{"Reconfigured", f.count(text.FgBlue, r.Reconfigured)},
		{"Views created", f.count(text.FgGreen, r.ViewsCreated)},
		{"Views reconfigured", f.count(text.FgBlue, r.ViewsReconfigured)},
		{"Push duration", r.PushDuration.Round(time.Millisecond)},
	})
	t.Render()

	if len(r.Unmanaged) > 0 {
		fmt.Fprintln(f.out())
		u := f.createTable()
		u.SetTitle(f.color(text.FgYellow, fmt.Sprintf("Unmanaged jobs (%d)", len(r.Unmanaged))))
		u.AppendHeader(f.header("JOB", "STATUS", "ERROR"))
		for _, doc := range unmanagedStatus(r) {
			u.AppendRow(table.Row{doc.Name, f.status(doc.Status), doc.Error})
		}
		u.Render()
		if r.PruneDeclined {
			fmt.Fprintln(f.out(), f.color(text.FgYellow, "Deletion was not confirmed; unmanaged jobs were kept."))
		}
	}

	if len(r.Metrics.PerOperation) > 0 {
		fmt.Fprintln(f.out())
		m := f.createTable()
		m.AppendHeader(f.header("OPERATION", "CALLS", "FAILED", "LAST FAILURE"))
		for _, op := range r.Metrics.PerOperation {
			m.AppendRow(table.Row{op.Operation, op.Attempts, f.count(text.FgRed, int(op.Failures)), op.LastFailure})
		}
		m.AppendFooter(table.Row{"Total", r.Metrics.TotalAttempts, r.Metrics.TotalFailures,
			fmt.Sprintf("%.1f%% failed", r.Metrics.FailureRate*100)})
		m.Render()
	}
	return nil
}

// Plan prints one row per planned change followed by the totals.
func (f *TableFormatter) Plan(p *reconciler.Plan) error {
	if len(p.Entries) == 0 && len(p.Unmanaged) == 0 {
		fmt.Fprintln(f.out(), f.color(text.FgYellow, "Nothing to do."))
		return nil
	}

	t := f.createTable()
	t.AppendHeader(f.header("KIND", "NAME", "PROJECT", "ACTION", "MIN BUILD"))
	listed := make(map[string]bool)
	for _, e := range p.Entries {
		minBuild := ""
		if e.MinBuildNumber > 0 {
			minBuild = fmt.Sprint(e.MinBuildNumber)
		}
		if e.Action == reconciler.ActionDelete {
			listed[e.Name] = true
		}
		t.AppendRow(table.Row{e.Kind, e.Name, e.Project, f.action(e.Action), minBuild})
	}
	for _, id := range p.Unmanaged {
		if !listed[id] {
			t.AppendRow(table.Row{"job", id, "", f.status(StatusKept), ""})
		}
	}
	t.AppendFooter(table.Row{"", "", "Total",
		fmt.Sprintf("%d create, %d reconfigure, %d delete",
			p.Count(reconciler.ActionCreate), p.Count(reconciler.ActionReconfigure), p.Count(reconciler.ActionDelete)),
		""})
	t.Render()
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.out())
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) out() io.Writer {
	return f.options.Out
}

func (f *TableFormatter) header(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		row[i] = f.color(text.FgHiCyan, n)
	}
	return row
}

func (f *TableFormatter) action(a reconciler.Action) string {
	switch a {
	case reconciler.ActionCreate:
		return f.color(text.FgGreen, string(a))
	case reconciler.ActionReconfigure:
		return f.color(text.FgBlue, string(a))
	case reconciler.ActionDelete:
		return f.color(text.FgRed, string(a))
	}
	return string(a)
}

func (f *TableFormatter) status(s string) string {
	switch s {
	case StatusDeleted:
		return f.color(text.FgRed, s)
	case StatusFailed:
		return f.color(text.FgHiRed, s)
	}
	return f.color(text.FgYellow, s)
}

// count colors non-zero counts only.
func (f *TableFormatter) count(c text.Color, n int) string {
	if n == 0 {
		return "0"
	}
	return f.color(c, fmt.Sprint(n))
}

func (f *TableFormatter) color(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}
