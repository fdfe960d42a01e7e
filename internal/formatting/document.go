package formatting

import (
	"encoding/json"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"jenkey/internal/reconciler"
)

// reportDocument is the serialized form of a reconciler.Report.
type reportDocument struct {
	RunID             string                    `yaml:"runId" json:"runId"`
	Projects          int                       `yaml:"projects" json:"projects"`
	Jobs              int                       `yaml:"jobs" json:"jobs"`
	RemoteJobsBefore  int                       `yaml:"remoteJobsBefore" json:"remoteJobsBefore"`
	Created           int                       `yaml:"created" json:"created"`
	Reconfigured      int                       `yaml:"reconfigured" json:"reconfigured"`
	ViewsCreated      int                       `yaml:"viewsCreated" json:"viewsCreated"`
	ViewsReconfigured int                       `yaml:"viewsReconfigured" json:"viewsReconfigured"`
	Unmanaged         []unmanagedDocument       `yaml:"unmanaged" json:"unmanaged"`
	PruneDeclined     bool                      `yaml:"pruneDeclined" json:"pruneDeclined"`
	PushDuration      string                    `yaml:"pushDuration" json:"pushDuration"`
	Metrics           reconciler.MetricsSummary `yaml:"metrics" json:"metrics"`
}

type unmanagedDocument struct {
	Name   string `yaml:"name" json:"name"`
	Status string `yaml:"status" json:"status"`
	Error  string `yaml:"error,omitempty" json:"error,omitempty"`
}

type planDocument struct {
	Entries   []reconciler.PlanEntry `yaml:"entries" json:"entries"`
	Unmanaged []string               `yaml:"unmanaged" json:"unmanaged"`
	Summary   map[string]int         `yaml:"summary" json:"summary"`
}

// Unmanaged job statuses.
const (
	StatusDeleted = "deleted"
	StatusFailed  = "failed"
	StatusKept    = "kept"
)

// unmanagedStatus pairs every unmanaged job with what happened to it.
func unmanagedStatus(r *reconciler.Report) []unmanagedDocument {
	deleted := make(map[string]bool, len(r.Deleted))
	for _, id := range r.Deleted {
		deleted[id] = true
	}
	out := make([]unmanagedDocument, 0, len(r.Unmanaged))
	for _, id := range r.Unmanaged {
		doc := unmanagedDocument{Name: id, Status: StatusKept}
		switch err, failed := r.DeleteFailures[id]; {
		case failed:
			doc.Status = StatusFailed
			doc.Error = err.Error()
		case deleted[id]:
			doc.Status = StatusDeleted
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func newReportDocument(r *reconciler.Report) reportDocument {
	return reportDocument{
		RunID:             r.RunID,
		Projects:          r.Projects,
		Jobs:              r.Jobs,
		RemoteJobsBefore:  r.RemoteJobsBefore,
		Created:           r.Created,
		Reconfigured:      r.Reconfigured,
		ViewsCreated:      r.ViewsCreated,
		ViewsReconfigured: r.ViewsReconfigured,
		Unmanaged:         unmanagedStatus(r),
		PruneDeclined:     r.PruneDeclined,
		PushDuration:      r.PushDuration.String(),
		Metrics:           r.Metrics,
	}
}

func newPlanDocument(p *reconciler.Plan) planDocument {
	entries := p.Entries
	if entries == nil {
		entries = []reconciler.PlanEntry{}
	}
	unmanaged := p.Unmanaged
	if unmanaged == nil {
		unmanaged = []string{}
	}
	return planDocument{
		Entries:   entries,
		Unmanaged: unmanaged,
		Summary: map[string]int{
			string(reconciler.ActionCreate):      p.Count(reconciler.ActionCreate),
			string(reconciler.ActionReconfigure): p.Count(reconciler.ActionReconfigure),
			string(reconciler.ActionDelete):      p.Count(reconciler.ActionDelete),
		},
	}
}

// documentFormatter writes reports and plans as YAML or JSON.
type documentFormatter struct {
	out    io.Writer
	encode func(io.Writer, any) error
}

func (f *documentFormatter) Report(r *reconciler.Report) error {
	return f.encode(f.out, newReportDocument(r))
}

func (f *documentFormatter) Plan(p *reconciler.Plan) error {
	return f.encode(f.out, newPlanDocument(p))
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
