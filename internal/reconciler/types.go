package reconciler

import (
	"fmt"
	"strings"
	"time"

	"jenkey/internal/confirm"
)

// PrunePolicy decides what happens to unmanaged jobs.
type PrunePolicy string

const (
	// PruneAsk deletes unmanaged jobs after the operator confirms.
	PruneAsk PrunePolicy = "ask"

	// PruneAlways deletes unmanaged jobs without asking.
	PruneAlways PrunePolicy = "always"

	// PruneNever only reports unmanaged jobs.
	PruneNever PrunePolicy = "never"
)

// ParsePrunePolicy parses ask, always or never.
func ParsePrunePolicy(s string) (PrunePolicy, error) {
	switch p := PrunePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PruneAsk, PruneAlways, PruneNever:
		return p, nil
	case "":
		return PruneAsk, nil
	}
	return "", fmt.Errorf("invalid prune policy %q (want ask, always or never)", s)
}

// DefaultWorkers is the pool width when parallel push is enabled.
const DefaultWorkers = 32

// Clock is the time source for push durations.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options configures a Reconciler.
type Options struct {
	// Parallel pushes projects through a worker pool, one remote handle per
	// worker.
	Parallel bool
	// Workers is the pool width; zero means DefaultWorkers.
	Workers int
	// Prune selects the unmanaged job policy; empty means PruneAsk.
	Prune PrunePolicy
	// Confirmer gates deletion under PruneAsk. Nil declines.
	Confirmer confirm.Confirmer
	// Clock defaults to the system clock.
	Clock Clock
	// OnProject is called after each project has been pushed. It may be
	// called from several workers at once.
	OnProject func(ProjectResult)
}

// ProjectResult describes one pushed project.
type ProjectResult struct {
	Project      string
	Created      []string
	Reconfigured []string
	View         string
	ViewCreated  bool
}

// Report summarizes a reconciliation run.
type Report struct {
	RunID             string
	Projects          int
	Jobs              int
	RemoteJobsBefore  int
	Created           int
	Reconfigured      int
	ViewsCreated      int
	ViewsReconfigured int
	// Unmanaged lists remote jobs absent from the desired state, sorted.
	Unmanaged []string
	// Deleted lists the unmanaged jobs actually removed.
	Deleted []string
	// DeleteFailures maps job id to the deletion error.
	DeleteFailures map[string]error
	// PruneDeclined is set when the operator refused deletion.
	PruneDeclined bool
	PushDuration  time.Duration
	Metrics       MetricsSummary
}

func (r *Report) add(res ProjectResult) {
	r.Created += len(res.Created)
	r.Reconfigured += len(res.Reconfigured)
	if res.ViewCreated {
		r.ViewsCreated++
	} else {
		r.ViewsReconfigured++
	}
}

// Action is what a plan would do to a job or view.
type Action string

const (
	ActionCreate      Action = "create"
	ActionReconfigure Action = "reconfigure"
	ActionDelete      Action = "delete"
)

// PlanEntry is one planned change.
type PlanEntry struct {
	Kind    string `yaml:"kind" json:"kind"`
	Name    string `yaml:"name" json:"name"`
	Project string `yaml:"project,omitempty" json:"project,omitempty"`
	Action  Action `yaml:"action" json:"action"`
	// MinBuildNumber is the floor that would be applied, if any.
	MinBuildNumber int `yaml:"minBuildNumber,omitempty" json:"minBuildNumber,omitempty"`
}

// Plan is the read-only diff between desired and live state.
type Plan struct {
	Entries []PlanEntry `yaml:"entries" json:"entries"`
	// Unmanaged lists remote jobs absent from the desired state, sorted.
	Unmanaged []string `yaml:"unmanaged" json:"unmanaged"`
}

// Count returns the number of entries with the given action.
func (p *Plan) Count(a Action) int {
	n := 0
	for _, e := range p.Entries {
		if e.Action == a {
			n++
		}
	}
	return n
}
