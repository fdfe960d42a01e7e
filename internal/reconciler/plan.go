package reconciler

import (
	"context"
	"fmt"

	"jenkey/internal/job"
	"jenkey/pkg/logging"
)

// Plan renders every job and view of state and compares them with the live
// server without changing it.
//
// Rendering happens so that template and substitution errors surface in a
// plan exactly as they would during Run.
func (r *Reconciler) Plan(ctx context.Context, state *job.State) (*Plan, error) {
	r.metrics = NewMetrics()

	if err := state.Validate(); err != nil {
		return nil, err
	}

	srv, err := r.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	plan := &Plan{}
	for _, p := range state.Projects() {
		jobs, err := p.Jobs()
		if err != nil {
			return nil, err
		}

		for _, j := range jobs {
			if _, err := j.Render(r.renderer); err != nil {
				return nil, err
			}
			exists, err := srv.JobExists(ctx, j.ID)
			r.metrics.Record("JobExists", j.ID, err)
			if err != nil {
				return nil, err
			}
			entry := PlanEntry{Kind: "job", Name: j.ID, Project: p.Name(), Action: ActionCreate}
			if exists {
				entry.Action = ActionReconfigure
			}
			if n, ok := j.MinBuildNumber(); ok {
				entry.MinBuildNumber = n
			}
			plan.Entries = append(plan.Entries, entry)
		}

		name, _, err := p.View(r.renderer)
		if err != nil {
			return nil, err
		}
		exists, err := srv.ViewExists(ctx, name)
		r.metrics.Record("ViewExists", name, err)
		if err != nil {
			return nil, err
		}
		entry := PlanEntry{Kind: "view", Name: name, Project: p.Name(), Action: ActionCreate}
		if exists {
			entry.Action = ActionReconfigure
		}
		plan.Entries = append(plan.Entries, entry)
	}

	live, err := srv.ListJobIDs(ctx)
	r.metrics.Record("ListJobIDs", "", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	plan.Unmanaged = Unmanaged(live, state.JobIDs())
	if r.opts.Prune != PruneNever {
		for _, id := range plan.Unmanaged {
			plan.Entries = append(plan.Entries, PlanEntry{Kind: "job", Name: id, Action: ActionDelete})
		}
	}

	logging.Info("Reconciler", "Plan: %d to create, %d to reconfigure, %d unmanaged",
		plan.Count(ActionCreate), plan.Count(ActionReconfigure), len(plan.Unmanaged))
	return plan, nil
}
