package reconciler

import (
	"context"
	"fmt"

	"jenkey/internal/job"
	"jenkey/internal/remote"
	"jenkey/pkg/logging"
)

// prune takes a snapshot of the remote job list after the push barrier and
// deletes the jobs state does not mention, one at a time.
func (r *Reconciler) prune(ctx context.Context, srv remote.Server, state *job.State, report *Report) error {
	live, err := srv.ListJobIDs(ctx)
	r.metrics.Record("ListJobIDs", "", err)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	report.Unmanaged = Unmanaged(live, state.JobIDs())
	if len(report.Unmanaged) == 0 {
		logging.Debug("Reconciler", "No unmanaged jobs")
		return nil
	}

	switch r.opts.Prune {
	case PruneNever:
		logging.Info("Reconciler", "Found %d unmanaged jobs, pruning disabled", len(report.Unmanaged))
		return nil

	case PruneAsk:
		if r.opts.Confirmer == nil {
			logging.Warn("Reconciler", "Found %d unmanaged jobs but nobody can confirm their deletion", len(report.Unmanaged))
			report.PruneDeclined = true
			return nil
		}
		question := fmt.Sprintf("Delete %d unmanaged jobs?", len(report.Unmanaged))
		ok, err := r.opts.Confirmer.Confirm(ctx, question, report.Unmanaged)
		if err != nil {
			return fmt.Errorf("failed to confirm deletion: %w", err)
		}
		if !ok {
			logging.Info("Reconciler", "Keeping %d unmanaged jobs", len(report.Unmanaged))
			report.PruneDeclined = true
			return nil
		}
	}

	for _, id := range report.Unmanaged {
		logging.Info("Reconciler", "Deleting job: %s", id)
		err := srv.DeleteJob(ctx, id)
		r.metrics.Record("DeleteJob", id, err)
		if err != nil {
			logging.Error("Reconciler", err, "Failed to delete job '%s'", id)
			report.DeleteFailures[id] = err
			continue
		}
		report.Deleted = append(report.Deleted, id)
	}
	return nil
}
