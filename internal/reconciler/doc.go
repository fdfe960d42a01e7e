// Package reconciler brings a remote automation server in line with a
// desired job.State.
//
// # Phases
//
// A run has three phases:
//
//   - Push: every project is pushed, sequentially or by a fixed pool of
//     workers. Each worker dials its own remote handle and pushes the jobs of
//     one project in order, followed by the project's view. The first failure
//     stops the phase.
//   - Prune: after all workers have finished, the remote job list is read
//     once and every job not in the desired state is unmanaged. Depending on
//     the PrunePolicy those jobs are deleted after confirmation, deleted
//     directly, or only reported. Deletion is best effort.
//   - Report: counts, the unmanaged list, deletion results, the push
//     duration and per-operation metrics.
//
// Plan performs the same rendering and lookups without changing anything.
//
// Example usage:
//
//	r := reconciler.New(jenkins.Factory(cfg), engine, reconciler.Options{
//	    Parallel:  true,
//	    Prune:     reconciler.PruneAsk,
//	    Confirmer: &confirm.Terminal{},
//	})
//	report, err := r.Run(ctx, state)
package reconciler
