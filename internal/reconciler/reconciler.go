package reconciler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jenkey/internal/job"
	"jenkey/internal/remote"
	"jenkey/pkg/logging"
)

// Reconciler pushes a desired State to a remote server and prunes jobs the
// state does not mention.
//
// A Reconciler may be reused for several runs but Run and Plan must not be
// called concurrently.
type Reconciler struct {
	connect  remote.Factory
	renderer job.Renderer
	opts     Options

	metrics *Metrics
}

// New creates a reconciler dialing handles through connect and rendering
// documents with renderer.
func New(connect remote.Factory, renderer job.Renderer, opts Options) *Reconciler {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Prune == "" {
		opts.Prune = PruneAsk
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Reconciler{
		connect:  connect,
		renderer: renderer,
		opts:     opts,
		metrics:  NewMetrics(),
	}
}

// Run reconciles state against the server: it pushes every project, then
// computes the unmanaged jobs and deletes them according to the prune
// policy.
//
// The first push failure stops the run; jobs pushed before it stay pushed.
// Individual deletion failures are collected in the report instead. The
// returned report is partially filled when an error is returned.
func (r *Reconciler) Run(ctx context.Context, state *job.State) (*Report, error) {
	r.metrics = NewMetrics()

	report := &Report{
		RunID:          uuid.NewString(),
		Projects:       state.Len(),
		Jobs:           state.JobCount(),
		DeleteFailures: make(map[string]error),
	}
	defer func() { report.Metrics = r.metrics.Summary() }()

	if err := state.Validate(); err != nil {
		return report, err
	}

	logging.Info("Reconciler", "Starting run %s", report.RunID)

	srv, err := r.connect(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to connect: %w", err)
	}

	count, err := srv.JobCount(ctx)
	r.metrics.Record("JobCount", "", err)
	if err != nil {
		return report, fmt.Errorf("failed to count jobs: %w", err)
	}
	report.RemoteJobsBefore = count

	logging.Info("Reconciler", "Project count: %d", report.Projects)
	logging.Info("Reconciler", "Current job count: %d", count)

	start := r.opts.Clock.Now()
	err = r.push(ctx, srv, state, report)
	report.PushDuration = r.opts.Clock.Now().Sub(start)
	if err != nil {
		return report, err
	}

	if err := r.prune(ctx, srv, state, report); err != nil {
		return report, err
	}

	logging.Info("Reconciler", "Processed %d projects (%d jobs) in %s",
		report.Projects, report.Jobs, report.PushDuration)
	return report, nil
}

// push runs the push phase, sequentially on srv or through the worker pool.
// It returns once every worker has finished.
func (r *Reconciler) push(ctx context.Context, srv remote.Server, state *job.State, report *Report) error {
	projects := state.Projects()

	var mu sync.Mutex
	done := func(res ProjectResult) {
		mu.Lock()
		report.add(res)
		mu.Unlock()
		if r.opts.OnProject != nil {
			r.opts.OnProject(res)
		}
	}

	if !r.opts.Parallel {
		for _, p := range projects {
			res, err := r.PushProject(ctx, srv, p)
			if err != nil {
				return err
			}
			done(res)
		}
		return nil
	}

	workers := min(r.opts.Workers, len(projects))
	logging.Debug("Reconciler", "Pushing %d projects with %d workers", len(projects), workers)

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan *job.Project)

	g.Go(func() error {
		defer close(queue)
		for _, p := range projects {
			select {
			case queue <- p:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			handle, err := r.connect(gctx)
			if err != nil {
				return fmt.Errorf("worker %d failed to connect: %w", i, err)
			}
			for p := range queue {
				res, err := r.PushProject(gctx, handle, p)
				if err != nil {
					return err
				}
				done(res)
			}
			return nil
		})
	}

	return g.Wait()
}

// PushProject pushes every job of p in order, then its view. Any failure is
// returned immediately.
func (r *Reconciler) PushProject(ctx context.Context, srv remote.Server, p *job.Project) (ProjectResult, error) {
	res := ProjectResult{Project: p.Name()}
	logging.Info("Reconciler", "Processing project '%s'", res.Project)

	jobs, err := p.Jobs()
	if err != nil {
		return res, err
	}

	for _, j := range jobs {
		created, err := r.pushJob(ctx, srv, j)
		if err != nil {
			return res, err
		}
		if created {
			res.Created = append(res.Created, j.ID)
		} else {
			res.Reconfigured = append(res.Reconfigured, j.ID)
		}
	}

	name, doc, err := p.View(r.renderer)
	if err != nil {
		return res, err
	}
	res.View = name

	exists, err := srv.ViewExists(ctx, name)
	r.metrics.Record("ViewExists", name, err)
	if err != nil {
		return res, uploadFailed("view", name, doc, err)
	}
	if exists {
		logging.Info("Reconciler", "Reconfiguring view '%s'", name)
		err = srv.ReconfigureView(ctx, name, doc)
		r.metrics.Record("ReconfigureView", name, err)
	} else {
		logging.Info("Reconciler", "Creating view '%s'", name)
		err = srv.CreateView(ctx, name, doc)
		r.metrics.Record("CreateView", name, err)
		res.ViewCreated = true
	}
	if err != nil {
		return res, uploadFailed("view", name, doc, err)
	}
	return res, nil
}

// pushJob renders and uploads one job, then applies its build number floor.
// It reports whether the job was created.
func (r *Reconciler) pushJob(ctx context.Context, srv remote.Server, j *job.Job) (bool, error) {
	logging.Info("Reconciler", "Processing job '%s'", j.ID)

	doc, err := j.Render(r.renderer)
	if err != nil {
		return false, err
	}

	exists, err := srv.JobExists(ctx, j.ID)
	r.metrics.Record("JobExists", j.ID, err)
	if err != nil {
		return false, uploadFailed("job", j.ID, doc, err)
	}

	if exists {
		logging.Info("Reconciler", "Reconfiguring job '%s'", j.ID)
		err = srv.ReconfigureJob(ctx, j.ID, doc)
		r.metrics.Record("ReconfigureJob", j.ID, err)
	} else {
		logging.Info("Reconciler", "Creating job '%s'", j.ID)
		err = srv.CreateJob(ctx, j.ID, doc)
		r.metrics.Record("CreateJob", j.ID, err)
	}
	if err != nil {
		return false, uploadFailed("job", j.ID, doc, err)
	}

	if n, ok := j.MinBuildNumber(); ok {
		logging.Debug("Reconciler", "Setting next build number of '%s' to %d", j.ID, n)
		err := srv.SetNextBuildNumber(ctx, j.ID, n)
		r.metrics.Record("SetNextBuildNumber", j.ID, err)
		if err != nil {
			logging.Error("Reconciler", err, "Failed to set next build number of job '%s' to %d", j.ID, n)
			return false, fmt.Errorf("failed to set next build number of job '%s': %w", j.ID, err)
		}
	}
	return !exists, nil
}

func uploadFailed(kind, name, doc string, err error) error {
	logging.Error("Reconciler", err, "Failed to upload %s '%s':\n%s", kind, name, doc)
	return fmt.Errorf("failed to upload %s '%s': %w", kind, name, err)
}

// Unmanaged returns the ids in remoteIDs that are not in desired, sorted and
// without duplicates.
func Unmanaged(remoteIDs, desired []string) []string {
	want := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		want[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, id := range remoteIDs {
		if _, ok := want[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
