package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"jenkey/internal/config"
	"jenkey/internal/confirm"
	"jenkey/internal/formatting"
	"jenkey/internal/reconciler"
	"jenkey/internal/remote"
	"jenkey/internal/render"
	"jenkey/internal/watch"
	"jenkey/pkg/logging"
)

type syncOptions struct {
	manifests string
	target    string
	parallel  bool
	workers   int
	prune     string
	yes       bool
	watch     bool
	output    string
}

func newSyncCmd(g *globalOptions) *cobra.Command {
	o := &syncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create or update every job and view, then prune unmanaged jobs",
		Long: `Render every job and view described by the manifests and push them to the
automation server. Jobs that exist on the server but not in the manifests
are reported and, depending on --prune, deleted.

Examples:
  jenkey sync
  jenkey sync --parallel --workers 8 --prune never
  jenkey sync --target dir://./out
  jenkey sync --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.manifests, "manifests", "m", "", "Manifest directory (default from config)")
	f.StringVar(&o.target, "target", "", "Jenkins URL or dir://path (default from config)")
	f.BoolVar(&o.parallel, "parallel", false, "Push projects through a worker pool")
	f.IntVar(&o.workers, "workers", 0, "Worker pool width (default from config)")
	f.StringVar(&o.prune, "prune", "", "Unmanaged job policy: ask, always or never (default from config)")
	f.BoolVarP(&o.yes, "yes", "y", false, "Answer yes to the deletion prompt")
	f.BoolVarP(&o.watch, "watch", "w", false, "Re-sync whenever manifests or templates change")
	f.StringVarP(&o.output, "output", "o", "table", "Report format (table, yaml, json)")
	return cmd
}

// apply overrides the configuration with the flags that were set.
func (o *syncOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if o.manifests != "" {
		cfg.Manifests = config.ExpandHome(o.manifests)
	}
	if f.Changed("parallel") {
		cfg.Sync.Parallel = o.parallel
	}
	if o.workers > 0 {
		cfg.Sync.Workers = o.workers
	}
	if o.prune != "" {
		cfg.Sync.Prune = o.prune
	}
}

func (o *syncOptions) run(cmd *cobra.Command, g *globalOptions) error {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	o.apply(cmd, &cfg)

	policy, err := reconciler.ParsePrunePolicy(cfg.Sync.Prune)
	if err != nil {
		return err
	}
	format, err := formatting.ParseFormat(o.output)
	if err != nil {
		return err
	}

	r := &syncRun{
		cfg:     cfg,
		engine:  newEngine(cfg),
		connect: newFactory(cfg, o.target),
		policy:  policy,
		yes:     o.yes,
		stdin:   cmd.InOrStdin(),
		stdout:  cmd.OutOrStdout(),
		stderr:  cmd.ErrOrStderr(),
		formatter: formatting.New(formatting.Options{
			Format: format,
			Color:  isTerminal(cmd.OutOrStdout()),
			Out:    cmd.OutOrStdout(),
		}),
	}

	if !o.watch {
		return r.once(cmd.Context())
	}

	if r.policy == reconciler.PruneAsk && !r.yes {
		logging.Info("CLI", "Watch mode cannot prompt, unmanaged jobs will only be reported")
		r.policy = reconciler.PruneNever
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.watch(ctx)
}

// syncRun holds everything needed to reconcile once, so watch mode can
// repeat it.
type syncRun struct {
	cfg       config.Config
	engine    *render.Engine
	connect   remote.Factory
	policy    reconciler.PrunePolicy
	yes       bool
	formatter formatting.Formatter

	stdin          io.Reader
	stdout, stderr io.Writer
}

func (r *syncRun) once(ctx context.Context) error {
	state, err := loadState(r.cfg.Manifests)
	if err != nil {
		return err
	}

	progress := r.newProgress(state.Len())
	defer progress.stop()

	rec := reconciler.New(r.connect, r.engine, reconciler.Options{
		Parallel:  r.cfg.Sync.Parallel,
		Workers:   r.cfg.Sync.Workers,
		Prune:     r.policy,
		Confirmer: r.confirmer(progress),
		OnProject: progress.project,
	})

	report, err := rec.Run(ctx, state)
	progress.stop()
	if err != nil {
		return err
	}
	return r.formatter.Report(report)
}

func (r *syncRun) watch(ctx context.Context) error {
	if err := r.once(ctx); err != nil {
		logging.Error("CLI", err, "Sync failed, waiting for changes")
	}

	roots := append([]string{r.cfg.Manifests}, r.cfg.Templates.Paths...)
	w := watch.New(roots, watch.Options{})
	return w.Run(ctx, func(ctx context.Context, paths []string) {
		logging.Info("CLI", "%d files changed, syncing", len(paths))
		r.engine.Reset()
		if err := r.once(ctx); err != nil {
			logging.Error("CLI", err, "Sync failed, waiting for changes")
		}
	})
}

// confirmer selects how deletions are approved. The spinner is stopped
// before prompting so it does not draw over the question.
func (r *syncRun) confirmer(p *progress) confirm.Confirmer {
	if r.yes {
		return confirm.Auto(true)
	}
	terminal := &confirm.Terminal{Stdout: r.stdout}
	if r.stdin != os.Stdin {
		terminal.Stdin = io.NopCloser(r.stdin)
	}
	return confirm.Func(func(ctx context.Context, question string, items []string) (bool, error) {
		p.stop()
		return terminal.Confirm(ctx, question, items)
	})
}

// progress shows a spinner on an interactive stderr while projects are
// pushed.
type progress struct {
	s     *spinner.Spinner
	total int
	done  atomic.Int64
}

func (r *syncRun) newProgress(total int) *progress {
	p := &progress{total: total}
	if !isTerminal(r.stderr) {
		return p
	}
	p.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(r.stderr))
	p.s.Suffix = fmt.Sprintf(" Pushing %d projects...", total)
	p.s.Start()
	return p
}

func (p *progress) project(res reconciler.ProjectResult) {
	n := p.done.Add(1)
	logging.Debug("CLI", "Pushed project %s (%d created, %d reconfigured)", res.Project, len(res.Created), len(res.Reconfigured))
	if p.s == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" Pushed %d/%d projects (%s)", n, p.total, text.FgHiBlue.Sprint(res.Project))
	p.s.Unlock()
}

func (p *progress) stop() {
	if p.s != nil {
		p.s.Stop()
	}
}
