package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"jenkey/internal/config"
	"jenkey/internal/reconciler"
	"jenkey/internal/remote"
	"jenkey/internal/remote/directory"
)

type renderOptions struct {
	manifests string
	out       string
}

func newRenderCmd(g *globalOptions) *cobra.Command {
	o := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render every job and view into a directory",
		Long: `Render every job and view described by the manifests and write them to
DIR/jobs/<id>.xml and DIR/views/<name>.xml. Nothing is sent to the
automation server and nothing is deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.manifests, "manifests", "m", "", "Manifest directory (default from config)")
	f.StringVar(&o.out, "out", "", "Output directory")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (o *renderOptions) run(cmd *cobra.Command, g *globalOptions) error {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	if o.manifests != "" {
		cfg.Manifests = config.ExpandHome(o.manifests)
	}

	state, err := loadState(cfg.Manifests)
	if err != nil {
		return err
	}

	out := directory.New(config.ExpandHome(o.out))
	rec := reconciler.New(remote.Static(out), newEngine(cfg), reconciler.Options{
		Parallel: true,
		Workers:  cfg.Sync.Workers,
		Prune:    reconciler.PruneNever,
	})
	report, err := rec.Run(cmd.Context(), state)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d jobs and %d views into %s\n",
		report.Jobs, report.ViewsCreated+report.ViewsReconfigured, out.BasePath())
	return nil
}
