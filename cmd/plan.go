package cmd

import (
	"github.com/spf13/cobra"

	"jenkey/internal/config"
	"jenkey/internal/formatting"
	"jenkey/internal/reconciler"
)

type planOptions struct {
	manifests string
	target    string
	prune     string
	output    string
}

func newPlanCmd(g *globalOptions) *cobra.Command {
	o := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what sync would create, reconfigure and delete",
		Long: `Render every job and view and compare them with the automation server
without changing anything. Unmanaged jobs are listed as deletions unless
the prune policy is never.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.manifests, "manifests", "m", "", "Manifest directory (default from config)")
	f.StringVar(&o.target, "target", "", "Jenkins URL or dir://path (default from config)")
	f.StringVar(&o.prune, "prune", "", "Unmanaged job policy: ask, always or never (default from config)")
	f.StringVarP(&o.output, "output", "o", "table", "Output format (table, yaml, json)")
	return cmd
}

func (o *planOptions) run(cmd *cobra.Command, g *globalOptions) error {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	if o.manifests != "" {
		cfg.Manifests = config.ExpandHome(o.manifests)
	}
	if o.prune != "" {
		cfg.Sync.Prune = o.prune
	}

	policy, err := reconciler.ParsePrunePolicy(cfg.Sync.Prune)
	if err != nil {
		return err
	}
	format, err := formatting.ParseFormat(o.output)
	if err != nil {
		return err
	}

	state, err := loadState(cfg.Manifests)
	if err != nil {
		return err
	}

	rec := reconciler.New(newFactory(cfg, o.target), newEngine(cfg), reconciler.Options{Prune: policy})
	plan, err := rec.Plan(cmd.Context(), state)
	if err != nil {
		return err
	}

	return formatting.New(formatting.Options{
		Format: format,
		Color:  isTerminal(cmd.OutOrStdout()),
		Out:    cmd.OutOrStdout(),
	}).Plan(plan)
}
