package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"jenkey/internal/config"
	"jenkey/internal/job"
	"jenkey/internal/manifest"
	"jenkey/internal/remote"
	"jenkey/internal/remote/directory"
	"jenkey/internal/remote/jenkins"
	"jenkey/internal/render"
	"jenkey/pkg/logging"
)

// directoryScheme selects the directory backend in --target.
const directoryScheme = "dir://"

// loadConfig reads the configuration file and reapplies the logging flags
// on top of it.
func (g *globalOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.logFormat == "" {
		g.logFormat = cfg.Log.Format
	}
	if err := g.initLogging(cmd, cfg.Log.Level); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newEngine builds the template engine over the configured search path.
func newEngine(cfg config.Config) *render.Engine {
	engine := render.NewFromPaths(cfg.Templates.Paths, render.WithExtension(cfg.Templates.Extension))
	logging.Debug("CLI", "Template search path: %s", strings.Join(engine.SearchPath(), ", "))
	return engine
}

// loadState reads every manifest in dir.
func loadState(dir string) (*job.State, error) {
	state, err := manifest.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	logging.Debug("CLI", "Loaded %d projects (%d jobs) from %s", state.Len(), state.JobCount(), dir)
	return state, nil
}

// newFactory returns the remote backend for target, which is either an
// http(s) URL of a Jenkins controller or dir://path.
func newFactory(cfg config.Config, target string) remote.Factory {
	if target == "" {
		target = cfg.Server.URL
	}
	if path, ok := strings.CutPrefix(target, directoryScheme); ok {
		logging.Info("CLI", "Writing to directory %s", path)
		return remote.Static(directory.New(path))
	}
	return jenkins.Factory(jenkins.Config{
		URL:      target,
		Username: cfg.Server.Username,
		Token:    cfg.Server.Token,
		Timeout:  cfg.Server.Timeout,
	})
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
