package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jenkey/internal/config"
	"jenkey/internal/job"
	"jenkey/internal/manifest"
	"jenkey/internal/placeholder"
	"jenkey/internal/remote"
	"jenkey/internal/render"
	"jenkey/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates an invalid configuration file or manifest.
	ExitCodeConfig = 2
	// ExitCodeRender indicates a template or placeholder substitution failure.
	ExitCodeRender = 3
	// ExitCodeTransport indicates the automation server rejected or failed a call.
	ExitCodeTransport = 4
)

var version = "dev"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	debug      bool
	logFormat  string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "jenkey",
		Short: "Generate Jenkins jobs from templates and keep the server in sync",
		Long: `jenkey renders Jenkins job and view configurations from reusable templates
and YAML manifests, then creates or reconfigures them on a Jenkins controller.
Jobs present on the server but absent from the manifests can be pruned.`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.initLogging(cmd, "")
		},
	}
	root.SetVersionTemplate(`{{printf "jenkey version %s\n" .Version}}`)

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Configuration file (default ./"+config.FileName+")")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(newSyncCmd(g))
	root.AddCommand(newPlanCmd(g))
	root.AddCommand(newRenderCmd(g))
	root.AddCommand(newConfigCmd(g))
	root.AddCommand(newVersionCmd())
	return root
}

// initLogging configures the logger from the flags, falling back to the
// configured level when no flag is given.
func (g *globalOptions) initLogging(cmd *cobra.Command, configured string) error {
	level := logging.LevelInfo
	if configured != "" {
		l, err := logging.ParseLevel(configured)
		if err != nil {
			return err
		}
		level = l
	}
	if g.debug {
		level = logging.LevelDebug
	}

	format := logging.FormatText
	switch g.logFormat {
	case "", "text":
	case "json":
		format = logging.FormatJSON
	default:
		return fmt.Errorf("unsupported log format %q (want text or json)", g.logFormat)
	}

	logging.InitWithFormat(level, cmd.ErrOrStderr(), format)
	return nil
}

// SetVersion sets the version reported by --version and the version
// command. It is called from main with the value injected at build time.
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return version
}

// Execute runs the command tree and exits the process with a code derived
// from the returned error.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(exitCode(err))
	}
}

// describe prefers the multi-line form of configuration errors.
func describe(err error) string {
	var cerr config.ConfigurationError
	if errors.As(err, &cerr) {
		return cerr.DetailedError()
	}
	return err.Error()
}

// exitCode determines the appropriate exit code based on the error type.
func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var (
		cerr      config.ConfigurationError
		merr      *manifest.Error
		duplicate *job.DuplicateError
	)
	if errors.As(err, &cerr) || errors.As(err, &merr) || errors.As(err, &duplicate) {
		return ExitCodeConfig
	}

	var (
		renderErr    *job.TemplateRenderError
		viewErr      *job.ViewRenderError
		substitution *placeholder.SubstitutionError
		notFound     *render.TemplateNotFoundError
		undefined    *render.UndefinedError
		syntax       *render.SyntaxError
	)
	if errors.As(err, &renderErr) || errors.As(err, &viewErr) || errors.As(err, &substitution) ||
		errors.As(err, &notFound) || errors.As(err, &undefined) || errors.As(err, &syntax) {
		return ExitCodeRender
	}

	var transport *remote.TransportError
	if errors.As(err, &transport) {
		return ExitCodeTransport
	}

	return ExitCodeError
}
