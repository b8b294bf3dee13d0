package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/kata/internal/adapter"
	"github.com/roach88/kata/internal/config"
	"github.com/roach88/kata/internal/metrics"
	"github.com/roach88/kata/internal/runner"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded before any subcommand runs.
	Config config.Config

	// Logger writes to the command's stderr; debug level with --verbose.
	Logger *slog.Logger

	// RunnerOptions lets tests pin ids, clocks and seeds.
	RunnerOptions runner.Options
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kata CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kata",
		Short: "kata - JavaScript kata runner",
		Long: `Run submitted JavaScript against a test fixture and report results as
a line-oriented token stream (<DESCRIBE::>, <IT::>, <PASSED::>, ...).

Supported frameworks: cw-2, mocha_bdd, mocha_tdd, karma_bdd, karma_tdd.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = cfg
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a kata.yaml config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewFrameworksCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger builds the CLI's slog handler. Only warnings and errors are
// shown unless verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// formatter returns an OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newRunner builds a runner from config and test overrides.
func (o *RootOptions) newRunner(m *metrics.Metrics) *runner.Runner {
	ro := o.RunnerOptions
	ro.Registry = adapter.NewRegistry()
	ro.Metrics = m
	ro.Logger = o.Logger
	if ro.Workdir == "" {
		ro.Workdir = o.Config.Workdir
	}
	if ro.CaseTimeout == 0 {
		ro.CaseTimeout = o.Config.CaseTimeout()
	}
	if ro.RunTimeout == 0 {
		ro.RunTimeout = o.Config.RunTimeout()
	}
	return runner.New(ro)
}
