package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/svintsoff78/krepko/internal/config"
	"github.com/svintsoff78/krepko/internal/flow"
	"github.com/svintsoff78/krepko/internal/loader"
	"github.com/svintsoff78/krepko/internal/report"
	"github.com/svintsoff78/krepko/internal/runner"
)

// Version is reported in the run header and by --version.
var Version = "0.1.0"

// RootOptions holds global flags for all commands and the resolved config.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	NoColor    bool

	// Registry holds flows declared in Go. Flows from discovered flow files
	// are run after them.
	Registry *flow.Registry

	// ConfigDir is searched for krepko.yaml. Defaults to the working directory.
	ConfigDir string

	// Client, Clock and RunID override the runner defaults (for testing).
	Client flow.HTTPClient
	Clock  flow.Clock
	RunID  runner.RunIDGenerator

	config *config.Config
	logger *slog.Logger
}

// NewRootCommand creates the root command for the krepko CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts. Running the
// root command without a subcommand behaves like "krepko run".
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "krepko",
		Short: "Krepko - contract tests for HTTP APIs",
		Long: `Krepko runs ordered HTTP flows against an API and checks every response
against a structural contract.

Flows live in *.krepko.yaml, *.krepko.yml and *.krepko.cue files.
Running krepko without a subcommand is the same as "krepko run".`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlows(cmd.Context(), opts, cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", report.FormatText, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./krepko.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	addRunFlags(cmd)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintf(c.ErrOrStderr(), "Error: %v\n", err)
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewListCommand(opts))

	return cmd
}

// resolve loads the configuration for the executing command and installs
// the logger. Config errors are reported here and end the command with
// ExitCommandError.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: o.ConfigFile,
		Dir:        o.ConfigDir,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		formatter := o.formatter(cmd)
		if !report.IsValidFormat(formatter.Format) {
			formatter.Format = report.FormatText
		}
		_ = formatter.Error(loader.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.config = cfg
	o.Format = cfg.Format
	o.Verbose = cfg.Verbose
	o.NoColor = cfg.NoColor
	o.logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	if cfg.File != "" {
		o.logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// newLogger returns a slog logger backed by charmbracelet/log. Warnings and
// errors are shown by default, everything with verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Prefix: "krepko",
		Level:  level,
	})
	return slog.New(handler)
}

// Execute runs cmd and returns the process exit code. Commands print their
// own errors; errors raised by cobra itself (unknown command, bad flag) are
// printed here.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.As(err, new(*ExitError)) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return GetExitCode(err)
}
