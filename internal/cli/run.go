package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/svintsoff78/krepko/internal/config"
	"github.com/svintsoff78/krepko/internal/flow"
	"github.com/svintsoff78/krepko/internal/loader"
	"github.com/svintsoff78/krepko/internal/report"
	"github.com/svintsoff78/krepko/internal/runner"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run contract flows against an API",
		Long: `Discover flow files, run every selected flow in order and report the results.

Flows run one after another. A flow stops at its first failing step and the
run moves on to the next flow. The exit code depends on --mode:
  dev, ci   fail only when a non-draft flow fails
  strict    also fail when a draft flow fails or any draft exists

Example:
  krepko run --base-url http://localhost:3000
  krepko run -p "api/**/*.krepko.yaml" -t smoke -t auth --mode strict`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlows(cmd.Context(), rootOpts, cmd)
		},
	}

	addRunFlags(cmd)
	return cmd
}

// addRunFlags registers the flags shared by the root and run commands. Their
// values are read through the config, so the defaults here are only shown in
// help output.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("base-url", "b", config.DefaultBaseURL, "base URL of the API under test")
	cmd.Flags().StringP("pattern", "p", loader.DefaultPattern, "glob pattern for flow files")
	cmd.Flags().StringP("mode", "m", string(runner.DefaultMode), "run mode (dev|ci|strict)")
	cmd.Flags().StringSliceP("tags", "t", nil, "run only flows with any of these tags")
}

func runFlows(parentCtx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	cfg := opts.config
	formatter := opts.formatter(cmd)
	logger := opts.logger

	set, err := collectFlows(opts, formatter, true)
	if err != nil || set == nil {
		return err
	}
	flows := set.Flows

	// Setup signal handling for graceful shutdown
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, stopping after the current flow", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	r := runner.New(runner.Options{
		Mode:    cfg.RunMode(),
		Tags:    cfg.Tags,
		BaseURL: cfg.BaseURL,
		Logger:  logger,
		Client:  opts.Client,
		Clock:   opts.Clock,
		RunID:   opts.RunID,
	})
	r.AddFlows(flows...)

	formatter.VerboseLog("Running %d of %d flow(s) in %s mode", len(r.Selected()), len(flows), cfg.RunMode())
	summary := r.Run(ctx)

	rep, err := report.New(cfg.Format, report.Options{
		Version: Version,
		BaseURL: displayBaseURL(r.Selected(), cfg.BaseURL),
		NoColor: cfg.NoColor,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid format", err)
	}
	if err := rep.Report(cmd.OutOrStdout(), summary); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}

	if summary.ExitCode != runner.ExitPass {
		return NewExitError(ExitFailure, fmt.Sprintf("contract violations detected: %d failed, %d draft", summary.Failed, summary.Draft))
	}
	return nil
}

// flowSet is what a command works on: the flows and the files they came from.
type flowSet struct {
	Flows []*flow.Flow
	Files []string
}

// collectFlows gathers Go-declared flows and the flows of every discovered
// flow file. Load errors are printed and returned as ExitCommandError.
// Finding nothing is printed too; with allowEmpty it yields a nil set and a
// nil error, otherwise ExitCommandError.
func collectFlows(opts *RootOptions, formatter *OutputFormatter, allowEmpty bool) (*flowSet, error) {
	cfg := opts.config

	var flows []*flow.Flow
	if opts.Registry != nil {
		flows = opts.Registry.Flows()
	}

	files, err := loader.Discover(cfg.Pattern)
	if err != nil {
		return nil, formatter.LoadErrors([]error{err})
	}
	formatter.VerboseLog("Found %d flow file(s) matching %s", len(files), cfg.Pattern)

	if len(files) == 0 && len(flows) == 0 {
		if !allowEmpty {
			_ = formatter.Error(loader.ErrCodeNoFiles, "no flow files found matching pattern: "+cfg.Pattern, nil)
			return nil, NewExitError(ExitCommandError, "no flow files found")
		}
		return nil, formatter.Notice(fmt.Sprintf("No flow files found matching pattern: %s\nCreate a file like auth.krepko.yaml with your flows.", cfg.Pattern))
	}

	l := loader.New(loader.WithLogger(opts.logger))
	result, loadErrs := l.Load(files, loader.LoadModeCollectAll)
	if len(loadErrs) > 0 {
		return nil, formatter.LoadErrors(loadErrs)
	}
	flows = append(flows, result.Registry(cfg.BaseURL).Flows()...)

	if len(flows) == 0 {
		if !allowEmpty {
			_ = formatter.Error(loader.ErrCodeNoFlows, "no flows registered", nil)
			return nil, NewExitError(ExitCommandError, "no flows registered")
		}
		return nil, formatter.Notice("No flows registered. Make sure your flow files declare at least one flow.")
	}
	return &flowSet{Flows: flows, Files: files}, nil
}

// displayBaseURL lists the distinct base URLs of flows in order, joined with
// ", ". Flows without one use fallback.
func displayBaseURL(flows []*flow.Flow, fallback string) string {
	var urls []string
	for _, f := range flows {
		u := f.BaseURL()
		if u == "" {
			u = fallback
		}
		if !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return fallback
	}
	return strings.Join(urls, ", ")
}
