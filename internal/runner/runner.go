// Package runner selects registered flows by tag, runs them one after
// another and reduces their results to a Summary and an exit code.
package runner

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/svintsoff78/krepko/internal/flow"
)

// RunHeader carries the run ID on every request.
const RunHeader = "X-Krepko-Run"

// Options configures a Runner.
type Options struct {
	// Mode selects the exit-code policy. Empty means DefaultMode.
	Mode Mode
	// Tags selects flows carrying at least one of the tags. Empty runs all.
	Tags []string
	// BaseURL is used by flows declared without a base URL.
	BaseURL string

	Logger *slog.Logger
	Client flow.HTTPClient
	Clock  flow.Clock
	RunID  RunIDGenerator
}

// Runner owns a set of flows and executes them sequentially.
type Runner struct {
	flows  []*flow.Flow
	opts   Options
	logger *slog.Logger
}

// New creates a runner.
func New(opts Options) *Runner {
	if opts.Mode == "" {
		opts.Mode = DefaultMode
	}
	if opts.Clock == nil {
		opts.Clock = flow.SystemClock{}
	}
	if opts.RunID == nil {
		opts.RunID = UUIDv7Generator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{opts: opts, logger: logger}
}

// AddFlows registers flows in order.
func (r *Runner) AddFlows(flows ...*flow.Flow) {
	r.flows = append(r.flows, flows...)
}

// Selected returns the flows that pass the tag filter, in registration order.
func (r *Runner) Selected() []*flow.Flow {
	return Filter(r.flows, r.opts.Tags)
}

// Filter keeps flows sharing at least one tag with tags. An empty tags list
// keeps every flow.
func Filter(flows []*flow.Flow, tags []string) []*flow.Flow {
	selected := make([]*flow.Flow, 0, len(flows))
	for _, f := range flows {
		if len(tags) == 0 || f.HasAnyTag(tags) {
			selected = append(selected, f)
		}
	}
	return selected
}

// Summary aggregates one run.
type Summary struct {
	RunID    string            `json:"run_id"`
	Mode     Mode              `json:"mode"`
	Flows    []flow.FlowResult `json:"flows"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Draft    int               `json:"draft"`
	Duration time.Duration     `json:"duration"`
	ExitCode int               `json:"exit_code"`
	// Interrupted is set when the context was cancelled before every
	// selected flow had started. An interrupted run always fails.
	Interrupted bool `json:"interrupted,omitempty"`
}

// TotalSteps counts the steps that were executed across all flows.
func (s *Summary) TotalSteps() int {
	n := 0
	for _, f := range s.Flows {
		n += len(f.Steps)
	}
	return n
}

// Run executes the selected flows strictly one after another. A flow starts
// only after the previous one has finished. Cancelling ctx stops the run
// before the next flow starts; the summary covers the flows that ran.
func (r *Runner) Run(ctx context.Context) *Summary {
	runID := r.opts.RunID.Generate()
	logger := r.logger.With("run_id", runID)
	selected := r.Selected()

	logger.Info("starting run",
		"mode", r.opts.Mode,
		"flows", len(selected),
		"registered", len(r.flows),
		"tags", r.opts.Tags,
	)

	flowOpts := []flow.RunOption{
		flow.WithClock(r.opts.Clock),
		flow.WithLogger(logger),
		flow.WithRunHeader(RunHeader, runID),
		flow.WithDefaultBaseURL(r.opts.BaseURL),
	}
	if r.opts.Client != nil {
		flowOpts = append(flowOpts, flow.WithClient(r.opts.Client))
	}

	summary := &Summary{
		RunID: runID,
		Mode:  r.opts.Mode,
		Flows: make([]flow.FlowResult, 0, len(selected)),
	}

	start := r.opts.Clock.Now()
	for _, f := range selected {
		if err := ctx.Err(); err != nil {
			logger.Warn("run interrupted", "error", err, "remaining", len(selected)-len(summary.Flows))
			summary.Interrupted = true
			break
		}

		result := f.Run(ctx, flowOpts...)
		summary.Flows = append(summary.Flows, result)

		switch {
		case result.IsDraft:
			summary.Draft++
		case result.Passed:
			summary.Passed++
		default:
			summary.Failed++
		}

		logger.Info("flow finished",
			"flow", result.Name,
			"passed", result.Passed,
			"draft", result.IsDraft,
			"steps", len(result.Steps),
			"duration", result.Duration,
		)
	}
	summary.Duration = r.opts.Clock.Now().Sub(start)
	summary.ExitCode = ExitCode(r.opts.Mode, summary.Flows)
	if summary.Interrupted {
		summary.ExitCode = ExitFail
	}

	logger.Info("run finished",
		"passed", summary.Passed,
		"failed", summary.Failed,
		"draft", summary.Draft,
		"exit_code", summary.ExitCode,
		"duration", summary.Duration,
	)

	return summary
}
