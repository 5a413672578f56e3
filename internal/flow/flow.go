package flow

import (
	"context"
	"runtime/debug"
	"slices"
	"time"
)

// StepFunc is the unit of work of a step. Returning an error, or panicking,
// fails the step and stops the flow.
type StepFunc func(ctx context.Context, c *Context) error

// Step is one named unit of work within a flow.
type Step struct {
	Name string
	Run  StepFunc
}

// Flow is an ordered, named sequence of steps sharing one Context.
//
// A Flow is mutated only while it is being declared through its builder
// methods; Run does not modify it.
type Flow struct {
	name        string
	baseURL     string
	steps       []Step
	tags        []string
	draft       bool
	draftReason string
}

// New creates an unregistered flow. Most callers declare flows through
// Registry.Target(...).Flow(...) instead.
func New(name, baseURL string) *Flow {
	return &Flow{name: name, baseURL: baseURL}
}

// Do appends a step. Declaration order is execution order.
func (f *Flow) Do(name string, fn StepFunc) *Flow {
	f.steps = append(f.steps, Step{Name: name, Run: fn})
	return f
}

// Tags replaces the flow's tags.
func (f *Flow) Tags(tags ...string) *Flow {
	f.tags = slices.Clone(tags)
	return f
}

// Draft marks the flow as not yet contractually binding. reason may be empty.
func (f *Flow) Draft(reason string) *Flow {
	f.draft = true
	f.draftReason = reason
	return f
}

// Name returns the flow name.
func (f *Flow) Name() string { return f.name }

// BaseURL returns the base URL the flow's requests are relative to.
func (f *Flow) BaseURL() string { return f.baseURL }

// TagList returns a copy of the flow's tags.
func (f *Flow) TagList() []string { return slices.Clone(f.tags) }

// IsDraft reports whether the flow is a draft.
func (f *Flow) IsDraft() bool { return f.draft }

// DraftReason returns the reason given to Draft.
func (f *Flow) DraftReason() string { return f.draftReason }

// Steps returns a copy of the declared steps.
func (f *Flow) Steps() []Step { return slices.Clone(f.steps) }

// HasAnyTag reports whether the flow carries at least one of tags.
func (f *Flow) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if slices.Contains(f.tags, t) {
			return true
		}
	}
	return false
}

// Run executes the steps in order against a fresh Context and stops at the
// first failing step. It never returns an error: step failures, including
// panics, are recorded in the result.
func (f *Flow) Run(ctx context.Context, opts ...RunOption) FlowResult {
	cfg := newRunConfig(opts)
	c := cfg.newContext(f.baseURL)
	logger := cfg.logger.With("flow", f.name)

	result := FlowResult{
		Name:        f.name,
		Steps:       make([]StepResult, 0, len(f.steps)),
		Passed:      true,
		IsDraft:     f.draft,
		DraftReason: f.draftReason,
		Tags:        f.TagList(),
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}

	flowStart := cfg.clock.Now()
	for _, step := range f.steps {
		stepStart := cfg.clock.Now()
		err := runStep(ctx, step, c)
		sr := StepResult{
			Name:     step.Name,
			Passed:   err == nil,
			Duration: cfg.clock.Now().Sub(stepStart),
			Err:      err,
		}
		result.Steps = append(result.Steps, sr)

		if err != nil {
			logger.Debug("step failed", "step", step.Name, "duration", sr.Duration, "assertion", IsAssertion(err), "error", err)
			result.Passed = false
			break
		}
		logger.Debug("step passed", "step", step.Name, "duration", sr.Duration)
	}
	result.Duration = cfg.clock.Now().Sub(flowStart)

	return result
}

// runStep invokes one step, converting a panic into the step's error.
func runStep(ctx context.Context, step Step, c *Context) (err error) {
	if step.Run == nil {
		return ErrNoStepBody
	}
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r, debug.Stack())
		}
	}()
	return step.Run(ctx, c)
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// FlowResult is the outcome of one flow run.
type FlowResult struct {
	Name        string        `json:"name"`
	Steps       []StepResult  `json:"steps"`
	Passed      bool          `json:"passed"`
	Duration    time.Duration `json:"duration"`
	IsDraft     bool          `json:"is_draft"`
	DraftReason string        `json:"draft_reason,omitempty"`
	Tags        []string      `json:"tags"`
}

// FailedStep returns the failing step, if any.
func (r FlowResult) FailedStep() (StepResult, bool) {
	for _, s := range r.Steps {
		if !s.Passed {
			return s, true
		}
	}
	return StepResult{}, false
}
