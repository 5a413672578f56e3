package report

import (
	"encoding/json"
	"io"

	"github.com/svintsoff78/krepko/internal/runner"
)

// Envelope is the standard JSON response shape for every command.
type Envelope struct {
	Status string         `json:"status"`          // "ok" or "error"
	Data   any            `json:"data,omitempty"`  // command payload
	Error  *EnvelopeError `json:"error,omitempty"` // error details
	RunID  string         `json:"run_id,omitempty"`
}

// EnvelopeError is the error part of an Envelope.
type EnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrCodeContractViolation marks a run whose exit code is non-zero.
const ErrCodeContractViolation = "E200"

// RunReport is the JSON payload of a run.
type RunReport struct {
	Version     string       `json:"version"`
	BaseURL     string       `json:"base_url,omitempty"`
	Mode        string       `json:"mode"`
	Passed      int          `json:"passed"`
	Failed      int          `json:"failed"`
	Draft       int          `json:"draft"`
	TotalFlows  int          `json:"total_flows"`
	TotalSteps  int          `json:"total_steps"`
	DurationMS  int64        `json:"duration_ms"`
	ExitCode    int          `json:"exit_code"`
	Interrupted bool         `json:"interrupted,omitempty"`
	Flows       []FlowReport `json:"flows"`
}

// FlowReport is one flow in a RunReport.
type FlowReport struct {
	Name        string       `json:"name"`
	Tags        []string     `json:"tags"`
	Draft       bool         `json:"draft"`
	DraftReason string       `json:"draft_reason,omitempty"`
	Passed      bool         `json:"passed"`
	DurationMS  int64        `json:"duration_ms"`
	Steps       []StepReport `json:"steps"`
}

// StepReport is one step in a FlowReport.
type StepReport struct {
	Name       string       `json:"name"`
	Passed     bool         `json:"passed"`
	DurationMS int64        `json:"duration_ms"`
	Failure    *StepFailure `json:"failure,omitempty"`
}

// JSON writes the run as a single Envelope line.
type JSON struct {
	opts Options
}

// NewJSON creates a JSON reporter.
func NewJSON(opts Options) *JSON {
	return &JSON{opts: opts}
}

// Build converts a summary into its JSON payload.
func (j *JSON) Build(s *runner.Summary) RunReport {
	rep := RunReport{
		Version:     j.opts.Version,
		BaseURL:     j.opts.BaseURL,
		Mode:        string(s.Mode),
		Passed:      s.Passed,
		Failed:      s.Failed,
		Draft:       s.Draft,
		TotalFlows:  s.Passed + s.Failed + s.Draft,
		TotalSteps:  s.TotalSteps(),
		DurationMS:  s.Duration.Milliseconds(),
		ExitCode:    s.ExitCode,
		Interrupted: s.Interrupted,
		Flows:       make([]FlowReport, 0, len(s.Flows)),
	}

	for _, f := range s.Flows {
		fr := FlowReport{
			Name:        f.Name,
			Tags:        f.Tags,
			Draft:       f.IsDraft,
			DraftReason: f.DraftReason,
			Passed:      f.Passed,
			DurationMS:  f.Duration.Milliseconds(),
			Steps:       make([]StepReport, 0, len(f.Steps)),
		}
		if fr.Tags == nil {
			fr.Tags = []string{}
		}
		for _, st := range f.Steps {
			fr.Steps = append(fr.Steps, StepReport{
				Name:       st.Name,
				Passed:     st.Passed,
				DurationMS: st.Duration.Milliseconds(),
				Failure:    DescribeFailure(st.Err),
			})
		}
		rep.Flows = append(rep.Flows, fr)
	}
	return rep
}

// Report implements Reporter.
func (j *JSON) Report(w io.Writer, s *runner.Summary) error {
	rep := j.Build(s)
	env := Envelope{Status: "ok", Data: rep, RunID: s.RunID}
	if s.ExitCode != runner.ExitPass {
		env.Status = "error"
		env.Error = &EnvelopeError{
			Code:    ErrCodeContractViolation,
			Message: "contract violations detected",
		}
	}
	return json.NewEncoder(w).Encode(env)
}
