package loader

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/match"
)

// Format identifies the syntax of a flow file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// Document is one decoded flow file, independent of its syntax.
type Document struct {
	File    string
	Format  Format
	BaseURL string
	Flows   []FlowSpec
}

// FlowSpec declares one flow.
type FlowSpec struct {
	Name        string
	Tags        []string
	Draft       bool
	DraftReason string
	Steps       []StepSpec
}

// StepSpec declares one step. Execution order within the step is fixed:
// vars, request, expect.status, expect.body, capture, then bearer or
// clear_auth.
type StepSpec struct {
	Name      string
	Vars      []Var
	Request   *RequestSpec
	Expect    *ExpectSpec
	Capture   []Capture
	Bearer    string
	ClearAuth bool
}

// Var is a variable assignment. String leaves may reference other variables.
type Var struct {
	Name  string
	Value ir.Value
}

// Capture stores the value at a gjson path of the response body.
type Capture struct {
	Var  string
	Path string
}

// RequestSpec is the HTTP call of a step.
type RequestSpec struct {
	Method  string
	Path    string
	Headers map[string]string
	// Body is nil when the step sends no body.
	Body ir.Value
}

// ExpectSpec holds the assertions applied to the step's response.
type ExpectSpec struct {
	// Status is 0 when the status is not checked.
	Status int
	// Body is nil when the body is not checked.
	Body *match.Pattern
	// Depth is nil for an unlimited depth.
	Depth *int
}

var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

var varName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the document and returns every problem found.
func (d *Document) Validate() []error {
	var errs []error
	add := func(code, format string, args ...any) {
		errs = append(errs, newError(code, d.File, format, args...))
	}

	if d.BaseURL != "" {
		u, err := url.Parse(d.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add(ErrCodeBaseURL, "base_url %q must be an absolute http(s) URL", d.BaseURL)
		}
	}

	for i, f := range d.Flows {
		where := fmt.Sprintf("flows[%d]", i)
		if f.Name == "" {
			add(ErrCodeFlowName, "%s: name is required", where)
		} else {
			where = fmt.Sprintf("flow %q", f.Name)
		}
		if len(f.Steps) == 0 {
			add(ErrCodeFlowSteps, "%s: at least one step is required", where)
		}

		for j, s := range f.Steps {
			at := fmt.Sprintf("%s: steps[%d]", where, j)
			if s.Name == "" {
				add(ErrCodeStepName, "%s: name is required", at)
			} else {
				at = fmt.Sprintf("%s: step %q", where, s.Name)
			}
			errs = append(errs, validateStep(d.File, at, s)...)
		}
	}
	return errs
}

func validateStep(file, at string, s StepSpec) []error {
	var errs []error
	add := func(code, format string, args ...any) {
		errs = append(errs, newError(code, file, "%s: %s", at, fmt.Sprintf(format, args...)))
	}

	for _, v := range s.Vars {
		if !varName.MatchString(v.Name) {
			add(ErrCodeVariable, "invalid variable name %q", v.Name)
		}
	}

	if r := s.Request; r != nil {
		if !methods[r.Method] {
			add(ErrCodeMethod, "unsupported method %q", r.Method)
		}
		if r.Path == "" {
			add(ErrCodePath, "request.path is required")
		}
	} else {
		if s.Expect != nil {
			add(ErrCodeStepShape, "expect requires a request")
		}
		if len(s.Capture) > 0 {
			add(ErrCodeStepShape, "capture requires a request")
		}
	}

	if e := s.Expect; e != nil {
		if e.Status != 0 && (e.Status < 100 || e.Status > 599) {
			add(ErrCodeStatus, "expect.status %d is not an HTTP status", e.Status)
		}
		if e.Depth != nil && *e.Depth < 0 {
			add(ErrCodeDepth, "expect.depth must not be negative, got %d", *e.Depth)
		}
		if e.Depth != nil && e.Body == nil {
			add(ErrCodeDepth, "expect.depth requires expect.body")
		}
	}

	for _, c := range s.Capture {
		if !varName.MatchString(c.Var) {
			add(ErrCodeCapture, "invalid capture variable %q", c.Var)
		}
		if c.Path == "" {
			add(ErrCodeCapture, "capture %q: path is required", c.Var)
		}
	}

	if s.Bearer != "" && s.ClearAuth {
		add(ErrCodeStepShape, "bearer and clear_auth are mutually exclusive")
	}
	return errs
}

// FlowCount returns the number of flows declared in the document.
func (d *Document) FlowCount() int {
	return len(d.Flows)
}
