// Package report renders a run summary for people (pretty) or machines (json).
package report

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/svintsoff78/krepko/internal/flow"
	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/runner"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats lists the accepted format names.
var ValidFormats = []string{FormatText, FormatJSON}

// Reporter writes a finished run to w.
type Reporter interface {
	Report(w io.Writer, s *runner.Summary) error
}

// Options carries the context a reporter prints next to the results.
type Options struct {
	Version string
	// BaseURL is the display base URL. Several base URLs are joined with ", ".
	BaseURL string
	// NoColor disables styling in the pretty reporter.
	NoColor bool
}

// New returns the reporter for format.
func New(format string, opts Options) (Reporter, error) {
	switch format {
	case FormatText, "":
		return &Pretty{opts: opts}, nil
	case FormatJSON:
		return &JSON{opts: opts}, nil
	default:
		return nil, fmt.Errorf("invalid format %q: must be one of %v", format, ValidFormats)
	}
}

// IsValidFormat reports whether format names a reporter.
func IsValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// StepFailure is the structured view of a failing step's error.
type StepFailure struct {
	// Kind is "status", "body", "panic" or "error".
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Path     string   `json:"path,omitempty"`
	Expected any      `json:"expected,omitempty"`
	Received any      `json:"received,omitempty"`
	Body     ir.Value `json:"body,omitempty"`
}

// DescribeFailure classifies err. Assertion errors keep their expected and
// received values; anything else carries only its message.
func DescribeFailure(err error) *StepFailure {
	if err == nil {
		return nil
	}

	if !flow.IsAssertion(err) {
		var pe *flow.StepPanicError
		if errors.As(err, &pe) {
			return &StepFailure{Kind: "panic", Message: err.Error()}
		}
		return &StepFailure{Kind: "error", Message: err.Error()}
	}

	var se *flow.StatusMismatchError
	if errors.As(err, &se) {
		return &StepFailure{
			Kind:     "status",
			Message:  err.Error(),
			Expected: se.Expected,
			Received: se.Received,
			Body:     se.Body,
		}
	}

	var be *flow.BodyMismatchError
	errors.As(err, &be)
	return &StepFailure{
		Kind:     "body",
		Message:  err.Error(),
		Path:     be.Mismatch.Path,
		Expected: be.Mismatch.Expected,
		Received: ir.Format(be.Mismatch.Received),
	}
}

// FormatDuration renders sub-second durations as whole milliseconds and
// longer ones as seconds with two decimals.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Round(time.Millisecond).Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
