package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/svintsoff78/krepko/internal/flow"
	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/runner"
)

// Palette shared by the pretty reporter.
const (
	colorTitle   = lipgloss.Color("#06B6D4")
	colorMuted   = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
)

type styles struct {
	title   lipgloss.Style
	bold    lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	verdict lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(colorTitle),
		bold:    r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
		success: r.NewStyle().Foreground(colorSuccess),
		failure: r.NewStyle().Foreground(colorError),
		warning: r.NewStyle().Foreground(colorWarning),
		verdict: r.NewStyle().Bold(true),
	}
}

// Pretty renders a human-readable report with one block per flow.
type Pretty struct {
	opts Options
}

// NewPretty creates a pretty reporter.
func NewPretty(opts Options) *Pretty {
	return &Pretty{opts: opts}
}

// Report implements Reporter.
func (p *Pretty) Report(w io.Writer, s *runner.Summary) error {
	r := lipgloss.NewRenderer(w)
	if p.opts.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}
	pw := &prettyWriter{st: newStyles(r)}

	pw.header(p.opts)
	for _, f := range s.Flows {
		pw.flow(f)
	}
	pw.summary(s)

	_, err := io.WriteString(w, pw.b.String())
	return err
}

// prettyWriter styles one line at a time; lipgloss pads multi-line blocks.
type prettyWriter struct {
	b  strings.Builder
	st styles
}

func (pw *prettyWriter) line(parts ...string) {
	for _, p := range parts {
		pw.b.WriteString(p)
	}
	pw.b.WriteByte('\n')
}

func (pw *prettyWriter) header(opts Options) {
	pw.line()
	pw.line(pw.st.title.Render("Krepko"), " v", opts.Version)
	if opts.BaseURL != "" {
		pw.line(pw.st.muted.Render("Base URL: " + opts.BaseURL))
	}
	pw.line()
}

func (pw *prettyWriter) flow(f flow.FlowResult) {
	title := pw.st.bold.Render("Flow: " + f.Name)
	if f.IsDraft {
		title += " " + pw.st.warning.Render("[DRAFT]")
	}
	pw.line(title)
	if f.DraftReason != "" {
		pw.line("  ", pw.st.muted.Render("draft: "+f.DraftReason))
	}

	for _, step := range f.Steps {
		icon := pw.st.success.Render("✓")
		if !step.Passed {
			icon = pw.st.failure.Render("✗")
		}
		pw.line("  ", icon, " ", step.Name, "  ", pw.st.muted.Render(FormatDuration(step.Duration)))

		if !step.Passed && step.Err != nil {
			pw.failure(DescribeFailure(step.Err))
		}
	}
	pw.line()
}

func (pw *prettyWriter) failure(f *StepFailure) {
	pw.line()
	pw.line("    ", pw.st.failure.Render(f.Message))

	if f.Kind == "status" || f.Kind == "body" {
		pw.line("    ", pw.st.muted.Render("Expected:"), " ", pw.st.success.Render(fmt.Sprint(f.Expected)))
		pw.line("    ", pw.st.muted.Render("Received:"), " ", pw.st.failure.Render(fmt.Sprint(f.Received)))
	}

	if f.Kind == "status" && f.Body != nil {
		pw.line()
		pw.line("    ", pw.st.muted.Render("Response body:"))
		for _, l := range strings.Split(ir.Indent(f.Body), "\n") {
			pw.line("    ", pw.st.muted.Render(l))
		}
	}
	pw.line()
}

func (pw *prettyWriter) summary(s *runner.Summary) {
	pw.line(pw.st.bold.Render("Summary:"))

	if s.Passed > 0 {
		pw.line(pw.st.success.Render("✓ " + plural(s.Passed, "flow") + " passed"))
	}
	if s.Failed > 0 {
		pw.line(pw.st.failure.Render("✗ " + plural(s.Failed, "flow") + " failed"))
	}
	if s.Draft > 0 {
		pw.line(pw.st.warning.Render("○ " + plural(s.Draft, "draft flow")))
	}
	if s.Interrupted {
		pw.line(pw.st.warning.Render("! run interrupted before all flows started"))
	}

	total := s.Passed + s.Failed + s.Draft
	pw.line(pw.st.muted.Render(fmt.Sprintf("Total: %s (%s)", plural(total, "flow"), plural(s.TotalSteps(), "step"))))
	pw.line(pw.st.muted.Render("Time: " + FormatDuration(s.Duration)))
	pw.line()

	if s.ExitCode == runner.ExitPass {
		pw.line(pw.st.verdict.Foreground(colorSuccess).Render("✓ Krepko держит ваш API"))
	} else {
		pw.line(pw.st.verdict.Foreground(colorError).Render("✗ Contract violations detected"))
	}
	pw.line()
}
