package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/svintsoff78/krepko/internal/loader"
	"github.com/svintsoff78/krepko/internal/report"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // All flows passed (drafts allowed outside strict mode)
	ExitFailure      = 1 // Contract violations or an interrupted run
	ExitCommandError = 2 // Command error (bad config, unreadable flow files, bad arguments)
)

// ExitError ends a command with a specific exit code. The command has already
// written its own output; Execute only maps the error to the code.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to a process exit code.
//
// Every command returns an ExitError from RunE, so an error without one in
// its chain was raised by cobra before any command ran (unknown command, bad
// flag, extra arguments) and maps to ExitCommandError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// CLIResponse is the JSON envelope every command writes in JSON mode.
type CLIResponse = report.Envelope

// CLIError is the error part of a CLIResponse.
type CLIError = report.EnvelopeError

// LoadErrorDetail is one entry of the details array of a load failure.
type LoadErrorDetail struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

func newLoadErrorDetail(err error) LoadErrorDetail {
	var le *loader.LoadError
	if errors.As(err, &le) {
		return LoadErrorDetail{Code: le.Code, File: le.File, Line: le.Line, Column: le.Column, Message: le.Message}
	}
	return LoadErrorDetail{Code: loader.ErrCodeGeneric, Message: err.Error()}
}

// OutputFormatter writes command results either as text or as a single
// CLIResponse line.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; Writer when nil
	Verbose   bool
}

// IsJSON reports whether results are written as a CLIResponse.
func (f *OutputFormatter) IsJSON() bool {
	return f.Format == report.FormatJSON
}

// Data writes data as the payload of an "ok" envelope.
func (f *OutputFormatter) Data(data any) error {
	return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
}

// Result writes data in JSON mode and text otherwise.
func (f *OutputFormatter) Result(data any, text string) error {
	if f.IsJSON() {
		return f.Data(data)
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Notice reports that there is nothing to do. It is not an error: JSON mode
// writes an "ok" envelope carrying {"message": text}.
func (f *OutputFormatter) Notice(text string) error {
	return f.Result(map[string]string{"message": text}, text)
}

// Error writes an "error" envelope in JSON mode. Text mode writes a single
// "Error [code]: message" line and leaves details to the caller.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.IsJSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

// LoadErrors reports every load error and returns the ExitError that ends
// the command. The envelope code is the code of the first error; JSON mode
// lists all of them under details, text mode prints one indented line each.
func (f *OutputFormatter) LoadErrors(errs []error) error {
	details := make([]LoadErrorDetail, 0, len(errs))
	for _, err := range errs {
		details = append(details, newLoadErrorDetail(err))
	}
	message := fmt.Sprintf("failed to load flow files (%d error(s))", len(errs))

	if f.IsJSON() {
		_ = f.Error(details[0].Code, message, details)
	} else {
		_ = f.Error(details[0].Code, message, nil)
		for _, err := range errs {
			fmt.Fprintf(f.Writer, "  %v\n", err)
		}
	}
	return WrapExitError(ExitCommandError, message, errs[0])
}

// VerboseLog writes a diagnostic line when verbose output is on. Diagnostics
// go to ErrWriter so they never mix with a JSON envelope on Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
