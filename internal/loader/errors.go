package loader

import (
	"errors"
	"fmt"

	"github.com/svintsoff78/krepko/internal/match"
)

// Error code constants - shared by the run, validate and list commands.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Pattern scan error
	ErrCodeNoFiles       = "E003" // No flow files found
	ErrCodeLoadFailed    = "E004" // File read or parse failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // CUE build failed
	ErrCodeUnknownFormat = "E007" // Unsupported file extension

	// Document and flow validation errors
	ErrCodeNoFlows   = "E100" // Nothing declares a flow
	ErrCodeFlowName  = "E101" // Missing flow name
	ErrCodeFlowSteps = "E102" // No steps defined
	ErrCodeBaseURL   = "E103" // Invalid base_url

	// Step validation errors
	ErrCodeStepName  = "E110" // Missing step name
	ErrCodeMethod    = "E111" // Unsupported HTTP method
	ErrCodePath      = "E112" // Missing request path
	ErrCodeStatus    = "E113" // Status outside 100-599
	ErrCodeDepth     = "E114" // Negative depth
	ErrCodePattern   = "E115" // Invalid body pattern
	ErrCodeCapture   = "E116" // Invalid capture
	ErrCodeVariable  = "E117" // Invalid variable name
	ErrCodeStepShape = "E118" // Contradictory step keys
)

// LoadError represents an error found while discovering, parsing or
// validating flow files.
type LoadError struct {
	Code    string
	File    string
	Line    int // 0 if unknown
	Column  int
	Message string
}

func (e *LoadError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Code, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func newError(code, file, format string, args ...any) *LoadError {
	return &LoadError{Code: code, File: file, Message: fmt.Sprintf(format, args...)}
}

// fromDecodeError attaches a file and code to a pattern decoding error,
// keeping its position.
func fromDecodeError(file, code string, err error) *LoadError {
	var de *match.DecodeError
	if errors.As(err, &de) {
		return &LoadError{Code: code, File: file, Line: de.Line, Column: de.Column, Message: de.Message}
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	return &LoadError{Code: code, File: file, Message: err.Error()}
}

// UndefinedVariableError is returned when a step references a variable that
// no earlier step has set.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

// CaptureError is returned when a capture path does not exist in the
// response body.
type CaptureError struct {
	Var  string
	Path string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %q: path %q not found in response body", e.Var, e.Path)
}
