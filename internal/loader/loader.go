package loader

import (
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/svintsoff78/krepko/internal/flow"
)

// LoadMode controls how errors are handled while loading several files.
type LoadMode int

const (
	// LoadModeFailFast stops on the first file with errors.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll loads every file and collects all errors.
	LoadModeCollectAll
)

// Loader reads flow files. It is not safe for concurrent use: the CUE
// context it holds is not.
type Loader struct {
	cue    *cue.Context
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger for load events.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		cue:    cuecontext.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile decodes and validates one flow file. The document is returned
// whenever it could be decoded, even if validation found problems.
func (l *Loader) LoadFile(path string) (*Document, []error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, []error{newError(ErrCodeUnknownFormat, path, "unsupported flow file extension")}
	}

	var (
		doc *Document
		err error
	)
	switch format {
	case FormatYAML:
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			code := ErrCodeLoadFailed
			if os.IsNotExist(readErr) {
				code = ErrCodeNotFound
			}
			return nil, []error{newError(code, path, "read flow file: %v", readErr)}
		}
		doc, err = decodeYAML(path, data)
	case FormatCUE:
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil, []error{newError(ErrCodeNotFound, path, "flow file not found")}
		}
		doc, err = decodeCUE(l.cue, path)
	}
	if err != nil {
		return nil, []error{err}
	}

	errs := doc.Validate()
	if len(doc.Flows) == 0 {
		l.logger.Warn("flow file declares no flows", "file", path)
	}
	l.logger.Debug("loaded flow file",
		"file", path,
		"format", format,
		"flows", len(doc.Flows),
		"errors", len(errs),
	)
	return doc, errs
}

// Result contains the documents loaded from a set of files.
type Result struct {
	Documents []*Document
	FileCount int
}

// Load reads every file in order. With LoadModeFailFast it stops at the first
// file that has errors; documents loaded before it are kept in the result.
func (l *Loader) Load(paths []string, mode LoadMode) (*Result, []error) {
	result := &Result{FileCount: len(paths)}
	var errs []error
	for _, path := range paths {
		doc, fileErrs := l.LoadFile(path)
		if len(fileErrs) > 0 {
			errs = append(errs, fileErrs...)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Documents = append(result.Documents, doc)
	}
	return result, errs
}

// FlowCount returns the number of flows across all documents.
func (r *Result) FlowCount() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Flows)
	}
	return n
}

// Registry compiles every document into one registry, in file order.
// baseURL applies to documents without their own base_url.
func (r *Result) Registry(baseURL string) *flow.Registry {
	reg := flow.NewRegistry()
	for _, d := range r.Documents {
		reg.Add(d.Compile(baseURL)...)
	}
	return reg
}
