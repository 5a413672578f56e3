package flow

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/svintsoff78/krepko/internal/ir"
)

// RunOption configures how a flow is executed.
type RunOption func(*runConfig)

type runConfig struct {
	client  HTTPClient
	clock   Clock
	logger  *slog.Logger
	header  http.Header
	baseURL string
}

func newRunConfig(opts []RunOption) runConfig {
	cfg := runConfig{
		client: http.DefaultClient,
		clock:  SystemClock{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (cfg runConfig) newContext(baseURL string) *Context {
	if baseURL == "" {
		baseURL = cfg.baseURL
	}
	return &Context{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		vars:    make(map[string]ir.Value),
		client:  cfg.client,
		header:  cfg.header,
		clock:   cfg.clock,
		logger:  cfg.logger,
	}
}

// WithClient sets the HTTP client used by the flow's Context.
func WithClient(client HTTPClient) RunOption {
	return func(cfg *runConfig) {
		if client != nil {
			cfg.client = client
		}
	}
}

// WithClock sets the clock used to time steps.
func WithClock(clock Clock) RunOption {
	return func(cfg *runConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithLogger sets the logger for step and request events.
func WithLogger(logger *slog.Logger) RunOption {
	return func(cfg *runConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRunHeader adds a header sent with every request of the run, such as
// a run identifier. Per-request headers override it.
func WithRunHeader(key, value string) RunOption {
	return func(cfg *runConfig) {
		cfg.header = cfg.header.Clone()
		cfg.header.Set(key, value)
	}
}

// WithDefaultBaseURL sets the base URL for flows declared without one.
func WithDefaultBaseURL(baseURL string) RunOption {
	return func(cfg *runConfig) {
		cfg.baseURL = baseURL
	}
}
