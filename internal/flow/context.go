package flow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/svintsoff78/krepko/internal/ir"
)

// HTTPClient sends requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Context is the per-flow scratch space: named variables, the bearer token
// and the HTTP client used by the flow's steps.
//
// A Context lives exactly as long as one Flow.Run. It is not safe for
// concurrent use; steps run one after another.
type Context struct {
	baseURL string
	vars    map[string]ir.Value
	token   string
	client  HTTPClient
	header  http.Header
	clock   Clock
	logger  *slog.Logger
}

// NewContext creates an empty context for baseURL. A trailing slash on
// baseURL is dropped.
func NewContext(baseURL string, opts ...RunOption) *Context {
	cfg := newRunConfig(opts)
	return cfg.newContext(baseURL)
}

// BaseURL returns the normalized base URL.
func (c *Context) BaseURL() string {
	return c.baseURL
}

// Set stores a variable for later steps of the same flow.
func (c *Context) Set(key string, value ir.Value) {
	c.vars[key] = value
}

// SetAny stores a plain Go value (string, number, map, slice...) as a variable.
func (c *Context) SetAny(key string, value any) error {
	v, err := ir.FromAny(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	c.vars[key] = v
	return nil
}

// Var returns a variable set by an earlier step.
func (c *Context) Var(key string) (ir.Value, bool) {
	v, ok := c.vars[key]
	return v, ok
}

// String returns a variable rendered as a string: strings as-is, everything
// else as compact JSON. Missing variables yield "".
func (c *Context) String(key string) string {
	v, ok := c.vars[key]
	if !ok {
		return ""
	}
	if s, ok := v.(ir.String); ok {
		return string(s)
	}
	return ir.Format(v)
}

// Vars returns a snapshot of all variables.
func (c *Context) Vars() map[string]ir.Value {
	return maps.Clone(c.vars)
}

// Bearer sets the token sent as "Authorization: Bearer <token>" on every
// following request.
func (c *Context) Bearer(token string) *Context {
	c.token = token
	return c
}

// ClearAuth stops sending the Authorization header.
func (c *Context) ClearAuth() *Context {
	c.token = ""
	return c
}

// Token returns the current bearer token, or "" if none is set.
func (c *Context) Token() string {
	return c.token
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	body    ir.Value
	bodyErr error
	headers map[string]string
}

// WithBody sets the JSON request body. v may be an ir.Value or a plain Go
// value accepted by ir.FromAny. The body is not sent with GET, and a nil v
// sends no body at all; pass ir.Null{} for a literal null.
func WithBody(v any) RequestOption {
	return func(o *requestOptions) {
		if v == nil {
			o.body, o.bodyErr = nil, nil
			return
		}
		o.body, o.bodyErr = ir.FromAny(v)
	}
}

// WithHeader sets a request header, overriding the defaults.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithHeaders sets several request headers.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *requestOptions) {
		for k, v := range headers {
			WithHeader(k, v)(o)
		}
	}
}

// Request performs one HTTP call relative to the base URL.
//
// Content-Type defaults to application/json; headers passed as options
// override it. When a bearer token is set, the Authorization header is
// always taken from it. A response whose Content-Type contains
// application/json is decoded into Response.Body; anything else is kept as
// text.
func (c *Context) Request(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.bodyErr != nil {
		return nil, fmt.Errorf("encode request body: %w", o.bodyErr)
	}

	url := c.baseURL + normalizePath(path)

	var body io.Reader
	if o.body != nil && method != http.MethodGet {
		data, err := ir.MarshalCanonical(o.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := c.clock.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "url", url, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, url, err)
	}

	c.logger.Debug("request",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", c.clock.Now().Sub(start),
	)

	res := &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Raw:    raw,
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") && !bodyless(method, resp.StatusCode) {
		v, err := ir.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s %s response: %w", method, url, err)
		}
		res.Body = v
	} else {
		res.Body = ir.String(raw)
	}
	return res, nil
}

// bodyless reports whether the response can carry no body whatever its
// Content-Type says.
func bodyless(method string, status int) bool {
	return method == http.MethodHead || status == http.StatusNoContent || status == http.StatusNotModified
}

// Get performs a GET request.
func (c *Context) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, opts...)
}

// Post performs a POST request with a JSON body.
func (c *Context) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, append([]RequestOption{WithBody(body)}, opts...)...)
}

// Put performs a PUT request with a JSON body.
func (c *Context) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, append([]RequestOption{WithBody(body)}, opts...)...)
}

// Patch performs a PATCH request with a JSON body.
func (c *Context) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, path, append([]RequestOption{WithBody(body)}, opts...)...)
}

// Delete performs a DELETE request.
func (c *Context) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, opts...)
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
