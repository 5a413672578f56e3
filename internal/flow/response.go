package flow

import (
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/match"
)

// Response is the parsed result of one HTTP call.
type Response struct {
	Status int
	Header http.Header
	// Body is the decoded JSON body when the response declared
	// application/json, otherwise the raw text as an ir.String. An empty
	// JSON body is a decode error unless the response is bodyless (HEAD,
	// 204, 304), which yields ir.String("").
	Body ir.Value
	// Raw is the unparsed response body.
	Raw []byte
}

// ExpectStatus checks the HTTP status code for strict equality.
func (r *Response) ExpectStatus(expected int) error {
	if r.Status != expected {
		return &StatusMismatchError{Expected: expected, Received: r.Status, Body: r.Body}
	}
	return nil
}

// ExpectOption configures a body assertion.
type ExpectOption func(*expectOptions)

type expectOptions struct {
	depth int
}

// WithDepth limits how deep ExpectBody descends into the body. Sub-patterns
// below the limit are treated as satisfied.
func WithDepth(depth int) ExpectOption {
	return func(o *expectOptions) {
		o.depth = depth
	}
}

// ExpectBody checks the body against a pattern. Only keys present in the
// pattern are checked.
func (r *Response) ExpectBody(p match.Pattern, opts ...ExpectOption) error {
	o := expectOptions{depth: match.Unlimited}
	for _, opt := range opts {
		opt(&o)
	}
	if m := match.Match(r.Body, p, o.depth); m != nil {
		return &BodyMismatchError{Mismatch: m}
	}
	return nil
}

// MustStatus is like ExpectStatus but panics with the StatusMismatchError.
// Flow.Run recovers the panic and records it as the step's failure.
func (r *Response) MustStatus(expected int) *Response {
	if err := r.ExpectStatus(expected); err != nil {
		panic(err)
	}
	return r
}

// MustBody is like ExpectBody but panics with the BodyMismatchError.
func (r *Response) MustBody(p match.Pattern, opts ...ExpectOption) *Response {
	if err := r.ExpectBody(p, opts...); err != nil {
		panic(err)
	}
	return r
}

// Field reads a value out of the raw JSON body using a gjson path
// ("token", "data.user.id", "items.0.name", "items.#").
func (r *Response) Field(path string) (ir.Value, bool) {
	if !gjson.ValidBytes(r.Raw) {
		return nil, false
	}
	res := gjson.GetBytes(r.Raw, path)
	if !res.Exists() {
		return nil, false
	}
	v, err := ir.FromAny(res.Value())
	if err != nil {
		return nil, false
	}
	return v, true
}

// Text returns the raw body as a string.
func (r *Response) Text() string {
	return string(r.Raw)
}
