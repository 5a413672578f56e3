package loader

import (
	"context"
	"fmt"

	"github.com/svintsoff78/krepko/internal/flow"
	"github.com/svintsoff78/krepko/internal/ir"
)

// Compile turns the document into runnable flows. baseURL is used when the
// document does not declare its own base_url.
func (d *Document) Compile(baseURL string) []*flow.Flow {
	if d.BaseURL != "" {
		baseURL = d.BaseURL
	}
	flows := make([]*flow.Flow, 0, len(d.Flows))
	for _, fs := range d.Flows {
		f := flow.New(fs.Name, baseURL).Tags(fs.Tags...)
		if fs.Draft {
			f.Draft(fs.DraftReason)
		}
		for _, s := range fs.Steps {
			f.Do(s.Name, s.compile())
		}
		flows = append(flows, f)
	}
	return flows
}

func (s StepSpec) compile() flow.StepFunc {
	return func(ctx context.Context, c *flow.Context) error {
		for _, v := range s.Vars {
			val, err := InterpolateValue(v.Value, c)
			if err != nil {
				return fmt.Errorf("vars.%s: %w", v.Name, err)
			}
			c.Set(v.Name, val)
		}

		if s.Request != nil {
			res, err := s.Request.send(ctx, c)
			if err != nil {
				return err
			}
			if s.Expect != nil {
				if err := s.Expect.check(res, c); err != nil {
					return err
				}
			}
			for _, cp := range s.Capture {
				v, ok := res.Field(cp.Path)
				if !ok {
					return &CaptureError{Var: cp.Var, Path: cp.Path}
				}
				c.Set(cp.Var, v)
			}
		}

		if s.Bearer != "" {
			token, err := InterpolateString(s.Bearer, c)
			if err != nil {
				return fmt.Errorf("bearer: %w", err)
			}
			c.Bearer(token)
		}
		if s.ClearAuth {
			c.ClearAuth()
		}
		return nil
	}
}

func (r *RequestSpec) send(ctx context.Context, c *flow.Context) (*flow.Response, error) {
	path, err := InterpolateString(r.Path, c)
	if err != nil {
		return nil, fmt.Errorf("request.path: %w", err)
	}

	var opts []flow.RequestOption
	if len(r.Headers) > 0 {
		headers := make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			hv, err := InterpolateString(v, c)
			if err != nil {
				return nil, fmt.Errorf("request.headers.%s: %w", k, err)
			}
			headers[k] = hv
		}
		opts = append(opts, flow.WithHeaders(headers))
	}
	if r.Body != nil {
		body, err := InterpolateValue(r.Body, c)
		if err != nil {
			return nil, fmt.Errorf("request.body: %w", err)
		}
		opts = append(opts, flow.WithBody(body))
	}

	return c.Request(ctx, r.Method, path, opts...)
}

func (e *ExpectSpec) check(res *flow.Response, vars Vars) error {
	if e.Status != 0 {
		if err := res.ExpectStatus(e.Status); err != nil {
			return err
		}
	}
	if e.Body == nil {
		return nil
	}

	pattern, err := e.Body.MapExact(func(v ir.Value) (ir.Value, error) {
		return InterpolateValue(v, vars)
	})
	if err != nil {
		return fmt.Errorf("expect.body: %w", err)
	}
	var opts []flow.ExpectOption
	if e.Depth != nil {
		opts = append(opts, flow.WithDepth(*e.Depth))
	}
	return res.ExpectBody(pattern, opts...)
}
