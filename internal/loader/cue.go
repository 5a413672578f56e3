package loader

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/load"

	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/match"
)

// Keys accepted at each level of a CUE flow file.
var (
	cueDocumentKeys = []string{"base_url", "flows"}
	cueFlowKeys     = []string{"name", "tags", "draft", "draft_reason", "steps"}
	cueStepKeys     = []string{"name", "vars", "request", "expect", "capture", "bearer", "clear_auth"}
	cueRequestKeys  = []string{"method", "path", "headers", "body"}
	cueExpectKeys   = []string{"status", "body", "depth"}
)

// decodeCUE loads a CUE flow file as its own instance and decodes it.
func decodeCUE(ctx *cue.Context, file string) (*Document, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, newError(ErrCodeNotFound, file, "resolve path: %v", err)
	}

	instances := load.Instances([]string{abs}, &load.Config{Dir: filepath.Dir(abs)})
	if len(instances) == 0 {
		return nil, newError(ErrCodeLoadFailed, file, "no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, newError(ErrCodeLoadFailed, file, "loading CUE file: %v", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, newError(ErrCodeBuildFailed, file, "building CUE value: %v", err)
	}
	if err := value.Validate(); err != nil {
		return nil, newError(ErrCodeBuildFailed, file, "building CUE value: %v", err)
	}

	d := cueDecoder{file: file}
	return d.document(value)
}

type cueDecoder struct {
	file string
}

func (d cueDecoder) errorAt(v cue.Value, code, format string, args ...any) *LoadError {
	pos := v.Pos()
	return &LoadError{
		Code:    code,
		File:    d.file,
		Line:    pos.Line(),
		Column:  pos.Column(),
		Message: fmt.Sprintf(format, args...),
	}
}

// checkKeys rejects regular fields outside allowed. Definitions and hidden
// fields are ignored.
func (d cueDecoder) checkKeys(v cue.Value, what string, allowed []string) error {
	iter, err := v.Fields()
	if err != nil {
		return d.errorAt(v, ErrCodeLoadFailed, "%s must be a struct: %v", what, err)
	}
	for iter.Next() {
		key := iter.Selector().Unquoted()
		if !slices.Contains(allowed, key) {
			return d.errorAt(iter.Value(), ErrCodeLoadFailed, "%s: unknown field %q (allowed: %s)",
				what, key, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func field(v cue.Value, name string) (cue.Value, bool) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	return f, f.Exists()
}

func (d cueDecoder) stringField(v cue.Value, name string) (string, error) {
	f, ok := field(v, name)
	if !ok {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", d.errorAt(f, ErrCodeLoadFailed, "%s must be a string: %v", name, err)
	}
	return s, nil
}

func (d cueDecoder) boolField(v cue.Value, name string) (bool, error) {
	f, ok := field(v, name)
	if !ok {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, d.errorAt(f, ErrCodeLoadFailed, "%s must be a bool: %v", name, err)
	}
	return b, nil
}

func (d cueDecoder) list(v cue.Value, name string) ([]cue.Value, error) {
	f, ok := field(v, name)
	if !ok {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, d.errorAt(f, ErrCodeLoadFailed, "%s must be a list: %v", name, err)
	}
	var out []cue.Value
	for iter.Next() {
		out = append(out, iter.Value())
	}
	return out, nil
}

func (d cueDecoder) document(v cue.Value) (*Document, error) {
	if err := d.checkKeys(v, "document", cueDocumentKeys); err != nil {
		return nil, err
	}
	baseURL, err := d.stringField(v, "base_url")
	if err != nil {
		return nil, err
	}
	flows, err := d.list(v, "flows")
	if err != nil {
		return nil, err
	}

	doc := &Document{
		File:    d.file,
		Format:  FormatCUE,
		BaseURL: baseURL,
		Flows:   make([]FlowSpec, 0, len(flows)),
	}
	for _, fv := range flows {
		fs, err := d.flow(fv)
		if err != nil {
			return nil, err
		}
		doc.Flows = append(doc.Flows, fs)
	}
	return doc, nil
}

func (d cueDecoder) flow(v cue.Value) (FlowSpec, error) {
	var fs FlowSpec
	if err := d.checkKeys(v, "flow", cueFlowKeys); err != nil {
		return fs, err
	}

	var err error
	if fs.Name, err = d.stringField(v, "name"); err != nil {
		return fs, err
	}
	if fs.Draft, err = d.boolField(v, "draft"); err != nil {
		return fs, err
	}
	if fs.DraftReason, err = d.stringField(v, "draft_reason"); err != nil {
		return fs, err
	}
	fs.Draft = fs.Draft || fs.DraftReason != ""

	tags, err := d.list(v, "tags")
	if err != nil {
		return fs, err
	}
	for _, t := range tags {
		s, err := t.String()
		if err != nil {
			return fs, d.errorAt(t, ErrCodeLoadFailed, "tags must be strings: %v", err)
		}
		fs.Tags = append(fs.Tags, s)
	}

	steps, err := d.list(v, "steps")
	if err != nil {
		return fs, err
	}
	for _, sv := range steps {
		step, err := d.step(sv)
		if err != nil {
			return fs, err
		}
		fs.Steps = append(fs.Steps, step)
	}
	return fs, nil
}

func (d cueDecoder) step(v cue.Value) (StepSpec, error) {
	var s StepSpec
	if err := d.checkKeys(v, "step", cueStepKeys); err != nil {
		return s, err
	}

	var err error
	if s.Name, err = d.stringField(v, "name"); err != nil {
		return s, err
	}
	if s.Bearer, err = d.stringField(v, "bearer"); err != nil {
		return s, err
	}
	if s.ClearAuth, err = d.boolField(v, "clear_auth"); err != nil {
		return s, err
	}

	if vars, ok := field(v, "vars"); ok {
		iter, err := vars.Fields()
		if err != nil {
			return s, d.errorAt(vars, ErrCodeLoadFailed, "vars must be a struct: %v", err)
		}
		for iter.Next() {
			val, err := valueFromCUE(iter.Value())
			if err != nil {
				return s, fromDecodeError(d.file, ErrCodeVariable, err)
			}
			s.Vars = append(s.Vars, Var{Name: iter.Selector().Unquoted(), Value: val})
		}
	}

	if rv, ok := field(v, "request"); ok {
		if s.Request, err = d.request(rv); err != nil {
			return s, err
		}
	}
	if ev, ok := field(v, "expect"); ok {
		if s.Expect, err = d.expect(ev); err != nil {
			return s, err
		}
	}

	if cv, ok := field(v, "capture"); ok {
		iter, err := cv.Fields()
		if err != nil {
			return s, d.errorAt(cv, ErrCodeCapture, "capture must be a struct: %v", err)
		}
		for iter.Next() {
			name := iter.Selector().Unquoted()
			path, err := iter.Value().String()
			if err != nil {
				return s, d.errorAt(iter.Value(), ErrCodeCapture, "capture %s: path must be a string", name)
			}
			s.Capture = append(s.Capture, Capture{Var: name, Path: path})
		}
	}
	return s, nil
}

func (d cueDecoder) request(v cue.Value) (*RequestSpec, error) {
	if err := d.checkKeys(v, "request", cueRequestKeys); err != nil {
		return nil, err
	}
	method, err := d.stringField(v, "method")
	if err != nil {
		return nil, err
	}
	path, err := d.stringField(v, "path")
	if err != nil {
		return nil, err
	}
	req := &RequestSpec{Method: strings.ToUpper(method), Path: path}

	if hv, ok := field(v, "headers"); ok {
		req.Headers = make(map[string]string)
		iter, err := hv.Fields()
		if err != nil {
			return nil, d.errorAt(hv, ErrCodeLoadFailed, "headers must be a struct: %v", err)
		}
		for iter.Next() {
			name := iter.Selector().Unquoted()
			s, err := iter.Value().String()
			if err != nil {
				return nil, d.errorAt(iter.Value(), ErrCodeLoadFailed, "header %s must be a string", name)
			}
			req.Headers[name] = s
		}
	}

	if bv, ok := field(v, "body"); ok {
		body, err := valueFromCUE(bv)
		if err != nil {
			return nil, fromDecodeError(d.file, ErrCodeLoadFailed, err)
		}
		req.Body = body
	}
	return req, nil
}

func (d cueDecoder) expect(v cue.Value) (*ExpectSpec, error) {
	if err := d.checkKeys(v, "expect", cueExpectKeys); err != nil {
		return nil, err
	}
	exp := &ExpectSpec{}

	if sv, ok := field(v, "status"); ok {
		n, err := sv.Int64()
		if err != nil {
			return nil, d.errorAt(sv, ErrCodeStatus, "status must be an integer: %v", err)
		}
		exp.Status = int(n)
	}
	if dv, ok := field(v, "depth"); ok {
		n, err := dv.Int64()
		if err != nil {
			return nil, d.errorAt(dv, ErrCodeDepth, "depth must be an integer: %v", err)
		}
		depth := int(n)
		exp.Depth = &depth
	}
	if bv, ok := field(v, "body"); ok {
		p, err := match.FromCUE(bv)
		if err != nil {
			return nil, fromDecodeError(d.file, ErrCodePattern, err)
		}
		exp.Body = &p
	}
	return exp, nil
}

// valueFromCUE converts a fully concrete CUE value into a value.
func valueFromCUE(v cue.Value) (ir.Value, error) {
	if !v.IsConcrete() {
		pos := v.Pos()
		return nil, &match.DecodeError{Line: pos.Line(), Column: pos.Column(),
			Message: "value must be concrete; types are only allowed under expect.body"}
	}
	switch v.Kind() {
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		arr := ir.Array{}
		for iter.Next() {
			item, err := valueFromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		obj := ir.Object{}
		for iter.Next() {
			item, err := valueFromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Selector().Unquoted()] = item
		}
		return obj, nil
	default:
		return match.ScalarFromCUE(v)
	}
}
