package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/match"
)

type yamlDocument struct {
	BaseURL string     `yaml:"base_url"`
	Flows   []yamlFlow `yaml:"flows"`
}

type yamlFlow struct {
	Name        string     `yaml:"name"`
	Tags        []string   `yaml:"tags"`
	Draft       bool       `yaml:"draft"`
	DraftReason string     `yaml:"draft_reason"`
	Steps       []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Name string `yaml:"name"`

	// Vars and Capture stay nodes so their keys keep document order. Node
	// fields must not be pointers: yaml.v3 only captures plain yaml.Node.
	Vars    yaml.Node    `yaml:"vars"`
	Request *yamlRequest `yaml:"request"`
	Expect  *yamlExpect  `yaml:"expect"`
	Capture yaml.Node    `yaml:"capture"`

	Bearer    string `yaml:"bearer"`
	ClearAuth bool   `yaml:"clear_auth"`
}

type yamlRequest struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Headers map[string]string `yaml:"headers"`
	Body    yaml.Node         `yaml:"body"`
}

type yamlExpect struct {
	Status int       `yaml:"status"`
	Body   yaml.Node `yaml:"body"`
	Depth  *int      `yaml:"depth"`
}

// decodeYAML parses a YAML flow file. Unknown keys are rejected.
func decodeYAML(file string, data []byte) (*Document, error) {
	var raw yamlDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newError(ErrCodeLoadFailed, file, "empty flow file")
		}
		if le := tagBeforeIndicator(file, data, err); le != nil {
			return nil, le
		}
		return nil, newError(ErrCodeLoadFailed, file, "parse YAML: %v", err)
	}

	doc := &Document{
		File:    file,
		Format:  FormatYAML,
		BaseURL: raw.BaseURL,
		Flows:   make([]FlowSpec, 0, len(raw.Flows)),
	}
	for _, rf := range raw.Flows {
		fs := FlowSpec{
			Name:        rf.Name,
			Tags:        rf.Tags,
			Draft:       rf.Draft || rf.DraftReason != "",
			DraftReason: rf.DraftReason,
			Steps:       make([]StepSpec, 0, len(rf.Steps)),
		}
		for _, rs := range rf.Steps {
			step, err := yamlStepSpec(file, rs)
			if err != nil {
				return nil, err
			}
			fs.Steps = append(fs.Steps, step)
		}
		doc.Flows = append(doc.Flows, fs)
	}
	return doc, nil
}

// gluedTag finds a pattern tag directly followed by a flow indicator.
var gluedTag = regexp.MustCompile(`!(?:any|string|number|boolean|array|object|arrayOf|arrayContaining)[\]},]`)

// tagBeforeIndicator explains a parse error caused by a tag such as
// "[!string]", which YAML reads as the tag "!string]".
func tagBeforeIndicator(file string, data []byte, err error) *LoadError {
	if !strings.Contains(err.Error(), "did not find expected") {
		return nil
	}
	loc := gluedTag.FindIndex(data)
	if loc == nil {
		return nil
	}
	tag := string(data[loc[0] : loc[1]-1])
	indicator := string(data[loc[1]-1])
	line := 1 + bytes.Count(data[:loc[0]], []byte("\n"))
	column := loc[0] - bytes.LastIndexByte(data[:loc[0]], '\n')
	return &LoadError{
		Code:   ErrCodeLoadFailed,
		File:   file,
		Line:   line,
		Column: column,
		Message: fmt.Sprintf("parse YAML: %v: tag %s is followed directly by %q, write %q",
			err, tag, indicator, tag+" "+indicator),
	}
}

func yamlStepSpec(file string, rs yamlStep) (StepSpec, error) {
	step := StepSpec{
		Name:      rs.Name,
		Bearer:    rs.Bearer,
		ClearAuth: rs.ClearAuth,
	}

	if rs.Vars.Kind != 0 {
		err := eachPair(file, &rs.Vars, "vars", func(key string, value *yaml.Node) error {
			v, err := valueFromYAML(value)
			if err != nil {
				return fromDecodeError(file, ErrCodeVariable, err)
			}
			step.Vars = append(step.Vars, Var{Name: key, Value: v})
			return nil
		})
		if err != nil {
			return StepSpec{}, err
		}
	}

	if rq := rs.Request; rq != nil {
		req := &RequestSpec{
			Method:  strings.ToUpper(rq.Method),
			Path:    rq.Path,
			Headers: rq.Headers,
		}
		if rq.Body.Kind != 0 {
			v, err := valueFromYAML(&rq.Body)
			if err != nil {
				return StepSpec{}, fromDecodeError(file, ErrCodeLoadFailed, err)
			}
			req.Body = v
		}
		step.Request = req
	}

	if ex := rs.Expect; ex != nil {
		exp := &ExpectSpec{Status: ex.Status, Depth: ex.Depth}
		if ex.Body.Kind != 0 {
			p, err := match.FromYAML(&ex.Body)
			if err != nil {
				return StepSpec{}, fromDecodeError(file, ErrCodePattern, err)
			}
			exp.Body = &p
		}
		step.Expect = exp
	}

	if rs.Capture.Kind != 0 {
		err := eachPair(file, &rs.Capture, "capture", func(key string, value *yaml.Node) error {
			if value.Kind != yaml.ScalarNode {
				return &LoadError{Code: ErrCodeCapture, File: file, Line: value.Line, Column: value.Column,
					Message: "capture " + key + ": path must be a string"}
			}
			step.Capture = append(step.Capture, Capture{Var: key, Path: value.Value})
			return nil
		})
		if err != nil {
			return StepSpec{}, err
		}
	}

	return step, nil
}

// eachPair walks a mapping node in document order.
func eachPair(file string, n *yaml.Node, what string, fn func(key string, value *yaml.Node) error) error {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return &LoadError{Code: ErrCodeLoadFailed, File: file, Line: n.Line, Column: n.Column,
			Message: what + " must be a mapping"}
	}
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if seen[key.Value] {
			return &LoadError{Code: ErrCodeLoadFailed, File: file, Line: key.Line, Column: key.Column,
				Message: what + ": duplicate key " + key.Value}
		}
		seen[key.Value] = true
		if err := fn(key.Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// valueFromYAML converts a plain YAML node (no pattern tags) into a value.
func valueFromYAML(n *yaml.Node) (ir.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return ir.Null{}, nil
		}
		return valueFromYAML(n.Content[0])
	case yaml.AliasNode:
		return valueFromYAML(n.Alias)
	}

	if tag := n.ShortTag(); strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!") {
		return nil, &match.DecodeError{Line: n.Line, Column: n.Column,
			Message: "pattern tag " + tag + " is only allowed under expect.body"}
	}

	switch n.Kind {
	case yaml.MappingNode:
		obj := make(ir.Object, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := valueFromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj[n.Content[i].Value] = v
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make(ir.Array, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := valueFromYAML(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	default:
		return match.ScalarFromYAML(n)
	}
}
