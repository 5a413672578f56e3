// Package krepko is the Go surface for declaring contract flows.
//
// Flows are declared against a Registry and run by Main, which behaves
// exactly like the krepko binary: the same flags, config file, reporters and
// exit codes. Flows declared in Go run before any discovered flow files.
//
//	func main() {
//	    reg := krepko.NewRegistry()
//	    api := krepko.New(reg, "http://localhost:9000")
//
//	    api.Flow("Auth").Tags("critical", "auth").
//	        Do("login", func(ctx context.Context, c *krepko.Context) error {
//	            res, err := c.Post(ctx, "/auth", map[string]any{"phone": "+79999999999"})
//	            if err != nil {
//	                return err
//	            }
//	            res.MustStatus(200).MustBody(krepko.Object(
//	                krepko.F("token", krepko.AnyString()),
//	            ))
//	            token, _ := res.Field("token")
//	            c.Set("token", token)
//	            c.Bearer(c.String("token"))
//	            return nil
//	        })
//
//	    os.Exit(krepko.Main(context.Background(), reg, os.Args[1:]))
//	}
package krepko

import (
	"context"

	"github.com/svintsoff78/krepko/internal/cli"
	"github.com/svintsoff78/krepko/internal/flow"
	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/match"
)

type (
	// Registry collects flows in declaration order.
	Registry = flow.Registry
	// Target declares flows that share a base URL.
	Target = flow.Target
	// Flow is an ordered list of steps.
	Flow = flow.Flow
	// Context is the state shared by the steps of one flow run.
	Context = flow.Context
	// Response is the result of a request made through a Context.
	Response = flow.Response
	// StepFunc is the body of a step.
	StepFunc = flow.StepFunc
	// RequestOption configures a single request.
	RequestOption = flow.RequestOption
	// ExpectOption configures a body assertion.
	ExpectOption = flow.ExpectOption

	// Pattern is the expected shape of a response body.
	Pattern = match.Pattern
	// Field is one key of an object pattern.
	Field = match.Field

	// Value is a decoded JSON value.
	Value = ir.Value

	// StatusMismatchError reports an unexpected HTTP status.
	StatusMismatchError = flow.StatusMismatchError
	// BodyMismatchError reports the first place a body differs from its pattern.
	BodyMismatchError = flow.BodyMismatchError
)

// Any matches any defined value.
func Any() Pattern { return match.Any() }

// AnyString matches any string.
func AnyString() Pattern { return match.AnyString() }

// AnyNumber matches any number.
func AnyNumber() Pattern { return match.AnyNumber() }

// AnyBoolean matches true or false.
func AnyBoolean() Pattern { return match.AnyBoolean() }

// AnyArray matches any array.
func AnyArray() Pattern { return match.AnyArray() }

// AnyObject matches any object.
func AnyObject() Pattern { return match.AnyObject() }

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return flow.NewRegistry()
}

// New returns a declaration handle for flows against baseURL. An empty
// baseURL defers to the --base-url flag or its configured value.
func New(reg *Registry, baseURL string) *Target {
	return reg.Target(baseURL)
}

// F pairs an object key with its pattern.
func F(key string, p Pattern) Field { return match.F(key, p) }

// Object matches an object containing at least the given keys.
func Object(fields ...Field) Pattern { return match.Object(fields...) }

// Items matches an array element by element.
func Items(items ...Pattern) Pattern { return match.Items(items...) }

// ArrayOf matches an array whose every element matches item.
func ArrayOf(item Pattern) Pattern { return match.ArrayOf(item) }

// ArrayContaining matches an array that has, for each pattern, some element
// matching it.
func ArrayContaining(items ...Pattern) Pattern { return match.ArrayContaining(items...) }

// Exact matches a literal value. v is converted with the same rules as a
// decoded JSON body; Exact panics when v has no JSON representation.
func Exact(v any) Pattern {
	value, err := ir.FromAny(v)
	if err != nil {
		panic(err)
	}
	return match.Exact(value)
}

// WithBody sets the JSON request body.
func WithBody(v any) RequestOption { return flow.WithBody(v) }

// WithHeader sets one request header.
func WithHeader(key, value string) RequestOption { return flow.WithHeader(key, value) }

// WithHeaders sets several request headers.
func WithHeaders(headers map[string]string) RequestOption { return flow.WithHeaders(headers) }

// WithDepth limits how deep a body assertion descends.
func WithDepth(depth int) ExpectOption { return flow.WithDepth(depth) }

// Main runs the krepko command line with reg's flows and returns the process
// exit code.
func Main(ctx context.Context, reg *Registry, args []string) int {
	cmd := cli.NewRootCommandWithOptions(&cli.RootOptions{Registry: reg})
	cmd.SetArgs(args)
	return cli.Execute(ctx, cmd)
}
