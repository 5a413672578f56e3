// Package flow executes contract flows.
//
// A Flow is an ordered list of named steps sharing one Context. Run creates a
// fresh Context, executes the steps strictly in declaration order and stops
// at the first step that returns an error or panics. Failures never escape
// the flow: they are recorded in the returned FlowResult.
//
// Steps talk to the service under test through Context.Request and assert on
// the Response with ExpectStatus and ExpectBody, which return typed errors
// (StatusMismatchError, BodyMismatchError). MustStatus and MustBody panic
// with the same errors instead; Run recovers them.
//
// Flows are declared through a Registry:
//
//	reg := flow.NewRegistry()
//	reg.Target("http://localhost:3000").
//	    Flow("Auth").Tags("critical").
//	    Do("login", func(ctx context.Context, c *flow.Context) error {
//	        res, err := c.Post(ctx, "/auth", map[string]any{"phone": "+79999999999"})
//	        if err != nil {
//	            return err
//	        }
//	        return res.ExpectStatus(200)
//	    })
package flow
