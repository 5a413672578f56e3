package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/svintsoff78/krepko/internal/flow"
	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/match"
	"github.com/svintsoff78/krepko/internal/runner"
)

const ms = time.Millisecond

var testOptions = Options{Version: "0.1.0", BaseURL: "http://api.test", NoColor: true}

func authResult() flow.FlowResult {
	return flow.FlowResult{
		Name:     "Auth",
		Tags:     []string{"critical", "auth"},
		Passed:   true,
		Duration: 42 * ms,
		Steps: []flow.StepResult{
			{Name: "Login", Passed: true, Duration: 12 * ms},
			{Name: "Profile", Passed: true, Duration: 30 * ms},
		},
	}
}

func bodyMismatch() error {
	return &flow.BodyMismatchError{Mismatch: &match.Mismatch{
		Path:     "user.id",
		Expected: "number",
		Received: ir.String("7"),
		Message:  `Body mismatch at "user.id": expected number, received "7"`,
	}}
}

func passingSummary() *runner.Summary {
	return &runner.Summary{
		RunID:    "run-1",
		Mode:     runner.ModeCI,
		Flows:    []flow.FlowResult{authResult()},
		Passed:   1,
		Duration: 42 * ms,
		ExitCode: runner.ExitPass,
	}
}

func failingSummary() *runner.Summary {
	return &runner.Summary{
		RunID: "run-1",
		Mode:  runner.ModeCI,
		Flows: []flow.FlowResult{
			authResult(),
			{
				Name:     "Orders",
				Duration: 1500 * ms,
				Steps: []flow.StepResult{
					{Name: "Create", Passed: true, Duration: 250 * ms},
					{Name: "Fetch", Duration: 1250 * ms, Err: &flow.StatusMismatchError{
						Expected: 200,
						Received: 404,
						Body:     ir.Object{"error": ir.String("not found")},
					}},
				},
			},
			{
				Name:     "Profile",
				Duration: 5 * ms,
				Steps:    []flow.StepResult{{Name: "Check", Duration: 5 * ms, Err: bodyMismatch()}},
			},
			{
				Name:        "Payments",
				IsDraft:     true,
				DraftReason: "waiting for backend",
				Duration:    3 * ms,
				Steps: []flow.StepResult{{Name: "Charge", Duration: 3 * ms,
					Err: errors.New("POST http://api.test/pay: connection refused")}},
			},
		},
		Passed:   1,
		Failed:   2,
		Draft:    1,
		Duration: 1550 * ms,
		ExitCode: runner.ExitFail,
	}
}

func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

func TestPretty_Passing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPretty(testOptions).Report(&buf, passingSummary()))
	assertGolden(t, "pretty_passing", buf.Bytes())
}

func TestPretty_Failures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPretty(testOptions).Report(&buf, failingSummary()))
	assertGolden(t, "pretty_failures", buf.Bytes())
}

func TestPretty_Interrupted(t *testing.T) {
	s := passingSummary()
	s.Interrupted = true
	s.ExitCode = runner.ExitFail

	var buf bytes.Buffer
	require.NoError(t, NewPretty(testOptions).Report(&buf, s))
	assert.Contains(t, buf.String(), "! run interrupted before all flows started\n")
	assert.Contains(t, buf.String(), "✗ Contract violations detected\n")
}

func TestJSON_Report(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSON(testOptions).Report(&buf, failingSummary()))
	out := buf.Bytes()
	require.True(t, gjson.ValidBytes(out))

	assert.Equal(t, "error", gjson.GetBytes(out, "status").String())
	assert.Equal(t, "run-1", gjson.GetBytes(out, "run_id").String())
	assert.Equal(t, ErrCodeContractViolation, gjson.GetBytes(out, "error.code").String())

	data := gjson.GetBytes(out, "data")
	assert.Equal(t, "0.1.0", data.Get("version").String())
	assert.Equal(t, "ci", data.Get("mode").String())
	assert.Equal(t, int64(4), data.Get("total_flows").Int())
	assert.Equal(t, int64(6), data.Get("total_steps").Int())
	assert.Equal(t, int64(1550), data.Get("duration_ms").Int())
	assert.Equal(t, int64(4), data.Get("flows.#").Int())
	assert.Equal(t, "[]", data.Get("flows.1.tags").Raw)
	assert.True(t, data.Get("flows.3.draft").Bool())
	assert.False(t, data.Get("flows.0.steps.0").Get("failure").Exists())

	fetch := data.Get("flows.1.steps.1")
	assert.False(t, fetch.Get("passed").Bool())
	assert.JSONEq(t, `{
		"kind": "status",
		"message": "Expected status 200, received 404",
		"expected": 200,
		"received": 404,
		"body": {"error": "not found"}
	}`, fetch.Get("failure").Raw)

	assert.JSONEq(t, `{
		"kind": "body",
		"message": "Body mismatch at \"user.id\": expected number, received \"7\"",
		"path": "user.id",
		"expected": "number",
		"received": "\"7\""
	}`, data.Get("flows.2.steps.0.failure").Raw)
}

func TestJSON_Passing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSON(testOptions).Report(&buf, passingSummary()))

	var env map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "ok", env["status"])
	assert.NotContains(t, env, "error")
}

func TestDescribeFailure(t *testing.T) {
	assert.Nil(t, DescribeFailure(nil))

	wrapped := fmt.Errorf("step: %w", &flow.StatusMismatchError{Expected: 201, Received: 500})
	f := DescribeFailure(wrapped)
	assert.Equal(t, "status", f.Kind)
	assert.Equal(t, 201, f.Expected)
	assert.Equal(t, 500, f.Received)
	assert.Equal(t, "step: Expected status 201, received 500", f.Message)

	f = DescribeFailure(&flow.BodyMismatchError{Mismatch: &match.Mismatch{Path: "a", Expected: "string", Message: "m"}})
	assert.Equal(t, "undefined", f.Received)

	f = DescribeFailure(fmt.Errorf("login: %w", &flow.BodyMismatchError{Mismatch: &match.Mismatch{Path: "user.id", Expected: "number", Received: ir.String("7"), Message: "m"}}))
	assert.Equal(t, "body", f.Kind)
	assert.Equal(t, "user.id", f.Path)
	assert.Equal(t, `"7"`, f.Received)

	f = DescribeFailure(&flow.StepPanicError{Value: "boom"})
	assert.Equal(t, "panic", f.Kind)
	assert.Equal(t, "step panicked: boom", f.Message)

	f = DescribeFailure(errors.New("GET http://api.test/x: connection refused"))
	assert.Equal(t, "error", f.Kind)
	assert.Nil(t, f.Expected)
	assert.Nil(t, f.Received)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{12 * ms, "12ms"},
		{1500 * time.Microsecond, "2ms"},
		{999 * ms, "999ms"},
		{time.Second, "1.00s"},
		{1250 * ms, "1.25s"},
		{75 * time.Second, "75.00s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestNew(t *testing.T) {
	r, err := New("text", testOptions)
	require.NoError(t, err)
	assert.IsType(t, &Pretty{}, r)

	r, err = New("json", testOptions)
	require.NoError(t, err)
	assert.IsType(t, &JSON{}, r)

	_, err = New("xml", testOptions)
	assert.EqualError(t, err, `invalid format "xml": must be one of [text json]`)
}
