package cli

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/svintsoff78/krepko/internal/flow"
	"github.com/svintsoff78/krepko/internal/match"
	"github.com/svintsoff78/krepko/internal/testutil"
)

const usersFlow = `
flows:
  - name: Users
    tags: [users, smoke]
    steps:
      - name: Create
        request:
          method: POST
          path: /users
          body:
            name: Ann
        expect:
          status: 201
          body:
            id: !number
            name: Ann
        capture:
          user_id: id
      - name: Fetch
        request:
          method: GET
          path: /users/${user_id}
        expect:
          status: 200
          body:
            id: "${user_id}"
`

const postsFlow = `
flows:
  - name: Posts
    tags: [posts]
    steps:
      - name: List
        request:
          method: GET
          path: /posts
        expect:
          status: 200
          body: !arrayOf
            title: !string
`

const draftFlow = `
flows:
  - name: Billing
    draft_reason: waiting for backend
    steps:
      - name: Invoices
        request:
          method: GET
          path: /invoices
        expect:
          status: 200
`

func usersServer(t *testing.T) *testutil.Server {
	srv := testutil.NewServer(t)
	srv.JSON(http.MethodPost, "/users", http.StatusCreated, map[string]any{"id": 7, "name": "Ann"})
	srv.JSON(http.MethodGet, "/users/7", http.StatusOK, map[string]any{"id": 7, "name": "Ann"})
	srv.JSON(http.MethodGet, "/posts", http.StatusOK, []any{
		map[string]any{"title": "first"},
		map[string]any{"title": "second"},
	})
	srv.JSON(http.MethodGet, "/invoices", http.StatusOK, []any{})
	return srv
}

func TestRun_Passing(t *testing.T) {
	srv := usersServer(t)
	pattern := writeFlowFile(t, t.TempDir(), "users.krepko.yaml", usersFlow)

	res := execute(t, nil, "-p", pattern, "-b", srv.URL)

	assert.Equal(t, ExitSuccess, res.Code, res.Stdout)
	assert.Contains(t, res.Stdout, "Krepko v"+Version)
	assert.Contains(t, res.Stdout, "Base URL: "+srv.URL)
	assert.Contains(t, res.Stdout, "Flow: Users")
	assert.Contains(t, res.Stdout, "✓ Create")
	assert.Contains(t, res.Stdout, "✓ Fetch")
	assert.Contains(t, res.Stdout, "✓ 1 flow passed")
	assert.Contains(t, res.Stdout, "✓ Krepko держит ваш API")
	assert.Len(t, srv.Requests(), 2)
}

func TestRun_ExplicitSubcommand(t *testing.T) {
	srv := usersServer(t)
	pattern := writeFlowFile(t, t.TempDir(), "users.krepko.yaml", usersFlow)

	res := execute(t, nil, "run", "-p", pattern, "-b", srv.URL)

	assert.Equal(t, ExitSuccess, res.Code, res.Stdout)
	assert.Contains(t, res.Stdout, "Flow: Users")
}

func TestRun_StatusMismatch(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.JSON(http.MethodPost, "/users", http.StatusOK, map[string]any{"id": 7, "name": "Ann"})
	pattern := writeFlowFile(t, t.TempDir(), "users.krepko.yaml", usersFlow)

	res := execute(t, nil, "-p", pattern, "-b", srv.URL)

	assert.Equal(t, ExitFailure, res.Code)
	assert.Contains(t, res.Stdout, "✗ Create")
	assert.Contains(t, res.Stdout, "Expected status 201, received 200")
	assert.Contains(t, res.Stdout, "✗ 1 flow failed")
	assert.Contains(t, res.Stdout, "✗ Contract violations detected")
	assert.NotContains(t, res.Stdout, "Fetch")
	assert.Len(t, srv.Requests(), 1, "flow stops at the first failing step")
}

func TestRun_NoFiles(t *testing.T) {
	pattern := "no-such-dir/**/*.krepko.yaml"

	res := execute(t, nil, "-p", pattern)

	assert.Equal(t, ExitSuccess, res.Code)
	assert.Contains(t, res.Stdout, "No flow files found matching pattern: "+pattern)
	assert.Contains(t, res.Stdout, "auth.krepko.yaml")
}

func TestRun_NoFlows(t *testing.T) {
	pattern := writeFlowFile(t, t.TempDir(), "empty.krepko.yaml", "base_url: http://x.test\n")

	res := execute(t, nil, "-p", pattern)

	assert.Equal(t, ExitSuccess, res.Code)
	assert.Contains(t, res.Stdout, "No flows registered")
}

func TestRun_LoadErrors(t *testing.T) {
	bad := `
flows:
  - name: Bad
    steps:
      - name: Trace
        request:
          method: TRACE
          path: /x
`
	pattern := writeFlowFile(t, t.TempDir(), "bad.krepko.yaml", bad)

	res := execute(t, nil, "-p", pattern)

	assert.Equal(t, ExitCommandError, res.Code)
	assert.Contains(t, res.Stdout, "Error [E111]: failed to load flow files (1 error(s))")
	assert.Contains(t, res.Stdout, "bad.krepko.yaml")
}

func TestRun_LoadErrorsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFlowFile(t, dir, "a.krepko.yaml", "flows:\n  - name: A\n")
	pattern := writeFlowFile(t, dir, "b.krepko.yaml", "flows:\n  - steps:\n      - name: s\n        request: {method: GET, path: /x}\n")

	res := execute(t, nil, "--format", "json", "-p", pattern)

	require.Equal(t, ExitCommandError, res.Code)
	require.True(t, gjson.Valid(res.Stdout), res.Stdout)
	assert.Equal(t, "error", gjson.Get(res.Stdout, "status").String())
	assert.Equal(t, "failed to load flow files (2 error(s))", gjson.Get(res.Stdout, "error.message").String())
	details := gjson.Get(res.Stdout, "error.details").Array()
	require.Len(t, details, 2)
	assert.Equal(t, "E102", details[0].Get("code").String())
	assert.Contains(t, details[0].Get("file").String(), "a.krepko.yaml")
	assert.Equal(t, "E101", details[1].Get("code").String())
}

func TestRun_JSONOutput(t *testing.T) {
	srv := usersServer(t)
	pattern := writeFlowFile(t, t.TempDir(), "users.krepko.yaml", usersFlow)

	res := execute(t, nil, "--format", "json", "-p", pattern, "-b", srv.URL)

	require.Equal(t, ExitSuccess, res.Code, res.Stdout)
	require.True(t, gjson.Valid(res.Stdout), res.Stdout)
	assert.Equal(t, "ok", gjson.Get(res.Stdout, "status").String())
	assert.Equal(t, "run-1", gjson.Get(res.Stdout, "run_id").String())
	assert.Equal(t, int64(1), gjson.Get(res.Stdout, "data.passed").Int())
	assert.Equal(t, "ci", gjson.Get(res.Stdout, "data.mode").String())
	assert.Equal(t, "Users", gjson.Get(res.Stdout, "data.flows.0.name").String())
	assert.Equal(t, int64(2), gjson.Get(res.Stdout, "data.flows.0.steps.#").Int())
}

func TestRun_TagFilter(t *testing.T) {
	srv := usersServer(t)
	dir := t.TempDir()
	writeFlowFile(t, dir, "users.krepko.yaml", usersFlow)
	pattern := writeFlowFile(t, dir, "nested/posts.krepko.yaml", postsFlow)

	res := execute(t, nil, "-p", pattern, "-b", srv.URL, "-t", "posts")

	assert.Equal(t, ExitSuccess, res.Code, res.Stdout)
	assert.Contains(t, res.Stdout, "Flow: Posts")
	assert.NotContains(t, res.Stdout, "Flow: Users")
	require.Len(t, srv.Requests(), 1)
	assert.Equal(t, "/posts", srv.Requests()[0].Path)
}

func TestRun_Modes(t *testing.T) {
	srv := usersServer(t)
	pattern := writeFlowFile(t, t.TempDir(), "billing.krepko.yaml", draftFlow)

	tests := []struct {
		mode string
		want int
	}{
		{"dev", ExitSuccess},
		{"ci", ExitSuccess},
		{"strict", ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			res := execute(t, nil, "-p", pattern, "-b", srv.URL, "-m", tt.mode)
			assert.Equal(t, tt.want, res.Code, res.Stdout)
			assert.Contains(t, res.Stdout, "Flow: Billing [DRAFT]")
			assert.Contains(t, res.Stdout, "draft: waiting for backend")
		})
	}
}

func TestRun_RegistryFlows(t *testing.T) {
	srv := usersServer(t)
	reg := flow.NewRegistry()
	reg.Add(flow.New("Go Posts", "").Do("List", func(ctx context.Context, c *flow.Context) error {
		resp, err := c.Get(ctx, "/posts")
		if err != nil {
			return err
		}
		if err := resp.ExpectStatus(http.StatusOK); err != nil {
			return err
		}
		return resp.ExpectBody(match.ArrayOf(match.Object(match.F("title", match.AnyString()))))
	}))
	pattern := writeFlowFile(t, t.TempDir(), "users.krepko.yaml", usersFlow)

	res := execute(t, &RootOptions{Registry: reg}, "-p", pattern, "-b", srv.URL)

	require.Equal(t, ExitSuccess, res.Code, res.Stdout)
	goIdx := strings.Index(res.Stdout, "Flow: Go Posts")
	fileIdx := strings.Index(res.Stdout, "Flow: Users")
	require.GreaterOrEqual(t, goIdx, 0)
	require.GreaterOrEqual(t, fileIdx, 0)
	assert.Less(t, goIdx, fileIdx, "Go flows run before file flows")
	assert.Contains(t, res.Stdout, "Base URL: "+srv.URL)
}

func TestRun_RegistryOnly(t *testing.T) {
	srv := usersServer(t)
	reg := flow.NewRegistry()
	reg.Add(flow.New("Ping", srv.URL).Do("Invoices", func(ctx context.Context, c *flow.Context) error {
		resp, err := c.Get(ctx, "/invoices")
		if err != nil {
			return err
		}
		return resp.ExpectStatus(http.StatusOK)
	}))

	res := execute(t, &RootOptions{Registry: reg}, "-p", "no-such-dir/*.krepko.yaml")

	assert.Equal(t, ExitSuccess, res.Code, res.Stdout)
	assert.Contains(t, res.Stdout, "Flow: Ping")
}

func TestDisplayBaseURL(t *testing.T) {
	flows := []*flow.Flow{
		flow.New("a", "http://a.test"),
		flow.New("b", ""),
		flow.New("c", "http://a.test"),
	}
	assert.Equal(t, "http://a.test, http://fallback.test", displayBaseURL(flows, "http://fallback.test"))
	assert.Equal(t, "http://fallback.test", displayBaseURL(nil, "http://fallback.test"))
}
