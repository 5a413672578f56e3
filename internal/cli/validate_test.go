package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestValidateCommand_Flags(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{})
	assert.Equal(t, "validate", cmd.Use)

	patternFlag := cmd.Flags().Lookup("pattern")
	require.NotNil(t, patternFlag)
	assert.Equal(t, "p", patternFlag.Shorthand)
}

func TestValidate_Text(t *testing.T) {
	dir := t.TempDir()
	writeFlowFile(t, dir, "users.krepko.yaml", usersFlow)
	pattern := writeFlowFile(t, dir, "posts.krepko.yaml", postsFlow)

	res := execute(t, nil, "validate", "-p", pattern)

	assert.Equal(t, ExitSuccess, res.Code, res.Stdout)
	assert.Contains(t, res.Stdout, "✓ All flow files valid: 2 file(s), 2 flow(s), 3 step(s)")
}

func TestValidate_JSON(t *testing.T) {
	pattern := writeFlowFile(t, t.TempDir(), "users.krepko.yaml", usersFlow)

	res := execute(t, nil, "validate", "--format", "json", "-p", pattern)

	require.Equal(t, ExitSuccess, res.Code, res.Stdout)
	assert.JSONEq(t, `{"status":"ok","data":{"valid":true,"files":1,"flows":1,"steps":2}}`, res.Stdout)
}

func TestValidate_SendsNoRequests(t *testing.T) {
	srv := usersServer(t)
	t.Setenv("KREPKO_BASE_URL", srv.URL)
	pattern := writeFlowFile(t, t.TempDir(), "users.krepko.yaml", usersFlow)

	res := execute(t, nil, "validate", "-p", pattern)

	assert.Equal(t, ExitSuccess, res.Code, res.Stdout)
	assert.Empty(t, srv.Requests())
}

func TestValidate_InvalidFile(t *testing.T) {
	bad := `
flows:
  - name: Bad
    steps:
      - name: Teapot
        request:
          method: GET
          path: /x
        expect:
          status: 999
`
	pattern := writeFlowFile(t, t.TempDir(), "bad.krepko.yaml", bad)

	res := execute(t, nil, "validate", "--format", "json", "-p", pattern)

	assert.Equal(t, ExitCommandError, res.Code)
	assert.Equal(t, "E113", gjson.Get(res.Stdout, "error.code").String())
	assert.Equal(t, "E113", gjson.Get(res.Stdout, "error.details.0.code").String())
}

func TestValidate_NoFiles(t *testing.T) {
	res := execute(t, nil, "validate", "-p", "no-such-dir/*.krepko.yaml")

	assert.Equal(t, ExitCommandError, res.Code)
	assert.Contains(t, res.Stdout, "Error [E003]: no flow files found matching pattern: no-such-dir/*.krepko.yaml")
}

func TestValidate_NoFlows(t *testing.T) {
	pattern := writeFlowFile(t, t.TempDir(), "empty.krepko.yaml", "base_url: http://x.test\n")

	res := execute(t, nil, "validate", "-p", pattern)

	assert.Equal(t, ExitCommandError, res.Code)
	assert.Contains(t, res.Stdout, "Error [E100]: no flows registered")
}

func TestValidate_RejectsRunFlags(t *testing.T) {
	res := execute(t, nil, "validate", "--mode", "strict")
	assert.Equal(t, ExitCommandError, res.Code)
	assert.Contains(t, res.Stderr, "unknown flag: --mode")
}
