package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kata/internal/store"
)

const goldenScenario = `name: greeting
description: console output ahead of a passing expectation
golden: true
request:
  framework: cw-2
  code: console.log("hello")
  fixture: Test.expect(true)
assertions:
  - type: verdict
    value: passed
`

func TestTestCommand_AllPass(t *testing.T) {
	stdout, _, err := execute(t, "", "test", "../scenario/testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ basic-pass")
	assert.Contains(t, stdout, "✓ mocha-hooks")
	assert.Contains(t, stdout, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommand_Failure(t *testing.T) {
	stdout, _, err := execute(t, "", "test", "../scenario/testdata/failing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ wrong-verdict")
	assert.Contains(t, stdout, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_JSON(t *testing.T) {
	stdout, _, err := execute(t, "", "test", "../scenario/testdata/scenarios", "--filter", "basic-*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	sr := resp.Data.Scenarios[0]
	assert.Equal(t, "basic-pass", sr.Name)
	assert.Equal(t, "run-0001", sr.RunID)
	assert.Equal(t, "passed", sr.Verdict)
}

func TestTestCommand_NoScenarios(t *testing.T) {
	stdout, _, err := execute(t, "", "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", stdout)
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, _, err := execute(t, "", "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_GoldenUpdate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "greeting.yaml", goldenScenario)

	stdout, _, err := execute(t, "", "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "golden file missing")

	stdout, _, err = execute(t, "", "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "(golden updated)")

	data, err := os.ReadFile(filepath.Join(dir, "golden", "greeting.golden"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n<PASSED::>Test Passed\n", string(data))

	_, _, err = execute(t, "", "test", dir)
	require.NoError(t, err)
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "greeting.yaml", goldenScenario)
	writeFile(t, dir, "golden/greeting.golden", "goodbye\n<PASSED::>Test Passed\n")

	stdout, _, err := execute(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "stdout does not match golden file")
}

func TestTestCommand_RecordsRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	_, _, err := execute(t, "", "test", "../scenario/testdata/scenarios", "--db", db)
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ListRuns(t.Context(), store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}
