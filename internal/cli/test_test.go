package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shippedScenarios = "../harness/testdata/scenarios"

func TestTestCommand_Passing(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("test", shippedScenarios)
	assert.Equal(t, "2 passed, 0 failed, 2 total\n", out)
}

func TestTestCommand_JSON(t *testing.T) {
	env := newCLIEnv(t)

	var summary struct {
		Total  int `json:"total_scenarios"`
		Passed int `json:"passed"`
		Failed int `json:"failed"`
	}
	resp, err := env.runJSON(&summary, "test", shippedScenarios)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.Zero(t, summary.Failed)
}

func TestTestCommand_Failing(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loan.yaml"), []byte(`name: phantom_loan
description: "expects a loan that was never made"
flow:
  - invoke: active_loans
assertions:
  - type: active_loans
    count: 1
`), 0o644))

	out, _, err := env.run("", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "FAIL phantom_loan: scenario assertions failed")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTestCommand_EmptyDir(t *testing.T) {
	env := newCLIEnv(t)
	assert.Equal(t, "No scenarios found.\n", env.mustRun("test", t.TempDir()))
}

func TestTestCommand_MissingDir(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run("", "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.False(t, IsReported(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}
