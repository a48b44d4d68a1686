package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios_Golden runs every scenario under testdata/scenarios and
// compares its trace with testdata/golden/<name>.golden.
func TestScenarios_Golden(t *testing.T) {
	paths, err := ScenarioFiles(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "scenario name must match its file name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunWithGolden_ExecutionError(t *testing.T) {
	scenario := &Scenario{
		Name:        "unused_golden",
		Description: "setup failure stops before the golden comparison",
		Setup: []ActionStep{
			{Action: "return", Args: map[string]any{"id": 1}},
		},
		Flow:       []FlowStep{{Invoke: "list_books", Args: map[string]any{}}},
		Assertions: []Assertion{{Type: AssertActiveLoans, Count: 0}},
	}

	result, err := RunWithGolden(t, scenario)
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "foundation_loan.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	AssertGolden(t, scenario.Name, result)
}
