package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenarioYAML = `name: valid
description: "borrow a book"
setup:
  - action: add_book
    args: {title: Dune, author: Frank Herbert, publisher: Chilton, year: 1965}
flow:
  - invoke: borrow
    args: {id: 1, borrower: alice}
    expect:
      case: Success
      result: {borrower_name: alice}
assertions:
  - type: active_loans
    count: 1
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, validScenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "valid", scenario.Name)
	assert.Equal(t, "borrow a book", scenario.Description)
	require.Len(t, scenario.Setup, 1)
	assert.Equal(t, "add_book", scenario.Setup[0].Action)
	assert.Equal(t, 1965, scenario.Setup[0].Args["year"])

	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "borrow", scenario.Flow[0].Invoke)
	require.NotNil(t, scenario.Flow[0].Expect)
	assert.Equal(t, CaseSuccess, scenario.Flow[0].Expect.Case)
	assert.Equal(t, "alice", scenario.Flow[0].Expect.Result["borrower_name"])

	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertActiveLoans, scenario.Assertions[0].Type)
	assert.Equal(t, 1, scenario.Assertions[0].Count)
}

func TestParseScenario_ActiveLoansForBook(t *testing.T) {
	scenario, err := ParseScenario([]byte(`name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: active_loans, book: 2, count: 1}]
`))
	require.NoError(t, err)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, 2, scenario.Assertions[0].Book)
	assert.Equal(t, 1, scenario.Assertions[0].Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "name: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`name: typo
description: d
flow:
  - invoke: list_books
assertion:
  - type: active_loans
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "assertion")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing name",
			yaml: `description: d
flow: [{invoke: list_books}]
assertions: [{type: active_loans}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			yaml: `name: n
flow: [{invoke: list_books}]
assertions: [{type: active_loans}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing flow",
			yaml: `name: n
description: d
assertions: [{type: active_loans}]
`,
			wantErr: "flow list is required",
		},
		{
			name: "missing assertions",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "setup without action",
			yaml: `name: n
description: d
setup: [{args: {id: 1}}]
flow: [{invoke: list_books}]
assertions: [{type: active_loans}]
`,
			wantErr: "setup[0]: action is required",
		},
		{
			name: "unknown setup action",
			yaml: `name: n
description: d
setup: [{action: delete_book}]
flow: [{invoke: list_books}]
assertions: [{type: active_loans}]
`,
			wantErr: `setup[0]: unknown action "delete_book"`,
		},
		{
			name: "flow without invoke",
			yaml: `name: n
description: d
flow: [{args: {id: 1}}]
assertions: [{type: active_loans}]
`,
			wantErr: "flow[0]: invoke is required",
		},
		{
			name: "unknown flow action",
			yaml: `name: n
description: d
flow: [{invoke: renew}]
assertions: [{type: active_loans}]
`,
			wantErr: `flow[0]: unknown action "renew"`,
		},
		{
			name: "expect without case",
			yaml: `name: n
description: d
flow: [{invoke: list_books, expect: {result: {count: 0}}}]
assertions: [{type: active_loans}]
`,
			wantErr: "flow[0].expect: case is required",
		},
		{
			name: "unknown expect case",
			yaml: `name: n
description: d
flow: [{invoke: list_books, expect: {case: Failure}}]
assertions: [{type: active_loans}]
`,
			wantErr: `flow[0].expect: unknown case "Failure"`,
		},
		{
			name: "assertion without type",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{count: 1}]
`,
			wantErr: "assertions[0]: type is required",
		},
		{
			name: "unknown assertion type",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: trace_matches}]
`,
			wantErr: `assertions[0]: unknown assertion type "trace_matches"`,
		},
		{
			name: "trace_contains without action",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: trace_contains}]
`,
			wantErr: "action is required for trace_contains",
		},
		{
			name: "trace_order without actions",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: trace_order}]
`,
			wantErr: "actions list is required for trace_order",
		},
		{
			name: "trace_count negative",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: trace_count, action: list_books, count: -1}]
`,
			wantErr: "count must be non-negative for trace_count",
		},
		{
			name: "trace_count unknown case",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: trace_count, action: borrow, case: LOST, count: 0}]
`,
			wantErr: `assertions[0]: unknown case "LOST"`,
		},
		{
			name: "final_state without table",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: final_state, expect: {title: x}}]
`,
			wantErr: "table is required for final_state",
		},
		{
			name: "final_state without expect",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: final_state, table: BOOKS}]
`,
			wantErr: "expect is required for final_state",
		},
		{
			name: "active_loans negative",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: active_loans, count: -2}]
`,
			wantErr: "count must be non-negative for active_loans",
		},
		{
			name: "active_loans negative book",
			yaml: `name: n
description: d
flow: [{invoke: list_books}]
assertions: [{type: active_loans, book: -1}]
`,
			wantErr: "book must be non-negative for active_loans",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_ErrorCases(t *testing.T) {
	for _, c := range []string{"VALIDATION", "NOT_FOUND", "ALREADY_BORROWED", "NO_ACTIVE_LOAN"} {
		t.Run(c, func(t *testing.T) {
			_, err := ParseScenario([]byte(`name: n
description: d
flow: [{invoke: return, args: {id: 1}, expect: {case: ` + c + `}}]
assertions: [{type: active_loans}]
`))
			assert.NoError(t, err)
		})
	}
}

func TestScenarioFiles_SortedYAMLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yaml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	paths, err := ScenarioFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml")}, paths)
}
