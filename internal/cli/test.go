package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/altintasutku/library-management/internal/harness"
)

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run catalog scenarios",
		Long: `Run every YAML scenario of a directory against a fresh, temporary
catalog and check its expectations and assertions. The configured
database is not touched.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing directory, etc.)

Example:
  libcat test ./scenarios
  libcat test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, rootOpts, args[0])
		},
	}
}

func runScenarios(cmd *cobra.Command, opts *RootOptions, dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	result, err := harness.RunDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "run scenarios", err)
	}

	out := newFormatter(cmd, opts)
	if err := out.Success(suiteSummary{result}); err != nil {
		return err
	}
	if result.Failed > 0 {
		exitErr := NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.TotalScenarios))
		exitErr.Reported = true
		return exitErr
	}
	return nil
}

// suiteSummary is the result of test.
type suiteSummary struct {
	*harness.SuiteResult
}

func (s suiteSummary) RenderText(w io.Writer) error {
	if s.TotalScenarios == 0 {
		_, err := fmt.Fprintln(w, "No scenarios found.")
		return err
	}
	for _, f := range s.Failures {
		name := f.Name
		if name == "" {
			name = f.ScenarioPath
		}
		fmt.Fprintf(w, "FAIL %s: %s\n", name, f.Error)
	}
	_, err := fmt.Fprintf(w, "%d passed, %d failed, %d total\n", s.Passed, s.Failed, s.TotalScenarios)
	return err
}
