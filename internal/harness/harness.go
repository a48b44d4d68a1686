package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/altintasutku/library-management/internal/engine"
	"github.com/altintasutku/library-management/internal/library"
	"github.com/altintasutku/library-management/internal/store"
	"github.com/altintasutku/library-management/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and operation ids.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
	seq    int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh database file that is removed afterwards.
//
// Execution flow:
// 1. Create a fresh database with a StepClock and sequential op ids
// 2. Execute setup steps (each must succeed)
// 3. Execute flow steps and compare outcomes with expect clauses
// 4. Evaluate assertions against the trace and the database
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "libcat-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h, err := newHarness(ctx, filepath.Join(dir, "scenario.db"), scenario.Name)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Store:  h.store,
		Engine: h.engine,
		Ctx:    ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newHarness(ctx context.Context, path, name string) (*Harness, error) {
	clock := testutil.NewStepClock(testutil.DefaultEpoch, time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	st, err := store.Open(ctx, path, store.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	eng, err := engine.NewFromStore(st,
		engine.WithLogger(logger),
		engine.WithIDGenerator(testutil.NewSequenceIDGenerator(name)),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return &Harness{
		store:  st,
		engine: eng,
		logger: logger,
	}, nil
}

func (h *Harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// outcome is the result of one traced operation.
type outcome struct {
	Case    string
	Result  any
	Summary string
}

// invoke runs one operation and records its invocation and completion.
// Rejections by the engine are outcomes; argument and storage failures are
// returned as errors.
func (h *Harness) invoke(ctx context.Context, action string, args map[string]any, result *Result) (outcome, error) {
	op, ok := operations[action]
	if !ok {
		return outcome{}, fmt.Errorf("unknown action %q", action)
	}

	result.AddInvocationTrace(action, args, invocationSummary(action, args), h.nextSeq())

	value, summary, err := op(ctx, h.engine, args)
	var out outcome
	switch {
	case err == nil:
		resultJSON, convErr := resultValue(value)
		if convErr != nil {
			return outcome{}, fmt.Errorf("%s: convert result: %w", action, convErr)
		}
		out = outcome{Case: CaseSuccess, Result: resultJSON, Summary: CaseSuccess + " " + summary}
	case validCases[string(library.KindOf(err))]:
		var le *library.Error
		errors.As(err, &le)
		out = outcome{Case: string(le.Kind), Summary: fmt.Sprintf("%s %q", le.Kind, le.Message)}
	default:
		return outcome{}, fmt.Errorf("%s: %w", action, err)
	}

	result.AddCompletionTrace(action, out.Case, out.Result, out.Summary, h.nextSeq())
	return out, nil
}

// executeSetup runs all setup steps. Setup steps must succeed.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		out, err := h.invoke(ctx, step.Action, step.Args, result)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if out.Case != CaseSuccess {
			return fmt.Errorf("setup step %d: %s completed with %s", i, step.Action, out.Summary)
		}

		h.logger.Debug("setup step completed",
			"step", i,
			"action", step.Action,
		)
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses. A mismatch
// is recorded on result and the flow continues.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		out, err := h.invoke(ctx, step.Invoke, step.Args, result)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		expectedCase := CaseSuccess
		if step.Expect != nil {
			expectedCase = step.Expect.Case
		}

		if out.Case != expectedCase {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected case %s, got %s", i, step.Invoke, expectedCase, out.Summary))
			continue
		}

		if step.Expect != nil && step.Expect.Result != nil {
			for _, mismatch := range matchResult(out.Result, step.Expect.Result) {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Invoke, mismatch))
			}
		}

		h.logger.Debug("flow step completed",
			"step", i,
			"action", step.Invoke,
			"output_case", out.Case,
		)
	}

	return nil
}
