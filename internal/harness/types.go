package harness

import (
	"fmt"
	"strings"
)

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// CaseSuccess is the completion case of an operation that returned no error.
const CaseSuccess = "Success"

// TraceEvent is one invocation or completion in a scenario trace.
type TraceEvent struct {
	Type   string         `json:"type"` // "invocation" or "completion"
	Action string         `json:"action"`
	Args   map[string]any `json:"args,omitempty"`
	Case   string         `json:"case,omitempty"`
	Result any            `json:"result,omitempty"`
	Seq    int64          `json:"seq"`

	// Summary is the one-line rendering of the event used in golden files.
	Summary string `json:"-"`
}

// Line renders the event as it appears in a golden trace.
func (e TraceEvent) Line() string {
	verb := "complete"
	if e.Type == EventInvocation {
		verb = "invoke"
	}
	return fmt.Sprintf("%03d %s %s", e.Seq, verb, e.Summary)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains all invocations and completions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(action string, args map[string]any, summary string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventInvocation,
		Action:  action,
		Args:    args,
		Summary: summary,
		Seq:     seq,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(action, outputCase string, result any, summary string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventCompletion,
		Action:  action,
		Case:    outputCase,
		Result:  result,
		Summary: summary,
		Seq:     seq,
	})
}

// Render returns the golden-file text of the trace.
func (r *Result) Render(scenarioName string) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", scenarioName)
	for _, event := range r.Trace {
		buf.WriteString(event.Line())
		buf.WriteByte('\n')
	}
	return []byte(buf.String())
}
