package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/altintasutku/library-management/internal/engine"
	"github.com/altintasutku/library-management/internal/library"
	"github.com/altintasutku/library-management/internal/querysql"
	"github.com/altintasutku/library-management/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event.Line())
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			if matchArgs(event.Args, assertion.Args) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions first appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)

	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i + 1 // 1-indexed for readability
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action appears exactly the specified number
// of times. With a case, only invocations completing with that case count.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0

	// A completion directly follows its invocation.
	for i, event := range trace {
		if event.Type != EventInvocation || event.Action != assertion.Action {
			continue
		}
		if assertion.Case != "" {
			if i+1 >= len(trace) || trace[i+1].Case != assertion.Case {
				continue
			}
		}
		count++
	}

	if count != assertion.Count {
		what := assertion.Action
		if assertion.Case != "" {
			what = fmt.Sprintf("%s completing with %s", assertion.Action, assertion.Case)
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks that exactly one row of the table matches Where
// and holds the Expect values (subset match). Column names are compared
// case-insensitively.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	where := make(map[string]any, len(assertion.Where))
	for col, v := range assertion.Where {
		where[col] = toSQLValue(v)
	}
	query, args, err := querysql.SelectMatching(assertion.Table, where)
	if err != nil {
		return err
	}

	rows, err := st.DB().QueryxContext(ctx, query, args...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	var matched []map[string]any
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return fmt.Errorf("scan %s: %w", assertion.Table, err)
		}
		matched = append(matched, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read %s: %w", assertion.Table, err)
	}

	desc := formatWhereClause(assertion.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, desc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, desc),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(matched)),
		}
	}

	row := make(map[string]any, len(matched[0]))
	columns := make([]string, 0, len(matched[0]))
	for col, v := range matched[0] {
		row[strings.ToLower(col)] = v
		columns = append(columns, col)
	}
	sort.Strings(columns)

	for _, key := range sortedKeys(assertion.Expect) {
		want := assertion.Expect[key]
		got, ok := row[strings.ToLower(key)]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("column %q", key),
				Actual:   fmt.Sprintf("column %q not present in %v", key, columns),
			}
		}
		if !stateValuesEqual(want, got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v (type %T)", assertion.Table, key, want, want),
				Actual:   fmt.Sprintf("%s.%s = %v (type %T)", assertion.Table, key, got, got),
			}
		}
	}

	return nil
}

// assertActiveLoans checks the number of open loans.
func assertActiveLoans(ctx context.Context, eng *engine.Engine, assertion Assertion) error {
	loans, err := eng.ActiveLoans(ctx)
	if err != nil {
		return fmt.Errorf("list active loans: %w", err)
	}
	if len(loans) != assertion.Count {
		return &AssertionError{
			Type:     AssertActiveLoans,
			Expected: fmt.Sprintf("%d active loans", assertion.Count),
			Actual:   fmt.Sprintf("%d active loans", len(loans)),
		}
	}
	return nil
}

// assertBookActiveLoans checks the number of open loans of one book.
func assertBookActiveLoans(ctx context.Context, st *store.Store, assertion Assertion) error {
	n, err := st.Ledger().ActiveCount(ctx, library.BookID(assertion.Book))
	if err != nil {
		return fmt.Errorf("count active loans of book %d: %w", assertion.Book, err)
	}
	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertActiveLoans,
			Expected: fmt.Sprintf("%d active loans for book %d", assertion.Count, assertion.Book),
			Actual:   fmt.Sprintf("%d active loans for book %d", n, assertion.Book),
		}
	}
	return nil
}

// toSQLValue converts a YAML value to a bindable value. Whole floats become
// integers; anything that is not a scalar is matched by its text.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case nil, string, int, int64, bool:
		return val
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected YAML values with values scanned from
// SQLite, which returns integers as int64 and text as string or []byte.
func stateValuesEqual(expected, actual any) bool {
	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if exp, ok := expected.(bool); ok {
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return actual == exp
	}

	return valuesEqual(actual, expected)
}

// matchArgs checks if actual args contain all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual map[string]any, expected map[string]any) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// matchResult compares an operation result with the expected fields and
// returns one message per mismatch.
func matchResult(actual any, expected map[string]any) []string {
	actualMap, ok := actual.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("expected an object result, got %T", actual)}
	}

	var mismatches []string
	for _, key := range sortedKeys(expected) {
		actualVal, exists := actualMap[key]
		if !exists {
			mismatches = append(mismatches, fmt.Sprintf("result field %q missing", key))
			continue
		}
		if !valuesEqual(actualVal, expected[key]) {
			mismatches = append(mismatches, fmt.Sprintf("result field %q = %v, expected %v", key, actualVal, expected[key]))
		}
	}
	return mismatches
}

// valuesEqual compares two values for equality. Numbers compare by value
// regardless of type; maps and slices compare element-wise.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if a, ok := toFloat(actual); ok {
		e, ok := toFloat(expected)
		return ok && a == e
	}

	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for k, v := range exp {
			if !valuesEqual(act[k], v) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesEqual(act[i], exp[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(actual, expected)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store  *store.Store
	Engine *engine.Engine
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state and
// active_loans assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		case AssertActiveLoans:
			if assertion.Book != 0 {
				if actx == nil || actx.Store == nil {
					err = fmt.Errorf("assertion[%d]: active_loans for a book requires database context", i)
				} else {
					err = assertBookActiveLoans(actx.Ctx, actx.Store, assertion)
				}
			} else if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: active_loans requires an engine", i)
			} else {
				err = assertActiveLoans(actx.Ctx, actx.Engine, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
