package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/nl2sql/internal/store"
)

// AssertionContext carries what assertions need beyond the trace.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
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
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %q -> %s\n", i, ev.Text, ev.SQL)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertHistoryCount:
			err = assertHistoryCount(actx, a)
		case AssertSameQuery:
			err = assertSameQuery(result.Trace, a)
		case AssertResultContains:
			err = assertResultContains(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertHistoryCount checks the size of the translation log.
func assertHistoryCount(actx *AssertionContext, a Assertion) error {
	if actx == nil || actx.Store == nil {
		return fmt.Errorf("history_count assertion requires a store")
	}
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := actx.Store.History(ctx, 0)
	if err != nil {
		return err
	}
	if len(entries) != a.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d log entries", a.Count),
			Actual:   fmt.Sprintf("%d log entries", len(entries)),
		}
	}
	return nil
}

// assertSameQuery checks that the listed steps share a query fingerprint.
func assertSameQuery(trace []TraceEvent, a Assertion) error {
	var first string
	for k, n := range a.Steps {
		if n < 0 || n >= len(trace) {
			return fmt.Errorf("step %d not in trace", n)
		}
		fp := trace[n].Fingerprint
		if k == 0 {
			first = fp
			continue
		}
		if fp != first {
			return &AssertionError{
				Type:     AssertSameQuery,
				Expected: fmt.Sprintf("steps %v translate to one query", a.Steps),
				Actual:   fmt.Sprintf("step %d: %s, step %d: %s", a.Steps[0], trace[a.Steps[0]].SQL, n, trace[n].SQL),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertResultContains checks that every value appears in the column of
// the step's executed rows. Values compare by their printed form, so a
// YAML 54 matches a TEXT cell holding "54".
func assertResultContains(trace []TraceEvent, a Assertion) error {
	if a.Step < 0 || a.Step >= len(trace) {
		return fmt.Errorf("step %d not in trace", a.Step)
	}
	ev := trace[a.Step]
	cells, ok := ev.values[a.Column]
	if !ok {
		return &AssertionError{
			Type:     AssertResultContains,
			Expected: fmt.Sprintf("column %s in step %d result", a.Column, a.Step),
			Actual:   "column not selected or no rows",
			Trace:    trace,
		}
	}

	have := make(map[string]bool, len(cells))
	for _, c := range cells {
		have[fmt.Sprint(c)] = true
	}
	for _, v := range a.Values {
		if !have[fmt.Sprint(v)] {
			return &AssertionError{
				Type:     AssertResultContains,
				Expected: fmt.Sprintf("%s = %v in step %d result", a.Column, v, a.Step),
				Actual:   fmt.Sprintf("%s values %v", a.Column, cells),
				Trace:    trace,
			}
		}
	}
	return nil
}
