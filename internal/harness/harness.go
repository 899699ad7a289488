package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/nl2sql/internal/annotate"
	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/querysql"
	"github.com/roach88/nl2sql/internal/schema"
	"github.com/roach88/nl2sql/internal/store"
	"github.com/roach88/nl2sql/internal/testutil"
	"github.com/roach88/nl2sql/internal/translate"
)

// Harness executes one scenario against a private store.
type Harness struct {
	name       string
	store      *store.Store
	translator *translate.Translator
	compiler   *querysql.SQLCompiler
	clock      store.Sequencer
	logger     *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Execution:
//  1. Load the fixture annotator
//  2. Create the asset table and insert the seed rows
//  3. Translate, compile, execute and record each step
//  4. Check expect clauses, then assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	ann, err := loadAnnotator(scenario.Fixtures)
	if err != nil {
		return nil, err
	}

	sch := schema.Default().WithTable(scenario.Table)
	st, err := store.Open(":memory:", sch)
	if err != nil {
		return nil, fmt.Errorf("create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr, err := translate.New(ann, translate.WithSchema(sch), translate.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	h := &Harness{
		name:       scenario.Name,
		store:      st,
		translator: tr,
		compiler:   tr.Compiler(),
		clock:      testutil.NewDeterministicClock(),
		logger:     logger,
	}

	if _, err := st.InsertAssets(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func loadAnnotator(fixtures []string) (annotate.Annotator, error) {
	if len(fixtures) == 0 {
		return annotate.Builtin(), nil
	}
	fa, err := annotate.LoadFixtures(fixtures...)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	return fa, nil
}

// executeSteps translates every step in order. A request the annotator
// cannot parse aborts the run; a query that does not compile or execute is
// recorded as a step failure.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		d, err := h.translator.TranslateWithDetails(ctx, step.Text)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		seq := h.clock.Next()
		ev := TraceEvent{
			Seq:         seq,
			Text:        step.Text,
			Intent:      d.Intent.Type,
			Query:       d.Query,
			SQL:         d.SQL,
			Fingerprint: d.Fingerprint,
			values:      map[string][]any{},
		}

		rows, err := h.execute(ctx, d)
		if err != nil {
			result.AddError(fmt.Sprintf("step %d (%q): %v", i, step.Text, err))
		} else {
			ev.Rows = len(rows.Rows)
			for _, row := range rows.Rows {
				for c, col := range rows.Columns {
					ev.values[col] = append(ev.values[col], row[c])
				}
			}
		}

		if err := h.record(ctx, ev); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		result.AddTrace(ev)

		for _, msg := range checkExpect(i, ev, step.Expect) {
			result.AddError(msg)
		}

		h.logger.Info("step completed",
			"step", i,
			"seq", seq,
			"intent", ev.Intent,
			"rows", ev.Rows,
		)
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, d *translate.Details) (store.Result, error) {
	query, args, err := h.compiler.Compile(d.Query)
	if err != nil {
		return store.Result{}, fmt.Errorf("compile: %w", err)
	}
	return h.store.Execute(ctx, query, args...)
}

// record writes the step to the translation log under an ID derived from
// the scenario name and seq, so reruns produce the same log.
func (h *Harness) record(ctx context.Context, ev TraceEvent) error {
	t, err := store.NewTranslation(ev.Seq, ev.Text, ev.Intent, ev.Query, ev.SQL)
	if err != nil {
		return err
	}
	t.ID = fmt.Sprintf("%s/%d", h.name, ev.Seq)
	n := int64(ev.Rows)
	t.Rows = &n
	_, err = h.store.RecordTranslation(ctx, t)
	return err
}

// checkExpect compares a step against its expect clause.
func checkExpect(i int, ev TraceEvent, e *ExpectClause) []string {
	if e == nil {
		return nil
	}
	var errs []string
	fail := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("step %d (%q): %s: expected %v, got %v", i, ev.Text, field, want, got))
	}

	if e.Intent != "" && e.Intent != ev.Intent {
		fail("intent", e.Intent, ev.Intent)
	}
	if e.SQL != "" && e.SQL != ev.SQL {
		fail("sql", e.SQL, ev.SQL)
	}
	if e.Select != nil && !slices.Equal(e.Select, ev.Query.Select) {
		fail("select", e.Select, ev.Query.Select)
	}
	if e.Limit != nil {
		switch {
		case ev.Query.Limit == nil:
			fail("limit", *e.Limit, "none")
		case *ev.Query.Limit != *e.Limit:
			fail("limit", *e.Limit, *ev.Query.Limit)
		}
	}
	if e.Rows != nil && *e.Rows != ev.Rows {
		fail("rows", *e.Rows, ev.Rows)
	}
	if e.Where != nil {
		if len(e.Where) != len(ev.Query.Where) {
			fail("where", fmt.Sprintf("%d conditions", len(e.Where)), fmt.Sprintf("%d conditions", len(ev.Query.Where)))
			return errs
		}
		for j, want := range e.Where {
			if msg := matchCondition(want, ev, j); msg != "" {
				errs = append(errs, fmt.Sprintf("step %d (%q): where[%d]: %s", i, ev.Text, j, msg))
			}
		}
	}
	return errs
}

// matchCondition checks the fields present in want against condition j.
func matchCondition(want map[string]any, ev TraceEvent, j int) string {
	got := ev.Query.Where[j]
	if col, _ := want["column"].(string); col != got.Column {
		return fmt.Sprintf("column: expected %s, got %s", col, got.Column)
	}
	if op, ok := want["operator"].(string); ok && op != got.Operator {
		return fmt.Sprintf("operator: expected %s, got %s", op, got.Operator)
	}
	if logic, ok := want["logic"].(string); ok && logic != got.Logic {
		return fmt.Sprintf("logic: expected %s, got %s", logic, got.Logic)
	}
	if raw, ok := want["value"]; ok {
		v, err := ir.FromNative(raw)
		if err != nil {
			return fmt.Sprintf("value: %v", err)
		}
		if !ir.Equal(v, got.Value) {
			return fmt.Sprintf("value: expected %s, got %s", ir.Format(v), ir.Format(got.Value))
		}
	}
	return ""
}
