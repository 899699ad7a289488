// Package builder assembles query documents from the classifier and
// extractor outputs, coercing malformed pieces to safe defaults instead of
// failing.
package builder

import (
	"math"
	"strings"

	"github.com/roach88/nl2sql/internal/intent"
	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/queryir"
)

// DefaultTable is used when neither the input nor the builder names one.
const DefaultTable = "assets"

// Input is everything a query document is built from.
type Input struct {
	Intent     intent.Intent
	Conditions []queryir.Condition
	OrderBy    []queryir.OrderBy
	Limit      *int
}

// Builder assembles documents for one table.
type Builder struct {
	table string
}

// New returns a Builder for table. An empty name selects DefaultTable.
func New(table string) *Builder {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	return &Builder{table: table}
}

// Table returns the table documents are built for.
func (b *Builder) Table() string {
	return b.table
}

// Build assembles the query document.
//
// An empty select list becomes ["*"]. Order keys with an empty column are
// dropped and unknown directions become ASC. A negative limit is dropped,
// and the intent's limit applies when no explicit limit is given.
// Conditions without a column are dropped and a missing value becomes
// null. Operators are not checked.
func (b *Builder) Build(in Input) queryir.Query {
	q := queryir.Query{
		Table:   b.table,
		Select:  selectList(in.Intent.SelectColumns),
		Where:   conditions(in.Conditions),
		OrderBy: orderBy(in.OrderBy),
	}
	limit := in.Limit
	if limit == nil {
		limit = in.Intent.Limit
	}
	if limit != nil && *limit >= 0 {
		q.Limit = queryir.IntLimit(*limit)
	}
	return q
}

func selectList(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{queryir.SelectAll}
	}
	return out
}

func conditions(conds []queryir.Condition) []queryir.Condition {
	out := make([]queryir.Condition, 0, len(conds))
	for _, c := range conds {
		if c.Column == "" {
			continue
		}
		if c.Value == nil {
			c.Value = ir.IRNull{}
		}
		out = append(out, c)
	}
	return out
}

func orderBy(keys []queryir.OrderBy) []queryir.OrderBy {
	out := make([]queryir.OrderBy, 0, len(keys))
	for _, o := range keys {
		if strings.TrimSpace(o.Column) == "" {
			continue
		}
		dir := strings.ToUpper(strings.TrimSpace(o.Direction))
		if dir != queryir.Desc {
			dir = queryir.Asc
		}
		out = append(out, queryir.OrderBy{Column: o.Column, Direction: dir})
	}
	return out
}

// BuildFromMap builds a document from loosely typed data, such as decoded
// JSON. Recognized keys are "type", "select_columns", "conditions",
// "order_by", "limit" and "intent_limit". Anything of the wrong shape is
// coerced: a non-list select becomes ["*"], a non-list order_by becomes
// empty, and a limit that is not a non-negative integer is dropped.
func (b *Builder) BuildFromMap(m map[string]any) queryir.Query {
	in := Input{Intent: intent.Intent{Type: intent.Select}}
	if t, ok := m["type"].(string); ok {
		in.Intent.Type = t
	}
	in.Intent.SelectColumns = stringList(m["select_columns"])
	in.Conditions = conditionList(m["conditions"])
	in.OrderBy = orderList(m["order_by"])
	in.Limit = intValue(m["limit"])
	in.Intent.Limit = intValue(m["intent_limit"])
	if in.Intent.Type == intent.Count && len(in.Intent.SelectColumns) == 0 {
		in.Intent.SelectColumns = []string{queryir.SelectCount}
	}
	return b.Build(in)
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func conditionList(v any) []queryir.Condition {
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []map[string]any:
		for _, m := range list {
			items = append(items, m)
		}
	default:
		return nil
	}
	out := make([]queryir.Condition, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		col, _ := m["column"].(string)
		op, _ := m["operator"].(string)
		if op == "" {
			op = queryir.OpEq
		}
		val, err := ir.FromNative(m["value"])
		if err != nil {
			continue
		}
		c := queryir.Condition{Column: col, Operator: op, Value: val}
		if logic, ok := m["logic"].(string); ok {
			c.Logic = strings.ToUpper(logic)
		}
		c.Pattern, _ = m["pattern"].(bool)
		out = append(out, c)
	}
	return out
}

func orderList(v any) []queryir.OrderBy {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]queryir.OrderBy, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		col, _ := m["column"].(string)
		dir, _ := m["direction"].(string)
		out = append(out, queryir.OrderBy{Column: col, Direction: dir})
	}
	return out
}

// intValue accepts integral numbers only. Booleans, strings and fractional
// floats yield nil, as do negative values.
func intValue(v any) *int {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt32 || x < math.MinInt32 {
			return nil
		}
		n = int64(x)
	default:
		return nil
	}
	if n < 0 {
		return nil
	}
	return queryir.IntLimit(int(n))
}
