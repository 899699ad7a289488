package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/schema"
)

func TestValidate_ValidQuery(t *testing.T) {
	result := Validate(siteQuery(), schema.Default())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidate_WithoutSchemaSkipsColumnChecks(t *testing.T) {
	q := siteQuery()
	q.Where[0].Column = "no_such_column"

	result := Validate(q, nil)
	assert.True(t, result.Valid)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Query)
		want   string
	}{
		{"empty table", func(q *Query) { q.Table = "" }, "empty table"},
		{"other table", func(q *Query) { q.Table = "hosts" }, `table "hosts"`},
		{"empty select", func(q *Query) { q.Select = nil }, "empty select"},
		{"unknown select column", func(q *Query) { q.Select = []string{"colour"} }, `unknown column "colour"`},
		{"unknown where column", func(q *Query) { q.Where[0].Column = "colour" }, `where[0]: unknown column`},
		{"empty where column", func(q *Query) { q.Where[0].Column = "" }, "where[0]: empty column"},
		{"in without list", func(q *Query) { q.Where[0].Operator = OpIn }, "IN requires a list"},
		{"list without in", func(q *Query) { q.Where[0].Value = ir.IRArray{ir.IRInt(1)} }, "list value requires IN"},
		{"bad direction", func(q *Query) { q.OrderBy = []OrderBy{{Column: "risk", Direction: "UP"}} }, "direction"},
		{"empty order column", func(q *Query) { q.OrderBy = []OrderBy{{Direction: Asc}} }, "order_by[0]: empty column"},
		{"negative limit", func(q *Query) { q.Limit = IntLimit(-1) }, "negative limit"},
		{"count star only", func(q *Query) { q.Select = []string{"SUM(*)"} }, "only COUNT"},
		{"mixed logic", func(q *Query) {
			q.Where = []Condition{
				{Column: "site", Operator: OpEq, Value: ir.IRInt(1), Logic: LogicAnd},
				{Column: "site", Operator: OpEq, Value: ir.IRInt(2), Logic: LogicOr},
			}
		}, "differs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := siteQuery()
			tt.mutate(&q)

			result := Validate(q, schema.Default())
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0], tt.want)
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Query)
		want   string
	}{
		{"unknown operator", func(q *Query) { q.Where[0].Operator = "~" }, "unknown operator"},
		{"like non-string", func(q *Query) { q.Where[0].Operator = OpLike }, "LIKE against non-string"},
		{"comparison non-numeric", func(q *Query) {
			q.Where[0].Operator = OpGt
			q.Where[0].Value = ir.IRString("high")
		}, "non-numeric value"},
		{"boolean column", func(q *Query) {
			q.Where[0].Column = "approved"
			q.Where[0].Value = ir.IRString("yes")
		}, "boolean column approved"},
		{"logic on single condition", func(q *Query) { q.Where[0].Logic = LogicAnd }, "single condition"},
		{"sum over text", func(q *Query) { q.Select = []string{"SUM(hostname)"} }, "non-numeric column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := siteQuery()
			tt.mutate(&q)

			result := Validate(q, schema.Default())
			assert.True(t, result.Valid, "errors: %v", result.Errors)
			require.NotEmpty(t, result.Warnings)
			assert.Contains(t, result.Warnings[0], tt.want)
		})
	}
}

func TestValidate_AggregatesAndCount(t *testing.T) {
	q := siteQuery()
	q.Select = []string{SelectCount}
	assert.True(t, Validate(q, schema.Default()).Valid)

	q.Select = []string{"AVG(alerts)"}
	result := Validate(q, schema.Default())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestValidate_ColumnNamesAreCaseInsensitive(t *testing.T) {
	q := siteQuery()
	q.Where[0] = Condition{Column: "cve", Operator: OpLike, Value: ir.IRString("CVE-2021-44228")}

	assert.True(t, Validate(q, schema.Default()).Valid)
}
