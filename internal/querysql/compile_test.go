package querysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/queryir"
)

func cond(column, op string, v ir.IRValue) queryir.Condition {
	return queryir.Condition{Column: column, Operator: op, Value: v}
}

func pattern(column, p string) queryir.Condition {
	return queryir.Condition{Column: column, Operator: queryir.OpLike, Value: ir.IRString(p), Pattern: true}
}

func query(where ...queryir.Condition) queryir.Query {
	return queryir.Query{Table: "assets", Select: []string{"*"}, Where: where}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		query queryir.Query
		want  string
	}{
		{
			name:  "select all",
			query: query(),
			want:  "SELECT * FROM assets",
		},
		{
			name:  "integer",
			query: query(cond("site", "=", ir.IRInt(54))),
			want:  "SELECT * FROM assets WHERE site = 54",
		},
		{
			name:  "float",
			query: query(cond("alerts", ">", ir.IRFloat(2.5))),
			want:  "SELECT * FROM assets WHERE alerts > 2.5",
		},
		{
			name:  "boolean",
			query: query(cond("approved", "=", ir.IRBool(true)), cond("valid", "=", ir.IRBool(false))),
			want:  "SELECT * FROM assets WHERE approved = TRUE AND valid = FALSE",
		},
		{
			name:  "string quotes doubled",
			query: query(cond("display_name", "=", ir.IRString("O'Brien"))),
			want:  "SELECT * FROM assets WHERE display_name = 'O''Brien'",
		},
		{
			name:  "backslash doubled",
			query: query(cond("hostname", "=", ir.IRString(`dom\host`))),
			want:  `SELECT * FROM assets WHERE hostname = 'dom\\host'`,
		},
		{
			name:  "like wraps",
			query: query(cond("hostname", "LIKE", ir.IRString("plc"))),
			want:  "SELECT * FROM assets WHERE hostname LIKE '%plc%'",
		},
		{
			name:  "like escapes wildcards",
			query: query(cond("hostname", "LIKE", ir.IRString("backup_job"))),
			want:  `SELECT * FROM assets WHERE hostname LIKE '%backup\\_job%'`,
		},
		{
			name:  "like keeps anchored pattern",
			query: query(pattern("hostname", "plc%")),
			want:  "SELECT * FROM assets WHERE hostname LIKE 'plc%'",
		},
		{
			name:  "like literal percent is not a wildcard",
			query: query(cond("hostname", "LIKE", ir.IRString("50%"))),
			want:  `SELECT * FROM assets WHERE hostname LIKE '%50\\%%'`,
		},
		{
			name:  "like trailing backslash",
			query: query(cond("hostname", "LIKE", ir.IRString(`50%\`))),
			want:  `SELECT * FROM assets WHERE hostname LIKE '%50\\%\\\\%'`,
		},
		{
			name:  "like quote escaped",
			query: query(cond("display_name", "LIKE", ir.IRString("O'Br"))),
			want:  "SELECT * FROM assets WHERE display_name LIKE '%O''Br%'",
		},
		{
			name:  "ip prefix",
			query: query(pattern("ipv4", "192.168.1.%")),
			want:  "SELECT * FROM assets WHERE ipv4 LIKE '192.168.1.%'",
		},
		{
			name:  "multi-value equals becomes like",
			query: query(cond("CVE", "=", ir.IRString("CVE-2017-12819"))),
			want:  "SELECT * FROM assets WHERE CVE LIKE '%CVE-2017-12819%'",
		},
		{
			name:  "in list",
			query: query(cond("site", "IN", ir.IRArray{ir.IRInt(54), ir.IRInt(55)})),
			want:  "SELECT * FROM assets WHERE site IN (54, 55)",
		},
		{
			name:  "null",
			query: query(cond("vendor", "=", ir.IRNull{}), cond("model", "!=", nil)),
			want:  "SELECT * FROM assets WHERE vendor IS NULL AND model IS NOT NULL",
		},
		{
			name: "or connector",
			query: query(
				queryir.Condition{Column: "site", Operator: "=", Value: ir.IRInt(54), Logic: "OR"},
				queryir.Condition{Column: "site", Operator: "=", Value: ir.IRInt(55), Logic: "OR"},
			),
			want: "SELECT * FROM assets WHERE site = 54 OR site = 55",
		},
		{
			name: "order and limit",
			query: queryir.Query{
				Table:   "assets",
				Select:  []string{"hostname", "ipv4"},
				OrderBy: []queryir.OrderBy{{Column: "last_seen", Direction: "DESC"}},
				Limit:   queryir.IntLimit(5),
			},
			want: "SELECT hostname, ipv4 FROM assets ORDER BY last_seen DESC LIMIT 5",
		},
		{
			name:  "count",
			query: queryir.Query{Table: "assets", Select: []string{"COUNT(*)"}},
			want:  "SELECT COUNT(*) FROM assets",
		},
	}
	c := NewSQLCompiler(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Render(tt.query))
		})
	}
}

// Every single quote and backslash inside a rendered literal must be
// doubled.
func TestRender_NoUnescapedQuotes(t *testing.T) {
	inputs := []string{"O'Brien", "''", "a'b'c", `\'`, "it's 100%", "'; DROP TABLE assets; --", `50%\`, `\`, `a\_b`}
	c := NewSQLCompiler(nil)
	for _, in := range inputs {
		for _, op := range []string{"=", "LIKE"} {
			sql := c.Render(query(cond("hostname", op, ir.IRString(in))))
			start := strings.Index(sql, "'")
			end := strings.LastIndex(sql, "'")
			require.Greater(t, end, start, sql)

			inner := sql[start+1 : end]
			assert.NotContains(t, strings.ReplaceAll(inner, "''", ""), "'", sql)
			assert.NotContains(t, strings.ReplaceAll(inner, `\\`, ""), `\`, sql)
		}
	}
}

func TestCompile_Parameterized(t *testing.T) {
	c := NewSQLCompiler(nil)

	sql, params, err := c.Compile(query(
		cond("site", "=", ir.IRInt(54)),
		cond("display_name", "=", ir.IRString("O'Brien")),
	))
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM assets WHERE site = ? AND display_name = ? ORDER BY id ASC", sql)
	assert.Equal(t, []any{int64(54), "O'Brien"}, params)
	assert.NotContains(t, sql, "Brien")
}

func TestCompile_Like(t *testing.T) {
	c := NewSQLCompiler(nil)

	sql, params, err := c.Compile(query(cond("CVE", "=", ir.IRString("CVE-2021-44228"))))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM assets WHERE CVE LIKE ? ESCAPE '\' ORDER BY id ASC`, sql)
	assert.Equal(t, []any{"%CVE-2021-44228%"}, params)

	_, params, err = c.Compile(query(cond("hostname", "LIKE", ir.IRString("50%"))))
	require.NoError(t, err)
	assert.Equal(t, []any{`%50\%%`}, params)

	_, params, err = c.Compile(query(pattern("hostname", "plc%")))
	require.NoError(t, err)
	assert.Equal(t, []any{"plc%"}, params)
}

func TestCompile_InAndNull(t *testing.T) {
	c := NewSQLCompiler(nil)

	sql, params, err := c.Compile(query(
		cond("site", "IN", ir.IRArray{ir.IRInt(54), ir.IRInt(55)}),
		cond("vendor", "!=", ir.IRNull{}),
	))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM assets WHERE site IN (?, ?) AND vendor IS NOT NULL ORDER BY id ASC", sql)
	assert.Equal(t, []any{int64(54), int64(55)}, params)
}

func TestCompile_EmptyInMatchesNothing(t *testing.T) {
	sql, params, err := NewSQLCompiler(nil).Compile(query(cond("site", "IN", ir.IRArray{})))
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 0")
	assert.Empty(t, params)
}

func TestCompile_OrderByAddsPrimaryKeyTiebreaker(t *testing.T) {
	c := NewSQLCompiler(nil)

	q := query()
	q.OrderBy = []queryir.OrderBy{{Column: "risk", Direction: "DESC"}}
	q.Limit = queryir.IntLimit(3)

	sql, params, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM assets ORDER BY risk DESC, id ASC LIMIT ?", sql)
	assert.Equal(t, []any{int64(3)}, params)

	q.OrderBy = []queryir.OrderBy{{Column: "id", Direction: "DESC"}}
	sql, _, err = c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM assets ORDER BY id DESC LIMIT ?", sql)
}

func TestCompile_AggregateHasNoOrderBy(t *testing.T) {
	c := NewSQLCompiler(nil)

	sql, _, err := c.Compile(queryir.Query{Table: "assets", Select: []string{"COUNT(*)"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM assets", sql)

	sql, _, err = c.Compile(queryir.Query{Table: "assets", Select: []string{"avg(alerts)"}})
	assert.Error(t, err, "lower-case aggregate is not recognized and is not a column")
	assert.Empty(t, sql)

	sql, _, err = c.Compile(queryir.Query{Table: "assets", Select: []string{"AVG(alerts)"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT AVG(alerts) FROM assets", sql)
}

func TestCompile_UsesSchemaSpelling(t *testing.T) {
	sql, _, err := NewSQLCompiler(nil).Compile(query(cond("cve", "LIKE", ir.IRString("CVE-2021"))))
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE CVE LIKE ?")
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query queryir.Query
		want  string
	}{
		{"unknown table", queryir.Query{Table: "hosts", Select: []string{"*"}}, "unknown table"},
		{"empty select", queryir.Query{Table: "assets"}, "empty select"},
		{"unknown select column", queryir.Query{Table: "assets", Select: []string{"colour"}}, "unknown column"},
		{"injection in select", queryir.Query{Table: "assets", Select: []string{"id; DROP TABLE assets"}}, "unknown column"},
		{"unknown where column", query(cond("colour", "=", ir.IRString("red"))), "where[0]: unknown column"},
		{"unknown operator", query(cond("site", "~", ir.IRInt(1))), "unsupported operator"},
		{"list without in", query(cond("site", "=", ir.IRArray{ir.IRInt(1)})), "requires IN"},
		{"sum star", queryir.Query{Table: "assets", Select: []string{"SUM(*)"}}, "only COUNT"},
		{"unknown order column", queryir.Query{
			Table: "assets", Select: []string{"*"},
			OrderBy: []queryir.OrderBy{{Column: "colour", Direction: "ASC"}},
		}, "order_by"},
		{"negative limit", queryir.Query{Table: "assets", Select: []string{"*"}, Limit: queryir.IntLimit(-1)}, "negative limit"},
	}
	c := NewSQLCompiler(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Compile(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEscapeString(t *testing.T) {
	assert.Equal(t, "O''Brien", EscapeString("O'Brien"))
	assert.Equal(t, `a\\b`, EscapeString(`a\b`))
	assert.Equal(t, `\\''`, EscapeString(`\'`))
}
