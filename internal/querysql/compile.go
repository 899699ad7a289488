package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/queryir"
	"github.com/roach88/nl2sql/internal/schema"
)

// SQLCompiler turns query documents into SQL for one schema.
//
// Render produces a literal SQL string for display. Compile produces
// parameterized SQL for SQLite: every value is bound through a ? placeholder
// and every identifier is checked against the schema first.
type SQLCompiler struct {
	schema *schema.Schema
}

// NewSQLCompiler creates a compiler. A nil schema selects the default.
func NewSQLCompiler(s *schema.Schema) *SQLCompiler {
	if s == nil {
		s = schema.Default()
	}
	return &SQLCompiler{schema: s}
}

// Render returns the literal SQL text of q.
//
//   - strings are single-quoted with ' doubled and \ doubled
//   - booleans render as TRUE/FALSE and numbers unquoted
//   - LIKE escapes its value's wildcards and wraps it in %...% unless the
//     condition carries a pattern
//   - a string compared with = on a multi-value column renders as LIKE
//   - a null value renders as IS NULL or IS NOT NULL
//
// ORDER BY and LIMIT appear only when present.
func (c *SQLCompiler) Render(q queryir.Query) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectList(q.Select))
	b.WriteString(" FROM ")
	b.WriteString(q.Table)

	if len(q.Where) > 0 {
		b.WriteString(" WHERE ")
		for i, cond := range q.Where {
			if i > 0 {
				b.WriteString(" " + connector(cond) + " ")
			}
			b.WriteString(c.renderCondition(cond))
		}
	}

	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(orderList(q.OrderBy))
	}
	if q.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*q.Limit))
	}
	return b.String()
}

func (c *SQLCompiler) renderCondition(cond queryir.Condition) string {
	op, val := c.effective(cond)
	switch v := val.(type) {
	case nil, ir.IRNull:
		return cond.Column + nullTest(op)
	case ir.IRArray:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = literal(elem)
		}
		return fmt.Sprintf("%s %s (%s)", cond.Column, op, strings.Join(parts, ", "))
	}
	if op == queryir.OpLike {
		return fmt.Sprintf("%s LIKE %s", cond.Column, quote(EscapeString(likePattern(cond, val))))
	}
	return fmt.Sprintf("%s %s %s", cond.Column, op, literal(val))
}

// effective resolves the operator actually applied: = on a string against a
// multi-value column becomes a containment match.
func (c *SQLCompiler) effective(cond queryir.Condition) (string, ir.IRValue) {
	if cond.Operator == queryir.OpEq && c.schema.IsMultiValue(cond.Column) {
		if _, ok := cond.Value.(ir.IRString); ok {
			return queryir.OpLike, cond.Value
		}
	}
	return cond.Operator, cond.Value
}

// Compile converts q to parameterized SQL, returning (sql, params, error).
//
// Rows are ordered deterministically: the requested keys first, then the
// primary key as a tiebreaker. Aggregate selects carry no ORDER BY.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if !strings.EqualFold(q.Table, c.schema.Table()) {
		return "", nil, fmt.Errorf("unknown table %q", q.Table)
	}
	if len(q.Select) == 0 {
		return "", nil, fmt.Errorf("empty select list")
	}

	cols, aggregate, err := c.compileSelect(q.Select)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(cols)
	b.WriteString(" FROM ")
	b.WriteString(c.schema.Table())

	var params []any
	if len(q.Where) > 0 {
		b.WriteString(" WHERE ")
		for i, cond := range q.Where {
			frag, condParams, err := c.compileCondition(cond)
			if err != nil {
				return "", nil, fmt.Errorf("where[%d]: %w", i, err)
			}
			if i > 0 {
				b.WriteString(" " + connector(cond) + " ")
			}
			b.WriteString(frag)
			params = append(params, condParams...)
		}
	}

	if !aggregate {
		order, err := c.stableOrder(q.OrderBy)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(order)
	}
	if q.Limit != nil {
		if *q.Limit < 0 {
			return "", nil, fmt.Errorf("negative limit %d", *q.Limit)
		}
		b.WriteString(" LIMIT ?")
		params = append(params, int64(*q.Limit))
	}
	return b.String(), params, nil
}

func (c *SQLCompiler) compileSelect(entries []string) (string, bool, error) {
	parts := make([]string, 0, len(entries))
	aggregate := false
	for _, entry := range entries {
		if entry == queryir.SelectAll {
			parts = append(parts, entry)
			continue
		}
		if fn, arg, ok := queryir.ParseAggregate(entry); ok {
			aggregate = true
			if arg == queryir.SelectAll {
				if fn != "COUNT" {
					return "", false, fmt.Errorf("select %q: only COUNT accepts *", entry)
				}
				parts = append(parts, entry)
				continue
			}
			col, err := c.column(arg)
			if err != nil {
				return "", false, fmt.Errorf("select: %w", err)
			}
			parts = append(parts, fn+"("+col+")")
			continue
		}
		col, err := c.column(entry)
		if err != nil {
			return "", false, fmt.Errorf("select: %w", err)
		}
		parts = append(parts, col)
	}
	return strings.Join(parts, ", "), aggregate, nil
}

func (c *SQLCompiler) compileCondition(cond queryir.Condition) (string, []any, error) {
	col, err := c.column(cond.Column)
	if err != nil {
		return "", nil, err
	}
	op, val := c.effective(cond)

	switch v := val.(type) {
	case nil, ir.IRNull:
		return col + nullTest(op), nil, nil
	case ir.IRArray:
		if op != queryir.OpIn {
			return "", nil, fmt.Errorf("list value requires IN, got %s", op)
		}
		if len(v) == 0 {
			return "1 = 0", nil, nil
		}
		params := make([]any, len(v))
		for i, elem := range v {
			p, err := ir.Native(elem)
			if err != nil {
				return "", nil, fmt.Errorf("%s[%d]: %w", col, i, err)
			}
			params[i] = p
		}
		holders := strings.TrimSuffix(strings.Repeat("?, ", len(v)), ", ")
		return fmt.Sprintf("%s IN (%s)", col, holders), params, nil
	}

	switch op {
	case queryir.OpLike:
		return col + ` LIKE ? ESCAPE '\'`, []any{likePattern(cond, val)}, nil
	case queryir.OpEq, queryir.OpNotEq, queryir.OpGt, queryir.OpLt, queryir.OpGte, queryir.OpLte:
		p, err := ir.Native(val)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", col, err)
		}
		return fmt.Sprintf("%s %s ?", col, op), []any{p}, nil
	case queryir.OpIn:
		p, err := ir.Native(val)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", col, err)
		}
		return col + " IN (?)", []any{p}, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", op)
	}
}

// stableOrder appends the primary key to the requested keys so that row
// order never depends on the storage engine.
func (c *SQLCompiler) stableOrder(keys []queryir.OrderBy) (string, error) {
	pk := c.schema.PrimaryKey()
	parts := make([]string, 0, len(keys)+1)
	hasPK := false
	for _, o := range keys {
		col, err := c.column(o.Column)
		if err != nil {
			return "", fmt.Errorf("order_by: %w", err)
		}
		dir := queryir.Asc
		if strings.EqualFold(o.Direction, queryir.Desc) {
			dir = queryir.Desc
		}
		if strings.EqualFold(col, pk) {
			hasPK = true
		}
		parts = append(parts, col+" "+dir)
	}
	if pk != "" && !hasPK {
		parts = append(parts, pk+" ASC")
	}
	if len(parts) == 0 {
		return "rowid ASC", nil
	}
	return strings.Join(parts, ", "), nil
}

// column returns the schema spelling of name.
func (c *SQLCompiler) column(name string) (string, error) {
	col, ok := c.schema.Column(name)
	if !ok {
		return "", fmt.Errorf("unknown column %q", name)
	}
	return col.Name, nil
}

func selectList(entries []string) string {
	if len(entries) == 0 {
		return queryir.SelectAll
	}
	return strings.Join(entries, ", ")
}

func orderList(keys []queryir.OrderBy) string {
	parts := make([]string, len(keys))
	for i, o := range keys {
		parts[i] = o.Column + " " + o.Direction
	}
	return strings.Join(parts, ", ")
}

// connector returns the keyword joining cond to the previous condition.
func connector(cond queryir.Condition) string {
	if cond.Logic == queryir.LogicOr {
		return queryir.LogicOr
	}
	return queryir.LogicAnd
}

func nullTest(op string) string {
	if op == queryir.OpNotEq {
		return " IS NOT NULL"
	}
	return " IS NULL"
}

// likePattern returns the LIKE pattern for val. A string marked as a
// pattern is used as is; other strings and the formatted text of
// non-string values match as substrings.
func likePattern(cond queryir.Condition, val ir.IRValue) string {
	s, ok := val.(ir.IRString)
	if !ok {
		return queryir.ContainsPattern(ir.Format(val))
	}
	if cond.Pattern {
		return string(s)
	}
	return queryir.ContainsPattern(string(s))
}

// literal renders a scalar value as SQL text.
func literal(v ir.IRValue) string {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return "NULL"
	case ir.IRString:
		return quote(EscapeString(string(val)))
	case ir.IRBool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case ir.IRInt, ir.IRFloat:
		return ir.Format(val)
	default:
		return quote(EscapeString(ir.Format(val)))
	}
}

// EscapeString doubles backslashes and single quotes so s can sit inside a
// single-quoted SQL literal.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// quote wraps already escaped text in single quotes.
func quote(s string) string {
	return "'" + s + "'"
}
