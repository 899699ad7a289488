package queryir

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/schema"
)

// aggregateSelect matches select entries such as "AVG(alerts)".
var aggregateSelect = regexp.MustCompile(`^(COUNT|SUM|AVG|MIN|MAX)\((\*|[A-Za-z_][A-Za-z0-9_]*)\)$`)

// ParseAggregate splits an aggregate select entry into its function and
// argument. It reports false for plain column names.
func ParseAggregate(entry string) (fn, arg string, ok bool) {
	m := aggregateSelect.FindStringSubmatch(entry)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ValidationResult lists the problems found in a query document.
//
// Warnings never block rendering; they flag documents that render but are
// unlikely to mean what the request asked for. Errors mark documents that
// cannot be rendered against the schema.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// Validate checks q. When s is non-nil, column references are checked
// against it as well.
//
// Validate is a pure function with no side effects.
func Validate(q Query, s *schema.Schema) ValidationResult {
	v := &validator{schema: s, warnings: []string{}, errors: []string{}}
	v.validate(q)
	return ValidationResult{
		Valid:    len(v.errors) == 0,
		Warnings: v.warnings,
		Errors:   v.errors,
	}
}

// validator accumulates findings during traversal.
type validator struct {
	schema   *schema.Schema
	warnings []string
	errors   []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validate(q Query) {
	if q.Table == "" {
		v.addError("empty table name")
	} else if v.schema != nil && !strings.EqualFold(q.Table, v.schema.Table()) {
		v.addError("table %q is not %q", q.Table, v.schema.Table())
	}

	if len(q.Select) == 0 {
		v.addError("empty select list")
	}
	for _, entry := range q.Select {
		v.validateSelect(entry)
	}

	v.validateWhere(q.Where)

	for i, o := range q.OrderBy {
		if o.Column == "" {
			v.addError("order_by[%d]: empty column", i)
			continue
		}
		v.checkColumn(fmt.Sprintf("order_by[%d]", i), o.Column)
		if o.Direction != Asc && o.Direction != Desc {
			v.addError("order_by[%d]: direction %q is not ASC or DESC", i, o.Direction)
		}
	}

	if q.Limit != nil && *q.Limit < 0 {
		v.addError("negative limit %d", *q.Limit)
	}
}

func (v *validator) validateSelect(entry string) {
	if entry == SelectAll {
		return
	}
	if fn, arg, ok := ParseAggregate(entry); ok {
		if arg == SelectAll {
			if fn != "COUNT" {
				v.addError("select %q: only COUNT accepts *", entry)
			}
			return
		}
		v.checkColumn("select", arg)
		if fn != "COUNT" && v.schema != nil && v.schema.Has(arg) && !v.schema.IsNumeric(arg) {
			v.addWarning("select %q: %s over non-numeric column", entry, fn)
		}
		return
	}
	v.checkColumn("select", entry)
}

func (v *validator) validateWhere(where []Condition) {
	for i, c := range where {
		field := fmt.Sprintf("where[%d]", i)
		if c.Column == "" {
			v.addError("%s: empty column", field)
		} else {
			v.checkColumn(field, c.Column)
		}

		if !IsKnownOperator(c.Operator) {
			v.addWarning("%s: unknown operator %q", field, c.Operator)
		}

		switch c.Operator {
		case OpIn:
			if _, ok := c.Value.(ir.IRArray); !ok {
				v.addError("%s: IN requires a list value", field)
			}
		case OpLike:
			if _, ok := c.Value.(ir.IRString); !ok {
				v.addWarning("%s: LIKE against non-string value %s", field, ir.Format(c.Value))
			}
		case OpGt, OpLt, OpGte, OpLte:
			switch c.Value.(type) {
			case ir.IRInt, ir.IRFloat:
			default:
				v.addWarning("%s: %s against non-numeric value %s", field, c.Operator, ir.Format(c.Value))
			}
		}
		if _, ok := c.Value.(ir.IRArray); ok && c.Operator != OpIn {
			v.addError("%s: list value requires IN", field)
		}
		if v.schema != nil && v.schema.IsBoolean(c.Column) {
			if _, ok := c.Value.(ir.IRBool); !ok {
				v.addWarning("%s: boolean column %s compared to %s", field, c.Column, ir.Format(c.Value))
			}
		}
	}

	if len(where) == 1 && where[0].Logic != "" {
		v.addWarning("where[0]: logic %q on a single condition", where[0].Logic)
	}
	if len(where) > 1 {
		first := where[0].Logic
		for i, c := range where {
			if c.Logic != first {
				v.addError("where[%d]: logic %q differs from %q", i, c.Logic, first)
				break
			}
			if c.Logic != "" && c.Logic != LogicAnd && c.Logic != LogicOr {
				v.addError("where[%d]: logic %q is not AND or OR", i, c.Logic)
				break
			}
		}
	}
}

func (v *validator) checkColumn(field, column string) {
	if v.schema == nil {
		return
	}
	if !v.schema.Has(column) {
		v.addError("%s: unknown column %q", field, column)
	}
}
