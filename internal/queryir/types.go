package queryir

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/nl2sql/internal/ir"
)

// Comparison operators.
const (
	OpEq    = "="
	OpNotEq = "!="
	OpGt    = ">"
	OpLt    = "<"
	OpGte   = ">="
	OpLte   = "<="
	OpLike  = "LIKE"
	OpIn    = "IN"
)

// Logic connectors.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Order directions.
const (
	Asc  = "ASC"
	Desc = "DESC"
)

// Select list entries with special meaning.
const (
	SelectAll   = "*"
	SelectCount = "COUNT(*)"
)

var knownOperators = map[string]bool{
	OpEq: true, OpNotEq: true, OpGt: true, OpLt: true,
	OpGte: true, OpLte: true, OpLike: true, OpIn: true,
}

// IsKnownOperator reports whether op is one of the comparison operators.
func IsKnownOperator(op string) bool {
	return knownOperators[op]
}

// Condition is one WHERE predicate: <column> <operator> <value>.
//
// Logic is the connector joining this condition to the previous one. It is
// empty when the query has a single condition.
//
// Pattern marks a LIKE value that already is a pattern, with its own
// wildcards placed and its literal text escaped. Any other LIKE value is
// matched as a substring.
type Condition struct {
	Column   string     `json:"column"`
	Operator string     `json:"operator"`
	Value    ir.IRValue `json:"value"`
	Logic    string     `json:"logic,omitempty"`
	Pattern  bool       `json:"pattern,omitempty"`
}

// MarshalJSON writes a nil Value as null.
func (c Condition) MarshalJSON() ([]byte, error) {
	val, err := ir.MarshalIRValue(c.Value)
	if err != nil {
		return nil, fmt.Errorf("condition %s: %w", c.Column, err)
	}
	type wire struct {
		Column   string          `json:"column"`
		Operator string          `json:"operator"`
		Value    json.RawMessage `json:"value"`
		Logic    string          `json:"logic,omitempty"`
		Pattern  bool            `json:"pattern,omitempty"`
	}
	return json.Marshal(wire{Column: c.Column, Operator: c.Operator, Value: val, Logic: c.Logic, Pattern: c.Pattern})
}

// UnmarshalJSON decodes the value into an IRValue, keeping integers and
// floats distinct.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var wire struct {
		Column   string          `json:"column"`
		Operator string          `json:"operator"`
		Value    json.RawMessage `json:"value"`
		Logic    string          `json:"logic"`
		Pattern  bool            `json:"pattern"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var val ir.IRValue = ir.IRNull{}
	if len(wire.Value) > 0 {
		v, err := ir.UnmarshalIRValue(wire.Value)
		if err != nil {
			return fmt.Errorf("condition %s value: %w", wire.Column, err)
		}
		val = v
	}
	*c = Condition{Column: wire.Column, Operator: wire.Operator, Value: val, Logic: wire.Logic, Pattern: wire.Pattern}
	return nil
}

// ToIR returns the condition as a canonical object.
func (c Condition) ToIR() ir.IRObject {
	obj := ir.IRObject{
		"column":   ir.IRString(c.Column),
		"operator": ir.IRString(c.Operator),
		"value":    valueOrNull(c.Value),
	}
	if c.Logic != "" {
		obj["logic"] = ir.IRString(c.Logic)
	}
	if c.Pattern {
		obj["pattern"] = ir.IRBool(true)
	}
	return obj
}

// OrderBy is one ordering key.
type OrderBy struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// ToIR returns the ordering key as a canonical object.
func (o OrderBy) ToIR() ir.IRObject {
	return ir.IRObject{
		"column":    ir.IRString(o.Column),
		"direction": ir.IRString(o.Direction),
	}
}

// Query is the translated query document.
type Query struct {
	Table   string      `json:"table"`
	Select  []string    `json:"select"`
	Where   []Condition `json:"where"`
	OrderBy []OrderBy   `json:"order_by"`
	Limit   *int        `json:"limit"`
}

// MarshalJSON writes empty lists as [] rather than null.
func (q Query) MarshalJSON() ([]byte, error) {
	type plain Query
	p := plain(q)
	if p.Select == nil {
		p.Select = []string{}
	}
	if p.Where == nil {
		p.Where = []Condition{}
	}
	if p.OrderBy == nil {
		p.OrderBy = []OrderBy{}
	}
	return json.Marshal(p)
}

// ToIR returns the document as a canonical object.
func (q Query) ToIR() ir.IRObject {
	sel := make(ir.IRArray, len(q.Select))
	for i, s := range q.Select {
		sel[i] = ir.IRString(s)
	}
	where := make(ir.IRArray, len(q.Where))
	for i, c := range q.Where {
		where[i] = c.ToIR()
	}
	order := make(ir.IRArray, len(q.OrderBy))
	for i, o := range q.OrderBy {
		order[i] = o.ToIR()
	}
	var limit ir.IRValue = ir.IRNull{}
	if q.Limit != nil {
		limit = ir.IRInt(*q.Limit)
	}
	return ir.IRObject{
		"table":    ir.IRString(q.Table),
		"select":   sel,
		"where":    where,
		"order_by": order,
		"limit":    limit,
	}
}

// Canonical returns the canonical JSON encoding of q.
func (q Query) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(q.ToIR())
}

// Fingerprint returns the content address of q.
func (q Query) Fingerprint() (string, error) {
	return ir.Fingerprint(q.ToIR())
}

// Logic returns the connector shared by the conditions, or "" when there
// is at most one condition.
func (q Query) Logic() string {
	if len(q.Where) < 2 {
		return ""
	}
	if q.Where[0].Logic == "" {
		return LogicAnd
	}
	return q.Where[0].Logic
}

// IntLimit returns a pointer to n, for building queries in literals.
func IntLimit(n int) *int {
	return &n
}

func valueOrNull(v ir.IRValue) ir.IRValue {
	if v == nil {
		return ir.IRNull{}
	}
	return v
}
