// Package recognize tags the tokens of an annotated document with the
// entities the rest of the pipeline reasons about: schema columns, literal
// values, operators, connectors, modifiers, intent keywords, quantifiers
// and boolean indicators.
package recognize

import (
	"slices"

	"github.com/roach88/nl2sql/internal/ir"
)

// Kind is the entity class.
type Kind string

const (
	KindColumn     Kind = "column"
	KindOperator   Kind = "operator"
	KindValue      Kind = "value"
	KindConnector  Kind = "connector"
	KindModifier   Kind = "modifier"
	KindIntent     Kind = "intent"
	KindBoolean    Kind = "boolean"
	KindQuantifier Kind = "quantifier"
)

// ValueType is the coarse type of a literal value.
type ValueType string

const (
	TypeInt        ValueType = "int"
	TypeFloat      ValueType = "float"
	TypeString     ValueType = "string"
	TypeBoolean    ValueType = "boolean"
	TypeIdentifier ValueType = "identifier"
	TypeAddress    ValueType = "address"
)

// Shape refines a value's type with the pattern that produced it.
type Shape string

const (
	ShapeCVE        Shape = "cve"
	ShapeIPv4       Shape = "ipv4"
	ShapeIPv4Prefix Shape = "ipv4_prefix"
	ShapeMAC        Shape = "mac"
	ShapeVendor     Shape = "vendor"
	ShapeQuoted     Shape = "quoted"
	ShapeProper     Shape = "proper"
	ShapeNoun       Shape = "noun"
	ShapeNumber     Shape = "number"
	ShapeBoolean    Shape = "boolean"
)

// Entity is a labelled token span [Start, End).
//
// Label is the normalized meaning: a column name, an operator kind, a
// connector, a modifier kind, an intent or a quantifier. Value entities
// also carry the typed literal. Boolean indicators carry the column they
// assert in Label and the asserted value in Value.
type Entity struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Label string `json:"label" yaml:"label"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Text  string `json:"text" yaml:"text"`

	Raw   string     `json:"raw,omitempty" yaml:"raw,omitempty"`
	Value ir.IRValue `json:"value,omitempty" yaml:"-"`
	Type  ValueType  `json:"type,omitempty" yaml:"type,omitempty"`
	Shape Shape      `json:"shape,omitempty" yaml:"shape,omitempty"`

	// Synthetic marks a column implied by an identifier-shaped value or a
	// polar boolean indicator rather than named in the text.
	Synthetic bool `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// Contains reports whether token i lies inside the entity span.
func (e Entity) Contains(i int) bool {
	return i >= e.Start && i < e.End
}

// Last returns the index of the final token of the span.
func (e Entity) Last() int {
	return e.End - 1
}

// IsBooleanValue reports whether a value entity holds a boolean.
func (e Entity) IsBooleanValue() bool {
	return e.Kind == KindValue && e.Type == TypeBoolean
}

// IsNumericValue reports whether a value entity holds an int or float.
func (e Entity) IsNumericValue() bool {
	return e.Kind == KindValue && (e.Type == TypeInt || e.Type == TypeFloat)
}

type columnKey struct {
	label string
	start int
}

// Entities groups recognized entities by kind. Each slice is in token
// order. Column entities are unique by (Label, Start).
type Entities struct {
	Columns     []Entity `json:"columns"`
	Operators   []Entity `json:"operators"`
	Values      []Entity `json:"values"`
	Connectors  []Entity `json:"connectors"`
	Modifiers   []Entity `json:"modifiers"`
	Intents     []Entity `json:"intents"`
	Booleans    []Entity `json:"booleans"`
	Quantifiers []Entity `json:"quantifiers"`

	columnKeys map[columnKey]struct{}
}

// NewEntities returns an empty set with non-nil slices.
func NewEntities() *Entities {
	return &Entities{
		Columns:     []Entity{},
		Operators:   []Entity{},
		Values:      []Entity{},
		Connectors:  []Entity{},
		Modifiers:   []Entity{},
		Intents:     []Entity{},
		Booleans:    []Entity{},
		Quantifiers: []Entity{},
		columnKeys:  make(map[columnKey]struct{}),
	}
}

// AddColumn inserts a column entity unless one with the same label already
// starts at the same token. It reports whether the entity was added.
func (e *Entities) AddColumn(col Entity) bool {
	if e.columnKeys == nil {
		e.columnKeys = make(map[columnKey]struct{}, len(e.Columns))
		for _, c := range e.Columns {
			e.columnKeys[columnKey{c.Label, c.Start}] = struct{}{}
		}
	}
	key := columnKey{col.Label, col.Start}
	if _, dup := e.columnKeys[key]; dup {
		return false
	}
	e.columnKeys[key] = struct{}{}
	col.Kind = KindColumn
	e.Columns = append(e.Columns, col)
	return true
}

// Len returns the total number of entities.
func (e *Entities) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Columns) + len(e.Operators) + len(e.Values) + len(e.Connectors) +
		len(e.Modifiers) + len(e.Intents) + len(e.Booleans) + len(e.Quantifiers)
}

// Empty reports whether nothing was recognized.
func (e *Entities) Empty() bool {
	return e.Len() == 0
}

// ValueAt returns the value entity covering token i.
func (e *Entities) ValueAt(i int) (Entity, bool) {
	if e == nil {
		return Entity{}, false
	}
	for _, v := range e.Values {
		if v.Contains(i) {
			return v, true
		}
	}
	return Entity{}, false
}

// BooleanAt returns the boolean indicator covering token i.
func (e *Entities) BooleanAt(i int) (Entity, bool) {
	if e == nil {
		return Entity{}, false
	}
	for _, b := range e.Booleans {
		if b.Contains(i) {
			return b, true
		}
	}
	return Entity{}, false
}

// All returns every entity ordered by start token, then kind.
func (e *Entities) All() []Entity {
	if e == nil {
		return nil
	}
	out := make([]Entity, 0, e.Len())
	for _, group := range [][]Entity{
		e.Columns, e.Operators, e.Values, e.Connectors,
		e.Modifiers, e.Intents, e.Booleans, e.Quantifiers,
	} {
		out = append(out, group...)
	}
	slices.SortStableFunc(out, func(a, b Entity) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		if a.Kind < b.Kind {
			return -1
		}
		if a.Kind > b.Kind {
			return 1
		}
		return 0
	})
	return out
}

func sortByStart(ents []Entity) {
	slices.SortStableFunc(ents, func(a, b Entity) int { return a.Start - b.Start })
}
