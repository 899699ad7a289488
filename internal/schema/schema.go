package schema

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue/token"
)

// Shape names for literal values that can imply a column.
const (
	ShapeCVE    = "cve"
	ShapeIPv4   = "ipv4"
	ShapeMAC    = "mac"
	ShapeVendor = "vendor"
)

// TypeClass groups SQL column types by how values compare against them.
type TypeClass string

const (
	ClassText      TypeClass = "text"
	ClassInteger   TypeClass = "integer"
	ClassReal      TypeClass = "real"
	ClassBoolean   TypeClass = "boolean"
	ClassTimestamp TypeClass = "timestamp"
)

// Column is one column definition.
type Column struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	PrimaryKey bool     `json:"primary_key,omitempty"`
	MultiValue bool     `json:"multi_value,omitempty"`
	TextList   bool     `json:"text_list,omitempty"`
	Identifier string   `json:"identifier,omitempty"`
	Synonyms   []string `json:"synonyms"`
}

// Class returns the comparison class of the column's SQL type.
func (c Column) Class() TypeClass {
	return classify(c.Type)
}

func classify(sqlType string) TypeClass {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	switch t {
	case "BOOLEAN", "BOOL":
		return ClassBoolean
	case "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT":
		return ClassInteger
	case "REAL", "FLOAT", "DOUBLE", "NUMERIC", "DECIMAL":
		return ClassReal
	case "TIMESTAMP", "DATETIME", "DATE":
		return ClassTimestamp
	default:
		return ClassText
	}
}

// Schema is an immutable table description.
// All lookups are case-insensitive and safe for concurrent use.
type Schema struct {
	table       string
	columns     []Column
	byName      map[string]int    // lower-cased name -> index
	synonyms    map[string]string // lower-cased single-word synonym -> name
	phrases     map[string]string // lower-cased multiword synonym -> name
	maxWords    int
	identifiers map[string]string // shape -> name
}

// New builds a schema and validates it. Column names are always their own
// synonyms.
func New(table string, columns []Column) (*Schema, error) {
	s, cerr := build(table, columns, nil)
	if cerr != nil {
		return nil, cerr
	}
	return s, nil
}

func build(table string, columns []Column, pos func(i int) token.Pos) (*Schema, *CompileError) {
	at := func(i int) token.Pos {
		if pos == nil {
			return token.NoPos
		}
		return pos(i)
	}

	table = strings.TrimSpace(table)
	if table == "" {
		return nil, &CompileError{Field: "table", Message: "table name is required", Pos: at(-1)}
	}
	if len(columns) == 0 {
		return nil, &CompileError{Field: "columns", Message: "at least one column is required", Pos: at(-1)}
	}

	s := &Schema{
		table:       table,
		columns:     make([]Column, 0, len(columns)),
		byName:      make(map[string]int, len(columns)),
		synonyms:    make(map[string]string),
		phrases:     make(map[string]string),
		maxWords:    1,
		identifiers: make(map[string]string),
	}

	for i, col := range columns {
		name := strings.TrimSpace(col.Name)
		field := "columns." + name
		if name == "" {
			return nil, &CompileError{Field: fmt.Sprintf("columns[%d]", i), Message: "column name is required", Pos: at(i)}
		}
		if strings.TrimSpace(col.Type) == "" {
			return nil, &CompileError{Field: field + ".type", Message: "column type is required", Pos: at(i)}
		}
		key := strings.ToLower(name)
		if _, dup := s.byName[key]; dup {
			return nil, &CompileError{Field: field, Message: "duplicate column", Pos: at(i)}
		}
		if col.MultiValue && classify(col.Type) == ClassBoolean {
			return nil, &CompileError{Field: field + ".multi_value", Message: "boolean column cannot be multi-valued", Pos: at(i)}
		}
		if col.Identifier != "" {
			switch col.Identifier {
			case ShapeCVE, ShapeIPv4, ShapeMAC, ShapeVendor:
			default:
				return nil, &CompileError{Field: field + ".identifier", Message: fmt.Sprintf("unknown identifier shape %q", col.Identifier), Pos: at(i)}
			}
			if other, dup := s.identifiers[col.Identifier]; dup {
				return nil, &CompileError{Field: field + ".identifier", Message: fmt.Sprintf("shape %q already implies column %s", col.Identifier, other), Pos: at(i)}
			}
			s.identifiers[col.Identifier] = name
		}

		col.Name = name
		col.Synonyms = normalizeSynonyms(name, col.Synonyms)
		for _, syn := range col.Synonyms {
			words := strings.Fields(syn)
			target := s.synonyms
			if len(words) > 1 {
				target = s.phrases
				s.maxWords = max(s.maxWords, len(words))
			}
			if other, dup := target[syn]; dup && other != name {
				return nil, &CompileError{Field: field + ".synonyms", Message: fmt.Sprintf("synonym %q already used by column %s", syn, other), Pos: at(i)}
			}
			target[syn] = name
		}

		s.byName[key] = len(s.columns)
		s.columns = append(s.columns, col)
	}
	return s, nil
}

// normalizeSynonyms lower-cases, collapses internal whitespace and dedupes,
// with the column name first.
func normalizeSynonyms(name string, synonyms []string) []string {
	out := []string{strings.ToLower(name)}
	for _, syn := range synonyms {
		syn = strings.Join(strings.Fields(strings.ToLower(syn)), " ")
		if syn != "" && !slices.Contains(out, syn) {
			out = append(out, syn)
		}
	}
	return out
}

// Table returns the default table name.
func (s *Schema) Table() string {
	return s.table
}

// WithTable returns a copy of s that targets a different table name.
// An empty name returns s unchanged.
func (s *Schema) WithTable(table string) *Schema {
	table = strings.TrimSpace(table)
	if table == "" || table == s.table {
		return s
	}
	cp := *s
	cp.table = table
	return &cp
}

// Columns returns the column definitions in declaration order.
func (s *Schema) Columns() []Column {
	return slices.Clone(s.columns)
}

// ColumnNames returns the column names in declaration order.
func (s *Schema) ColumnNames() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// Column returns the definition of the named column.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Has reports whether name is a column of the table.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[strings.ToLower(name)]
	return ok
}

// Lookup resolves a single word to the column it names.
func (s *Schema) Lookup(word string) (string, bool) {
	name, ok := s.synonyms[strings.ToLower(strings.TrimSpace(word))]
	return name, ok
}

// LookupPhrase resolves a run of words to the column it names. Single
// words are resolved like Lookup.
func (s *Schema) LookupPhrase(words ...string) (string, bool) {
	if len(words) == 1 {
		return s.Lookup(words[0])
	}
	name, ok := s.phrases[strings.ToLower(strings.Join(words, " "))]
	return name, ok
}

// MaxPhraseWords is the word count of the longest synonym.
func (s *Schema) MaxPhraseWords() int {
	return s.maxWords
}

// IsBoolean reports whether the column holds booleans.
func (s *Schema) IsBoolean(name string) bool {
	col, ok := s.Column(name)
	return ok && col.Class() == ClassBoolean
}

// IsNumeric reports whether the column holds integers or reals.
func (s *Schema) IsNumeric(name string) bool {
	col, ok := s.Column(name)
	return ok && (col.Class() == ClassInteger || col.Class() == ClassReal)
}

// IsMultiValue reports whether the column stores several values per row.
func (s *Schema) IsMultiValue(name string) bool {
	col, ok := s.Column(name)
	return ok && col.MultiValue
}

// IsListValued reports whether the column is multi-valued or a text list.
func (s *Schema) IsListValued(name string) bool {
	col, ok := s.Column(name)
	return ok && (col.MultiValue || col.TextList)
}

// IdentifierColumn returns the column implied by a literal shape.
func (s *Schema) IdentifierColumn(shape string) (string, bool) {
	name, ok := s.identifiers[shape]
	return name, ok
}

// PrimaryKey returns the first primary key column, or the first column.
func (s *Schema) PrimaryKey() string {
	for _, c := range s.columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return s.columns[0].Name
}
