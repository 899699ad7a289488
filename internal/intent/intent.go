// Package intent decides what a request asks for: matching rows, a count,
// or whether any row exists. It also detects aggregations and the output
// columns the request names explicitly.
package intent

import (
	"github.com/roach88/nl2sql/internal/annotate"
	"github.com/roach88/nl2sql/internal/catalog"
	"github.com/roach88/nl2sql/internal/queryir"
	"github.com/roach88/nl2sql/internal/recognize"
	"github.com/roach88/nl2sql/internal/schema"
)

// Intent types.
const (
	Select = "select"
	Count  = "count"
	Exists = "exists"
)

// Strategy names reported in Intent.Strategy.
const (
	StrategyMultiValue = "multi_value"
	StrategyExplicit   = "explicit"
	StrategyDependency = "dependency"
	StrategyKeyword    = "keyword"
	StrategyDefault    = "default"
)

// Fixed confidence per strategy.
const (
	ConfidenceMultiValue = 0.95
	ConfidenceExplicit   = 0.9
	ConfidenceDependency = 0.8
	ConfidenceKeyword    = 0.6
	ConfidenceDefault    = 0.5
)

// AggregationExists marks an existence check.
const AggregationExists = "EXISTS"

// selectColumnDepth bounds the search for a value below a named output
// column; a column with a value is a filter, not an output.
const selectColumnDepth = 3

// Intent is the classification of one request.
type Intent struct {
	Type          string   `json:"type"`
	Confidence    float64  `json:"confidence"`
	Aggregation   string   `json:"aggregation,omitempty"`
	SelectColumns []string `json:"select_columns"`
	Strategy      string   `json:"strategy"`
	Limit         *int     `json:"limit,omitempty"`
}

// Classifier runs the intent cascade for one schema and catalog. It is
// safe for concurrent use.
type Classifier struct {
	schema  *schema.Schema
	catalog *catalog.Catalog
}

// New returns a Classifier. Nil arguments select the defaults.
func New(s *schema.Schema, c *catalog.Catalog) *Classifier {
	if s == nil {
		s = schema.Default()
	}
	if c == nil {
		c = catalog.Default()
	}
	return &Classifier{schema: s, catalog: c}
}

// strategy returns an intent type and true when it recognizes the request.
type strategy struct {
	name       string
	confidence float64
	fn         func(*Classifier, *annotate.Document, *recognize.Entities) (string, bool)
}

var cascade = []strategy{
	{StrategyMultiValue, ConfidenceMultiValue, (*Classifier).multiValue},
	{StrategyExplicit, ConfidenceExplicit, (*Classifier).explicit},
	{StrategyDependency, ConfidenceDependency, (*Classifier).dependency},
	{StrategyKeyword, ConfidenceKeyword, (*Classifier).keyword},
}

// Classify runs the cascade; the first strategy that matches decides the
// type. A request no strategy recognizes is a select at default confidence.
func (c *Classifier) Classify(doc *annotate.Document, ents *recognize.Entities) Intent {
	if ents == nil {
		ents = recognize.NewEntities()
	}
	typ, name, conf := Select, StrategyDefault, ConfidenceDefault
	if doc.Len() > 0 {
		for _, s := range cascade {
			if t, ok := s.fn(c, doc, ents); ok {
				typ, name, conf = t, s.name, s.confidence
				break
			}
		}
	}

	in := Intent{
		Type:          typ,
		Confidence:    conf,
		Aggregation:   c.aggregation(doc),
		SelectColumns: []string{queryir.SelectAll},
		Strategy:      name,
	}
	switch typ {
	case Count:
		in.Aggregation = "COUNT"
		in.SelectColumns = []string{queryir.SelectCount}
	case Exists:
		in.Aggregation = AggregationExists
		one := 1
		in.Limit = &one
	default:
		if cols := c.selectColumns(doc, ents); len(cols) > 0 {
			in.SelectColumns = c.applyAggregation(in.Aggregation, cols)
		}
	}
	return in
}

// multiValue forces a select when a multi-value column is referenced and
// the request lists several same-typed values or is phrased as a yes/no
// question. Such requests enumerate rows rather than test for one.
func (c *Classifier) multiValue(doc *annotate.Document, ents *recognize.Entities) (string, bool) {
	referenced := false
	for _, col := range ents.Columns {
		if c.schema.IsListValued(col.Label) {
			referenced = true
			break
		}
	}
	if !referenced {
		return "", false
	}
	byType := make(map[recognize.ValueType]int)
	for _, v := range ents.Values {
		byType[v.Type]++
		if byType[v.Type] > 1 {
			return Select, true
		}
	}
	if len(ents.Values) > 0 && c.catalog.IsAuxOpener(doc.Lower(0)) {
		return Select, true
	}
	return "", false
}

// explicit uses the recognized intent keywords. A count phrase beats an
// existence word, which beats a select verb.
func (c *Classifier) explicit(_ *annotate.Document, ents *recognize.Entities) (string, bool) {
	found := make(map[string]bool)
	for _, e := range ents.Intents {
		found[e.Label] = true
	}
	for _, t := range []string{catalog.IntentCount, catalog.IntentExists, catalog.IntentSelect} {
		if found[t] {
			return t, true
		}
	}
	return "", false
}

// dependency reads the sentence root.
func (c *Classifier) dependency(doc *annotate.Document, _ *recognize.Entities) (string, bool) {
	root, ok := doc.Token(doc.Root())
	if !ok {
		return "", false
	}
	lemma := root.LowerLemma()
	if c.catalog.IsCountRoot(lemma) && c.hasQuantityWord(doc) {
		return Count, true
	}
	if c.catalog.IsExistsRoot(lemma) && c.catalog.IsAuxOpener(doc.Lower(0)) {
		return Exists, true
	}
	if label, ok := c.catalog.Intent(lemma); ok && label == catalog.IntentSelect {
		return Select, true
	}
	return "", false
}

// keyword scans lemmas for count words, then checks for a question
// opening on an auxiliary.
func (c *Classifier) keyword(doc *annotate.Document, _ *recognize.Entities) (string, bool) {
	for _, tok := range doc.Tokens {
		if agg, ok := c.catalog.Aggregation(tok.LowerLemma()); ok && agg == "COUNT" {
			return Count, true
		}
	}
	if c.catalog.IsAuxOpener(doc.Lower(0)) {
		return Exists, true
	}
	return "", false
}

func (c *Classifier) hasQuantityWord(doc *annotate.Document) bool {
	for _, tok := range doc.Tokens {
		if c.catalog.IsQuantityWord(tok.Lower()) {
			return true
		}
	}
	return false
}

// aggregation scans the whole request for an aggregation cue. Phrases are
// checked before single lemmas.
func (c *Classifier) aggregation(doc *annotate.Document) string {
	if doc.Len() == 0 {
		return ""
	}
	for i := 0; i < doc.Len(); i++ {
		for _, p := range c.catalog.AggregationPhrases() {
			if catalog.MatchPhrase(doc, i, p) {
				return p.Label
			}
		}
	}
	for _, tok := range doc.Tokens {
		if agg, ok := c.catalog.Aggregation(tok.LowerLemma()); ok {
			return agg
		}
	}
	return ""
}

// applyAggregation wraps the first numeric output column in a SUM, AVG, MAX
// or MIN aggregation. Other aggregations leave the columns as they are.
func (c *Classifier) applyAggregation(agg string, cols []string) []string {
	switch agg {
	case "SUM", "AVG", "MAX", "MIN":
	default:
		return cols
	}
	for _, col := range cols {
		if c.schema.IsNumeric(col) {
			return []string{agg + "(" + col + ")"}
		}
	}
	return cols
}

// selectColumns returns the columns the request names as output: objects
// of the root select verb and their conjuncts, or columns taking an "of"
// phrase ("hostname of assets"). A column with a value below it is a filter.
func (c *Classifier) selectColumns(doc *annotate.Document, ents *recognize.Entities) []string {
	root := doc.Root()
	rootTok, ok := doc.Token(root)
	if !ok {
		return nil
	}
	label, _ := c.catalog.Intent(rootTok.LowerLemma())
	selectRoot := label == catalog.IntentSelect

	var out []string
	seen := make(map[string]bool)
	for _, col := range ents.Columns {
		if col.Synthetic || c.schema.IsBoolean(col.Label) || seen[col.Label] {
			continue
		}
		anchor := col.Last()
		for i := col.Start; i < col.End; i++ {
			if h := doc.Head(i); !col.Contains(h) || h == i {
				anchor = i
			}
		}
		if !(selectRoot && governedByRoot(doc, anchor, root)) && !c.hasOfObject(doc, anchor, ents) {
			continue
		}
		if hasValueBelow(doc, anchor, ents) {
			continue
		}
		seen[col.Label] = true
		out = append(out, col.Label)
	}
	return out
}

// governedByRoot reports a direct object of root, or an apposition or
// conjunct of one.
func governedByRoot(doc *annotate.Document, t, root int) bool {
	for depth := 0; depth < annotate.MaxDependencyDepth; depth++ {
		tok, ok := doc.Token(t)
		if !ok {
			return false
		}
		switch tok.Dep {
		case "dobj":
			return tok.Head == root
		case "conj", "appos":
			if tok.Head == t {
				return false
			}
			t = tok.Head
		default:
			return false
		}
	}
	return false
}

func (c *Classifier) hasOfObject(doc *annotate.Document, t int, ents *recognize.Entities) bool {
	for _, prep := range doc.Children(t) {
		if doc.Lower(prep) != "of" {
			continue
		}
		for _, obj := range doc.Children(prep) {
			if doc.Tokens[obj].Dep == "pobj" && !isColumnToken(ents, obj) {
				return true
			}
		}
	}
	return false
}

func isColumnToken(ents *recognize.Entities, t int) bool {
	for _, col := range ents.Columns {
		if col.Contains(t) {
			return true
		}
	}
	return false
}

func hasValueBelow(doc *annotate.Document, t int, ents *recognize.Entities) bool {
	for _, d := range doc.Descendants(t, selectColumnDepth) {
		if _, ok := ents.ValueAt(d); ok {
			return true
		}
	}
	return false
}
