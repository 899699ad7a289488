// Package extract pairs recognized columns with values, infers the
// comparison operator of each pair and reads the ordering and limit
// modifiers of a request.
//
// Pairing runs in two passes. The tree pass looks for values in the
// dependency neighbourhood of each column: its descendants, then the other
// dependents of its nearest ancestor, then its siblings. The proximity pass
// gives each column still unpaired the nearest free value within a few
// tokens. Columns implied by an identifier-shaped value pair only with that
// value. Boolean columns left unpaired become conditions on their own.
package extract

import (
	"slices"
	"strconv"

	"github.com/roach88/nl2sql/internal/annotate"
	"github.com/roach88/nl2sql/internal/catalog"
	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/queryir"
	"github.com/roach88/nl2sql/internal/recognize"
	"github.com/roach88/nl2sql/internal/schema"
)

// Pairing strategy names reported in Pair.Strategy.
const (
	StrategyDescendant = "descendant"
	StrategyAncestor   = "ancestor"
	StrategySibling    = "sibling"
	StrategyProximity  = "proximity"
	StrategyIdentifier = "identifier"
	StrategyBoolean    = "boolean"
)

// siblingDeps are the sibling relations that can carry a column's value.
var siblingDeps = map[string]bool{
	"dobj": true, "pobj": true, "attr": true, "nummod": true, "appos": true,
	"npadvmod": true, "acomp": true, "oprd": true, "conj": true,
}

// Pair records how one condition was derived, for explanations.
type Pair struct {
	Column   string   `json:"column"`
	Text     string   `json:"text"`
	Values   []string `json:"values"`
	Strategy string   `json:"strategy"`
	Operator string   `json:"operator"`
	Reason   string   `json:"reason"`
}

// Result is the extracted condition list and modifiers.
type Result struct {
	Conditions []queryir.Condition `json:"conditions"`
	OrderBy    []queryir.OrderBy   `json:"order_by"`
	Limit      *int                `json:"limit"`
	Pairs      []Pair              `json:"pairs"`
}

func emptyResult() Result {
	return Result{
		Conditions: []queryir.Condition{},
		OrderBy:    []queryir.OrderBy{},
		Pairs:      []Pair{},
	}
}

// Extractor derives conditions for one schema and catalog. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	schema  *schema.Schema
	catalog *catalog.Catalog
}

// New returns an Extractor. Nil arguments select the defaults.
func New(s *schema.Schema, c *catalog.Catalog) *Extractor {
	if s == nil {
		s = schema.Default()
	}
	if c == nil {
		c = catalog.Default()
	}
	return &Extractor{schema: s, catalog: c}
}

// state is the bookkeeping of one Extract call.
type state struct {
	x    *Extractor
	doc  *annotate.Document
	ents *recognize.Entities

	claimed  []bool // by value index
	excluded []bool // by column index, used by a modifier
	paired   []bool // by column index

	groups []group
}

// group is one column with the values paired to it.
type group struct {
	col      recognize.Entity
	values   []recognize.Entity
	strategy string
}

// Extract derives the conditions and modifiers of doc. A nil document or
// empty entity set yields an empty result.
func (x *Extractor) Extract(doc *annotate.Document, ents *recognize.Entities) Result {
	if doc.Len() == 0 || ents.Empty() {
		return emptyResult()
	}
	s := &state{
		x:        x,
		doc:      doc,
		ents:     ents,
		claimed:  make([]bool, len(ents.Values)),
		excluded: make([]bool, len(ents.Columns)),
		paired:   make([]bool, len(ents.Columns)),
	}

	res := emptyResult()
	res.Limit = s.limit()
	res.OrderBy = s.orderBy()

	s.treePass()
	s.proximityPass()
	s.identifierPass()

	conds, pairs := s.conditions()
	res.Conditions = conds
	res.Pairs = pairs
	applyConnector(res.Conditions, ents.Connectors)
	return res
}

// limit reads the numeral next to the first limit keyword that has one.
// Numerals after the keyword win over numerals before it; within each
// side the nearest wins.
func (s *state) limit() *int {
	for _, m := range s.ents.Modifiers {
		if m.Label != catalog.ModLimit {
			continue
		}
		best, bestRank := -1, 0
		for vi, v := range s.ents.Values {
			if s.claimed[vi] || v.Type != recognize.TypeInt {
				continue
			}
			var rank int
			switch {
			case v.Start > m.Last() && v.Start-m.Last() <= catalog.MaxLimitSearchDistance:
				rank = v.Start - m.Last()
			case v.Last() < m.Start && m.Start-v.Last() <= catalog.MaxLimitSearchDistance:
				rank = m.Start - v.Last() + catalog.MaxLimitSearchDistance
			default:
				continue
			}
			if best < 0 || rank < bestRank {
				best, bestRank = vi, rank
			}
		}
		if best < 0 {
			continue
		}
		n, err := strconv.Atoi(s.ents.Values[best].Raw)
		if err != nil || n < 0 {
			continue
		}
		s.claimed[best] = true
		return &n
	}
	return nil
}

// orderBy reads ordering keywords and the column each one names.
func (s *state) orderBy() []queryir.OrderBy {
	var triggers []recognize.Entity
	for _, m := range s.ents.Modifiers {
		if m.Label == catalog.ModOrder {
			triggers = append(triggers, m)
		}
	}
	if len(triggers) == 0 {
		for _, m := range s.ents.Modifiers {
			if m.Label == catalog.ModAsc || m.Label == catalog.ModDesc {
				triggers = append(triggers, m)
			}
		}
	}

	out := []queryir.OrderBy{}
	seen := make(map[string]bool)
	for _, trig := range triggers {
		ci := s.orderColumn(trig)
		if ci < 0 {
			continue
		}
		col := s.ents.Columns[ci]
		s.excluded[ci] = true
		if seen[col.Label] {
			continue
		}
		seen[col.Label] = true
		out = append(out, queryir.OrderBy{Column: col.Label, Direction: s.direction(trig, col)})
	}
	return out
}

// orderColumn finds the nearest following column within reach of trig.
// A bare direction keyword may also follow its column ("risk descending").
func (s *state) orderColumn(trig recognize.Entity) int {
	best, bestDist := -1, 0
	for ci, col := range s.ents.Columns {
		if col.Synthetic || s.excluded[ci] {
			continue
		}
		d := col.Start - trig.Last()
		if d <= 0 || d > catalog.MaxOrderSearchDistance {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = ci, d
		}
	}
	if best >= 0 || trig.Label == catalog.ModOrder {
		return best
	}
	for ci, col := range s.ents.Columns {
		if col.Synthetic || s.excluded[ci] {
			continue
		}
		d := trig.Start - col.Last()
		if d <= 0 || d > catalog.MaxOrderSearchDistance {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = ci, d
		}
	}
	return best
}

// direction is DESC when a descending keyword sits between the trigger and
// a few tokens past the column.
func (s *state) direction(trig recognize.Entity, col recognize.Entity) string {
	lo := min(trig.Start, col.Start)
	hi := max(trig.End, col.End) + 3
	dir := queryir.Asc
	for _, m := range s.ents.Modifiers {
		if m.Start < lo || m.Start >= hi {
			continue
		}
		switch m.Label {
		case catalog.ModDesc:
			return queryir.Desc
		case catalog.ModAsc:
			dir = queryir.Asc
		}
	}
	return dir
}

// treePass pairs each named column with the values in its dependency
// neighbourhood. The first level holding a compatible free value wins and
// all values at that level pair with the column.
func (s *state) treePass() {
	for ci, col := range s.ents.Columns {
		if col.Synthetic || s.excluded[ci] {
			continue
		}
		anchor := spanRoot(s.doc, col)
		levels := []struct {
			name   string
			tokens []int
		}{
			{StrategyDescendant, s.doc.Descendants(anchor, catalog.MaxTreeSearchDepth)},
			{StrategyAncestor, s.ancestorLevel(col, anchor)},
			{StrategySibling, s.siblingLevel(anchor)},
		}
		for _, lvl := range levels {
			vals := s.valuesAt(col, lvl.tokens)
			if len(vals) == 0 {
				continue
			}
			s.pair(ci, vals, lvl.name)
			break
		}
	}
}

// ancestorLevel returns the tokens offered by the nearest ancestor that
// offers any: the ancestor itself when it is a value, else its other
// dependents.
func (s *state) ancestorLevel(col recognize.Entity, anchor int) []int {
	for _, anc := range s.doc.Ancestors(anchor) {
		if col.Contains(anc) {
			continue
		}
		var tokens []int
		tokens = append(tokens, anc)
		for _, child := range s.doc.Children(anc) {
			if child == anchor || col.Contains(child) {
				continue
			}
			tokens = append(tokens, child)
		}
		if len(s.valuesAt(col, tokens)) > 0 {
			return tokens
		}
	}
	return nil
}

func (s *state) siblingLevel(anchor int) []int {
	var out []int
	for _, sib := range s.doc.Siblings(anchor) {
		if siblingDeps[s.doc.Tokens[sib].Dep] {
			out = append(out, sib)
		}
	}
	return out
}

// valuesAt returns the indices of free values compatible with col that
// cover any of tokens, in token order.
func (s *state) valuesAt(col recognize.Entity, tokens []int) []int {
	if len(tokens) == 0 {
		return nil
	}
	in := make(map[int]bool, len(tokens))
	for _, t := range tokens {
		in[t] = true
	}
	var out []int
	for vi, v := range s.ents.Values {
		if s.claimed[vi] || !s.compatible(col, v) {
			continue
		}
		for t := v.Start; t < v.End; t++ {
			if in[t] {
				out = append(out, vi)
				break
			}
		}
	}
	return out
}

// compatible reports whether v can be the value of col: boolean columns
// take only booleans, numeric columns only numbers, and other columns
// anything but a boolean.
func (s *state) compatible(col, v recognize.Entity) bool {
	switch {
	case s.x.schema.IsBoolean(col.Label):
		return v.IsBooleanValue()
	case s.x.schema.IsNumeric(col.Label):
		return v.IsNumericValue()
	default:
		return !v.IsBooleanValue()
	}
}

func (s *state) pair(ci int, vals []int, strategy string) {
	g := group{col: s.ents.Columns[ci], strategy: strategy}
	for _, vi := range vals {
		s.claimed[vi] = true
		g.values = append(g.values, s.ents.Values[vi])
	}
	s.paired[ci] = true
	s.groups = append(s.groups, g)
}

// proximityPass gives each unpaired named column the nearest free value
// within MaxProximityDistance tokens. Ties go to the left.
func (s *state) proximityPass() {
	for ci, col := range s.ents.Columns {
		if col.Synthetic || s.excluded[ci] || s.paired[ci] {
			continue
		}
		best, bestDist := -1, 0
		for vi, v := range s.ents.Values {
			if s.claimed[vi] || !s.compatible(col, v) {
				continue
			}
			d := gap(col, v)
			if d <= 0 || d > catalog.MaxProximityDistance {
				continue
			}
			if best < 0 || d < bestDist || (d == bestDist && v.Start < s.ents.Values[best].Start) {
				best, bestDist = vi, d
			}
		}
		if best >= 0 {
			s.pair(ci, []int{best}, StrategyProximity)
		}
	}
}

// identifierPass pairs each implied column with the value it was implied
// by, unless a named column already claimed that value.
func (s *state) identifierPass() {
	for ci, col := range s.ents.Columns {
		if !col.Synthetic || s.excluded[ci] || s.paired[ci] || s.x.schema.IsBoolean(col.Label) {
			continue
		}
		for vi, v := range s.ents.Values {
			if v.Start == col.Start && !s.claimed[vi] {
				s.pair(ci, []int{vi}, StrategyIdentifier)
				break
			}
		}
	}
}

// conditions turns groups and unpaired boolean columns into conditions in
// column token order, dropping exact duplicates.
func (s *state) conditions() ([]queryir.Condition, []Pair) {
	type entry struct {
		start int
		conds []queryir.Condition
		pairs []Pair
	}
	var entries []entry

	for _, g := range s.groups {
		conds, pairs := s.groupConditions(g)
		entries = append(entries, entry{start: g.col.Start, conds: conds, pairs: pairs})
	}
	for ci, col := range s.ents.Columns {
		if s.excluded[ci] || s.paired[ci] || !s.x.schema.IsBoolean(col.Label) {
			continue
		}
		val, reason := s.booleanValue(col)
		entries = append(entries, entry{
			start: col.Start,
			conds: []queryir.Condition{{Column: col.Label, Operator: queryir.OpEq, Value: ir.IRBool(val)}},
			pairs: []Pair{{
				Column: col.Label, Text: col.Text, Values: []string{strconv.FormatBool(val)},
				Strategy: StrategyBoolean, Operator: queryir.OpEq, Reason: reason,
			}},
		})
	}
	slices.SortStableFunc(entries, func(a, b entry) int { return a.start - b.start })

	conds := []queryir.Condition{}
	pairs := []Pair{}
	for _, e := range entries {
		for k, c := range e.conds {
			if containsCondition(conds, c) {
				continue
			}
			conds = append(conds, c)
			pairs = append(pairs, e.pairs[k])
		}
	}
	return conds, pairs
}

// booleanValue is true unless the column is negated or asserted false by
// a polar word at its position.
func (s *state) booleanValue(col recognize.Entity) (bool, string) {
	val, reason := true, "mentioned"
	if ind, ok := s.ents.BooleanAt(col.Start); ok && ind.Label == col.Label {
		if b, isBool := ind.Value.(ir.IRBool); isBool {
			val = bool(b)
			reason = "polar word " + ind.Text
		}
	}
	if s.negated(col) {
		val = !val
		reason = "negated"
	}
	return val, reason
}

func (s *state) groupConditions(g group) ([]queryir.Condition, []Pair) {
	if op, ok := s.membership(g); ok {
		list := make(ir.IRArray, len(g.values))
		texts := make([]string, len(g.values))
		for i, v := range g.values {
			list[i] = v.Value
			texts[i] = v.Text
		}
		return []queryir.Condition{{Column: g.col.Label, Operator: op, Value: list}},
			[]Pair{{Column: g.col.Label, Text: g.col.Text, Values: texts, Strategy: g.strategy, Operator: op, Reason: "membership"}}
	}

	conds := make([]queryir.Condition, 0, len(g.values))
	pairs := make([]Pair, 0, len(g.values))
	for _, v := range g.values {
		inf := s.inferOperator(g.col, v)
		conds = append(conds, queryir.Condition{Column: g.col.Label, Operator: inf.op, Value: inf.value, Pattern: inf.pattern})
		pairs = append(pairs, Pair{
			Column: g.col.Label, Text: g.col.Text, Values: []string{v.Text},
			Strategy: g.strategy, Operator: inf.op, Reason: inf.reason,
		})
	}
	return conds, pairs
}

func containsCondition(conds []queryir.Condition, c queryir.Condition) bool {
	for _, have := range conds {
		if have.Column == c.Column && have.Operator == c.Operator && have.Pattern == c.Pattern && ir.Equal(have.Value, c.Value) {
			return true
		}
	}
	return false
}

// applyConnector sets the same logic on every condition when there is more
// than one: OR when or-connectors are present and not outnumbered.
func applyConnector(conds []queryir.Condition, connectors []recognize.Entity) {
	if len(conds) < 2 {
		return
	}
	ors, ands := 0, 0
	for _, c := range connectors {
		if c.Label == catalog.ConnOr {
			ors++
		} else {
			ands++
		}
	}
	logic := queryir.LogicAnd
	if ors > 0 && ors >= ands {
		logic = queryir.LogicOr
	}
	for i := range conds {
		conds[i].Logic = logic
	}
}

// spanRoot returns the token of e that the rest of the tree hangs from:
// the last token whose head lies outside the span.
func spanRoot(doc *annotate.Document, e recognize.Entity) int {
	root := e.Last()
	for i := e.Start; i < e.End; i++ {
		h := doc.Head(i)
		if h == i || !e.Contains(h) {
			root = i
		}
	}
	return root
}

// gap is the token distance between two spans; adjacent spans are 1 apart
// and overlapping spans 0.
func gap(a, b recognize.Entity) int {
	switch {
	case b.Start >= a.End:
		return b.Start - a.Last()
	case a.Start >= b.End:
		return a.Start - b.Last()
	default:
		return 0
	}
}
