package extract

import (
	"github.com/roach88/nl2sql/internal/catalog"
	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/queryir"
	"github.com/roach88/nl2sql/internal/recognize"
)

// Operator inference reasons reported in Pair.Reason.
const (
	ReasonExplicit    = "explicit"
	ReasonNegation    = "negation"
	ReasonComparison  = "comparison"
	ReasonContainment = "containment"
	ReasonMembership  = "membership"
	ReasonDefault     = "default"
)

// affectedDepth is how far up the tree an "affected by" head still turns a
// pair into a containment match.
const affectedDepth = 2

type inference struct {
	op      string
	value   ir.IRValue
	pattern bool
	reason  string
}

// inferOperator picks the operator of one column/value pair. The first
// strategy that fires wins: an operator keyword near the pair, a negation,
// a comparison word, a containment cue, and finally equality.
func (s *state) inferOperator(col, v recognize.Entity) inference {
	region := s.region(col, v)
	link := s.link(col, v)

	if op, ok := s.explicitOperator(region); ok {
		if op == queryir.OpLike {
			return inference{op: op, value: likeValue(v), pattern: isPrefixAddress(v), reason: ReasonExplicit}
		}
		return inference{op: op, value: v.Value, reason: ReasonExplicit}
	}

	if s.anyNegation(link) || s.negated(col) {
		return inference{op: queryir.OpNotEq, value: v.Value, reason: ReasonNegation}
	}

	for _, t := range region {
		if op, ok := s.x.catalog.ComparisonOperator(s.doc.Lower(t)); ok {
			return inference{op: op, value: v.Value, reason: ReasonComparison}
		}
	}

	if inf, ok := s.containment(col, v, region); ok {
		return inf
	}
	return inference{op: queryir.OpEq, value: v.Value, reason: ReasonDefault}
}

// membership reports an IN condition: several values introduced by "in"
// right after the column, as in "site in 54 and 55".
func (s *state) membership(g group) (string, bool) {
	if len(g.values) < 2 {
		return "", false
	}
	first := g.values[0].Start
	for _, op := range s.ents.Operators {
		if op.Label == string(catalog.OpIn) && op.Start > g.col.Last() && op.End <= first {
			return queryir.OpIn, true
		}
	}
	return "", false
}

// region is the set of tokens that can carry the operator of a pair: the
// dependency path between them, the tokens between them, and their direct
// dependents. Tokens of the pair itself are left out.
func (s *state) region(col, v recognize.Entity) []int {
	seen := make(map[int]bool)
	var out []int
	add := func(t int) {
		if seen[t] || col.Contains(t) || v.Contains(t) {
			return
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, t := range s.link(col, v) {
		add(t)
	}
	for _, e := range []recognize.Entity{v, col} {
		for t := e.Start; t < e.End; t++ {
			for _, c := range s.doc.Children(t) {
				add(c)
			}
		}
	}
	return out
}

// link is the dependency path between a pair plus the tokens lying
// between their spans.
func (s *state) link(col, v recognize.Entity) []int {
	out := s.doc.Path(spanRoot(s.doc, col), spanRoot(s.doc, v))
	lo, hi := col.End, v.Start
	if v.End <= col.Start {
		lo, hi = v.End, col.Start
	}
	for t := lo; t < hi; t++ {
		out = append(out, t)
	}
	return out
}

// explicitOperator returns the SQL of the first operator keyword in
// region. Membership "in" is handled at the group level and skipped here.
func (s *state) explicitOperator(region []int) (string, bool) {
	in := make(map[int]bool, len(region))
	for _, t := range region {
		in[t] = true
	}
	for _, op := range s.ents.Operators {
		if op.Label == string(catalog.OpIn) {
			continue
		}
		for t := op.Start; t < op.End; t++ {
			if in[t] {
				return catalog.OperatorKind(op.Label).SQL(), true
			}
		}
	}
	return "", false
}

func (s *state) anyNegation(tokens []int) bool {
	for _, t := range tokens {
		tok, ok := s.doc.Token(t)
		if !ok {
			continue
		}
		if tok.Dep == "neg" || s.x.catalog.IsNegation(tok.Text) {
			return true
		}
	}
	return false
}

// negated reports whether col is negated: it or its head has a neg
// dependent, or a negation word sits just before it.
func (s *state) negated(col recognize.Entity) bool {
	anchor := spanRoot(s.doc, col)
	if s.doc.HasChildDep(anchor, "neg") {
		return true
	}
	if h := s.doc.Head(anchor); h >= 0 && h != anchor && s.doc.HasChildDep(h, "neg") {
		return true
	}
	for t := max(0, col.Start-catalog.MaxNegationDistance); t < col.Start; t++ {
		if s.x.catalog.IsNegation(s.doc.Lower(t)) {
			return true
		}
	}
	return false
}

// containment turns prefix, suffix and substring cues into LIKE. Address
// prefixes are already patterns.
func (s *state) containment(col, v recognize.Entity, region []int) (inference, bool) {
	if isPrefixAddress(v) {
		return inference{op: queryir.OpLike, value: v.Value, pattern: true, reason: ReasonContainment}, true
	}
	raw := rawText(v)
	for _, t := range region {
		kind, ok := s.x.catalog.Containment(s.doc.Lower(t))
		if !ok {
			continue
		}
		var pattern string
		switch kind {
		case catalog.ContainsPrefix:
			pattern = queryir.PrefixPattern(raw)
		case catalog.ContainsSuffix:
			pattern = queryir.SuffixPattern(raw)
		default:
			return inference{op: queryir.OpLike, value: likeValue(v), reason: ReasonContainment}, true
		}
		return inference{op: queryir.OpLike, value: ir.IRString(pattern), pattern: true, reason: ReasonContainment}, true
	}
	for _, e := range []recognize.Entity{col, v} {
		ancestors := s.doc.Ancestors(spanRoot(s.doc, e))
		for k, anc := range ancestors {
			if k >= affectedDepth {
				break
			}
			if s.x.catalog.IsAffectedHead(s.doc.Lower(anc)) {
				return inference{op: queryir.OpLike, value: likeValue(v), reason: ReasonContainment}, true
			}
		}
	}
	return inference{}, false
}

// isPrefixAddress reports a partial IPv4 value, recognized as a pattern.
func isPrefixAddress(v recognize.Entity) bool {
	return v.Shape == recognize.ShapeIPv4Prefix
}

// likeValue is the value a LIKE condition carries: strings as they are,
// anything else as its source text.
func likeValue(v recognize.Entity) ir.IRValue {
	if _, ok := v.Value.(ir.IRString); ok {
		return v.Value
	}
	return ir.IRString(rawText(v))
}

func rawText(v recognize.Entity) string {
	if s, ok := v.Value.(ir.IRString); ok {
		return string(s)
	}
	if v.Raw != "" {
		return v.Raw
	}
	return v.Text
}
