package recognize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/roach88/nl2sql/internal/annotate"
	"github.com/roach88/nl2sql/internal/catalog"
	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/schema"
)

// maxCVETokens is the widest token window joined when looking for a CVE
// identifier that the tokenizer split at its hyphens.
const maxCVETokens = 5

var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Recognizer tags documents against one schema and catalog. It holds no
// mutable state and is safe for concurrent use.
type Recognizer struct {
	schema  *schema.Schema
	catalog *catalog.Catalog
}

// New returns a Recognizer. Nil arguments select the defaults.
func New(s *schema.Schema, c *catalog.Catalog) *Recognizer {
	if s == nil {
		s = schema.Default()
	}
	if c == nil {
		c = catalog.Default()
	}
	return &Recognizer{schema: s, catalog: c}
}

// Schema returns the schema the recognizer matches columns against.
func (r *Recognizer) Schema() *schema.Schema {
	return r.schema
}

// pass carries the per-document state of one Recognize call.
type pass struct {
	r    *Recognizer
	doc  *annotate.Document
	ents *Entities

	// phrase marks tokens claimed by a multiword column synonym.
	phrase map[int]bool
	// valued marks tokens covered by a value entity.
	valued map[int]bool
	// keyword marks tokens claimed by a multiword keyword phrase.
	keyword map[int]bool
}

// Recognize tags doc. It never fails: a nil or empty document yields an
// empty set, and tokens that fail to parse as literals are skipped.
func (r *Recognizer) Recognize(doc *annotate.Document) *Entities {
	ents := NewEntities()
	if doc.Len() == 0 {
		return ents
	}
	p := &pass{
		r:       r,
		doc:     doc,
		ents:    ents,
		phrase:  make(map[int]bool),
		valued:  make(map[int]bool),
		keyword: make(map[int]bool),
	}

	p.columnPhrases()
	p.cveSpans()
	p.quotedSpans()
	p.tokenValues()
	p.columns()
	p.booleans()
	p.operators()
	p.connectors()
	p.intents()
	p.quantifiers()
	p.modifiers()
	p.adjacentListValues()
	p.identifierColumns()

	sortByStart(ents.Columns)
	sortByStart(ents.Values)
	sortByStart(ents.Operators)
	sortByStart(ents.Connectors)
	sortByStart(ents.Intents)
	return ents
}

// columnPhrases matches multiword synonyms, longest first, and claims their
// tokens so the words inside are not matched again on their own.
func (p *pass) columnPhrases() {
	maxWords := p.r.schema.MaxPhraseWords()
	if maxWords < 2 {
		return
	}
	n := p.doc.Len()
	for i := 0; i < n; i++ {
		for w := min(maxWords, n-i); w >= 2; w-- {
			words := make([]string, w)
			for k := range words {
				words[k] = p.doc.Lower(i + k)
			}
			name, ok := p.r.schema.LookupPhrase(words...)
			if !ok {
				continue
			}
			p.ents.AddColumn(Entity{Label: name, Start: i, End: i + w, Text: p.doc.SpanText(i, i+w)})
			for k := i; k < i+w; k++ {
				p.phrase[k] = true
			}
			i += w - 1
			break
		}
	}
}

// cveSpans finds CVE identifiers, whole or split across tokens.
func (p *pass) cveSpans() {
	n := p.doc.Len()
	for i := 0; i < n; i++ {
		first := p.doc.Tokens[i].Text
		if len(first) < 3 || !strings.EqualFold(first[:3], "cve") {
			continue
		}
		end := -1
		var joined strings.Builder
		for j := i; j < min(n, i+maxCVETokens); j++ {
			joined.WriteString(p.doc.Tokens[j].Text)
			if p.r.catalog.IsCVE(joined.String()) {
				end = j + 1
			}
		}
		if end < 0 {
			continue
		}
		var raw strings.Builder
		for j := i; j < end; j++ {
			raw.WriteString(p.doc.Tokens[j].Text)
		}
		p.addValue(Entity{
			Start: i, End: end, Text: p.doc.SpanText(i, end),
			Raw: raw.String(), Value: ir.IRString(raw.String()),
			Type: TypeIdentifier, Shape: ShapeCVE,
		})
		i = end - 1
	}
}

func isQuote(s string) bool {
	switch s {
	case `"`, `'`, "“", "”", "‘", "’", "`":
		return true
	}
	return false
}

// unquote strips a matching pair of quote characters around a single token.
func unquote(text string) (string, bool) {
	first, n := utf8.DecodeRuneInString(text)
	last, m := utf8.DecodeLastRuneInString(text)
	if len(text) < n+m || !isQuote(string(first)) || !isQuote(string(last)) {
		return "", false
	}
	return text[n : len(text)-m], true
}

// quotedSpans turns text between a pair of quote tokens into one string value.
func (p *pass) quotedSpans() {
	n := p.doc.Len()
	for i := 0; i < n; i++ {
		if p.valued[i] || !isQuote(p.doc.Tokens[i].Text) {
			continue
		}
		closing := -1
		for j := i + 1; j < n; j++ {
			if isQuote(p.doc.Tokens[j].Text) {
				closing = j
				break
			}
		}
		if closing <= i+1 {
			continue
		}
		inner := p.doc.SpanText(i+1, closing)
		p.addValue(Entity{
			Start: i, End: closing + 1, Text: p.doc.SpanText(i, closing+1),
			Raw: inner, Value: ir.IRString(inner),
			Type: TypeString, Shape: ShapeQuoted,
		})
		i = closing
	}
}

// tokenValues classifies each remaining token; the first matching shape wins.
func (p *pass) tokenValues() {
	for i, tok := range p.doc.Tokens {
		if p.valued[i] || p.phrase[i] {
			continue
		}
		if v, ok := p.literal(i, tok); ok {
			p.addValue(v)
		}
	}
}

func (p *pass) literal(i int, tok annotate.Token) (Entity, bool) {
	c := p.r.catalog
	text := tok.Text
	base := Entity{Start: i, End: i + 1, Text: text, Raw: text}

	if c.IsCVE(text) {
		base.Value, base.Type, base.Shape = ir.IRString(text), TypeIdentifier, ShapeCVE
		return base, true
	}
	if ok, prefix := c.ParseIPv4(text); ok {
		base.Type = TypeAddress
		if prefix {
			base.Value, base.Shape = ir.IRString(prefixPattern(text)), ShapeIPv4Prefix
		} else {
			base.Value, base.Shape = ir.IRString(text), ShapeIPv4
		}
		return base, true
	}
	if c.IsMAC(text) {
		base.Value, base.Type, base.Shape = ir.IRString(text), TypeAddress, ShapeMAC
		return base, true
	}
	if b, ok := c.BooleanLiteral(text); ok && tok.Dep != "det" && tok.Dep != "neg" {
		base.Value, base.Type, base.Shape = ir.IRBool(b), TypeBoolean, ShapeBoolean
		return base, true
	}
	if v, typ, ok := parseNumber(text); ok && !c.SkipNumeric(text) {
		base.Value, base.Type, base.Shape = v, typ, ShapeNumber
		return base, true
	}
	if inner, ok := unquote(text); ok {
		base.Raw, base.Value, base.Type, base.Shape = inner, ir.IRString(inner), TypeString, ShapeQuoted
		return base, true
	}
	if p.isKeyword(i, tok) {
		return Entity{}, false
	}
	switch {
	case c.IsVendor(text) && (tok.POS == "PROPN" || tok.POS == "NOUN"):
		base.Value, base.Type, base.Shape = ir.IRString(text), TypeString, ShapeVendor
		return base, true
	case tok.POS == "PROPN" && !c.IsStopWord(text) && !c.IsProperNounStop(text):
		base.Value, base.Type, base.Shape = ir.IRString(text), TypeString, ShapeProper
		return base, true
	case tok.POS == "NOUN" && strings.ContainsAny(text, "0123456789"):
		base.Value, base.Type, base.Shape = ir.IRString(text), TypeString, ShapeNoun
		return base, true
	}
	return Entity{}, false
}

// parseNumber accepts decimal integer and float literals only; words such
// as "ten" or "nan" are left alone.
func parseNumber(text string) (ir.IRValue, ValueType, bool) {
	if !numericPattern.MatchString(text) {
		return nil, "", false
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return ir.IRInt(n), TypeInt, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, "", false
	}
	return ir.IRFloat(f), TypeFloat, true
}

// prefixPattern turns a partial address such as "10.89.*" or "192.168.1"
// into the LIKE pattern matching every address under it.
func prefixPattern(text string) string {
	parts := strings.Split(text, ".")
	for k, part := range parts {
		if part == "*" {
			parts[k] = "%"
		}
	}
	out := strings.Join(parts, ".")
	if parts[len(parts)-1] != "%" {
		out += ".%"
	}
	return out
}

// isKeyword reports tokens that carry structure rather than content:
// column synonyms and the catalog's keyword sets.
func (p *pass) isKeyword(i int, tok annotate.Token) bool {
	c := p.r.catalog
	words := []string{tok.Lower(), tok.LowerLemma()}
	for _, w := range words {
		if _, ok := p.r.schema.Lookup(w); ok {
			return true
		}
		if _, ok := c.Operator(w); ok {
			return true
		}
		if _, ok := c.Connector(w); ok {
			return true
		}
		if _, ok := c.Intent(w); ok {
			return true
		}
		if _, ok := c.Modifier(w); ok {
			return true
		}
		if _, ok := c.Quantifier(w); ok {
			return true
		}
		if _, ok := c.Polar(w); ok {
			return true
		}
		if c.IsNegation(w) {
			return true
		}
	}
	return false
}

func (p *pass) addValue(v Entity) {
	v.Kind = KindValue
	v.Label = string(v.Type)
	p.ents.Values = append(p.ents.Values, v)
	for k := v.Start; k < v.End; k++ {
		p.valued[k] = true
	}
}

// columns matches single-word synonyms by text, then by lemma.
func (p *pass) columns() {
	for i, tok := range p.doc.Tokens {
		if p.phrase[i] || p.valued[i] {
			continue
		}
		if p.isIntentVerb(tok) {
			continue
		}
		name, ok := p.r.schema.Lookup(tok.Lower())
		if !ok {
			name, ok = p.r.schema.Lookup(tok.LowerLemma())
		}
		if !ok {
			continue
		}
		p.ents.AddColumn(Entity{Label: name, Start: i, End: i + 1, Text: tok.Text})
	}
}

// isIntentVerb reports a root verb that is an intent keyword, like
// "Display" in "Display all assets", which is not a column mention.
func (p *pass) isIntentVerb(tok annotate.Token) bool {
	if tok.Dep != "ROOT" || (tok.POS != "VERB" && tok.POS != "AUX") {
		return false
	}
	_, ok := p.r.catalog.Intent(tok.LowerLemma())
	return ok
}

// booleans records polar words and synthesizes the column they assert.
func (p *pass) booleans() {
	for i, tok := range p.doc.Tokens {
		if p.phrase[i] || p.valued[i] {
			continue
		}
		ind, ok := p.r.catalog.Polar(tok.Lower())
		if !ok || !p.r.schema.IsBoolean(ind.Column) {
			continue
		}
		p.ents.Booleans = append(p.ents.Booleans, Entity{
			Kind: KindBoolean, Label: ind.Column, Start: i, End: i + 1, Text: tok.Text,
			Raw: tok.Text, Value: ir.IRBool(ind.Value), Type: TypeBoolean, Shape: ShapeBoolean,
		})
		p.ents.AddColumn(Entity{Label: ind.Column, Start: i, End: i + 1, Text: tok.Text, Synthetic: true})
	}
}

// matchPhrases records multiword keywords, claiming their tokens.
func (p *pass) matchPhrases(phrases []catalog.Phrase, kind Kind, out *[]Entity) {
	for i := 0; i < p.doc.Len(); i++ {
		for _, ph := range phrases {
			if p.keyword[i] || !catalog.MatchPhrase(p.doc, i, ph) {
				continue
			}
			end := i + len(ph.Words)
			*out = append(*out, Entity{Kind: kind, Label: ph.Label, Start: i, End: end, Text: p.doc.SpanText(i, end)})
			for k := i; k < end; k++ {
				p.keyword[k] = true
			}
			break
		}
	}
}

// free reports whether token i is still available to single-word keywords.
func (p *pass) free(i int) bool {
	return !p.phrase[i] && !p.valued[i] && !p.keyword[i]
}

func (p *pass) operators() {
	p.matchPhrases(p.r.catalog.OperatorPhrases(), KindOperator, &p.ents.Operators)
	for i, tok := range p.doc.Tokens {
		if !p.free(i) {
			continue
		}
		if kind, ok := p.r.catalog.Operator(tok.Lower()); ok {
			p.ents.Operators = append(p.ents.Operators, Entity{
				Kind: KindOperator, Label: string(kind), Start: i, End: i + 1, Text: tok.Text,
			})
		}
	}
}

func (p *pass) connectors() {
	p.matchPhrases(p.r.catalog.ConnectorPhrases(), KindConnector, &p.ents.Connectors)
	for i, tok := range p.doc.Tokens {
		if !p.free(i) {
			continue
		}
		if label, ok := p.r.catalog.Connector(tok.Lower()); ok {
			p.ents.Connectors = append(p.ents.Connectors, Entity{
				Kind: KindConnector, Label: label, Start: i, End: i + 1, Text: tok.Text,
			})
		}
	}
}

func (p *pass) intents() {
	p.matchPhrases(p.r.catalog.IntentPhrases(), KindIntent, &p.ents.Intents)
	for i, tok := range p.doc.Tokens {
		if !p.free(i) {
			continue
		}
		label, ok := p.r.catalog.Intent(tok.Lower())
		if !ok {
			label, ok = p.r.catalog.Intent(tok.LowerLemma())
		}
		if ok {
			p.ents.Intents = append(p.ents.Intents, Entity{
				Kind: KindIntent, Label: label, Start: i, End: i + 1, Text: tok.Text,
			})
		}
	}
}

func (p *pass) quantifiers() {
	for i, tok := range p.doc.Tokens {
		if !p.free(i) {
			continue
		}
		if label, ok := p.r.catalog.Quantifier(tok.Lower()); ok {
			p.ents.Quantifiers = append(p.ents.Quantifiers, Entity{
				Kind: KindQuantifier, Label: label, Start: i, End: i + 1, Text: tok.Text,
			})
		}
	}
}

func (p *pass) modifiers() {
	for i, tok := range p.doc.Tokens {
		if !p.free(i) {
			continue
		}
		label, ok := p.r.catalog.Modifier(tok.Lower())
		if !ok {
			label, ok = p.r.catalog.Modifier(tok.LowerLemma())
		}
		if ok {
			p.ents.Modifiers = append(p.ents.Modifiers, Entity{
				Kind: KindModifier, Label: label, Start: i, End: i + 1, Text: tok.Text,
			})
		}
	}
}

// adjacentListValues reads the noun right after a list-valued column as
// its value, as in "active query maintenance".
func (p *pass) adjacentListValues() {
	columnAt := make(map[int]bool)
	for _, col := range p.ents.Columns {
		for k := col.Start; k < col.End; k++ {
			columnAt[k] = true
		}
	}
	for _, col := range p.ents.Columns {
		if col.Synthetic || !p.r.schema.IsListValued(col.Label) {
			continue
		}
		j := col.End
		tok, ok := p.doc.Token(j)
		if !ok || p.valued[j] || columnAt[j] || p.keyword[j] {
			continue
		}
		if tok.POS != "NOUN" && tok.POS != "PROPN" {
			continue
		}
		if p.r.catalog.IsStopWord(tok.Text) || p.isKeyword(j, tok) {
			continue
		}
		p.addValue(Entity{
			Start: j, End: j + 1, Text: tok.Text, Raw: tok.Text,
			Value: ir.IRString(tok.Text), Type: TypeString, Shape: ShapeNoun,
		})
	}
}

// identifierColumns adds the column implied by each identifier-shaped
// value at the value's own position.
func (p *pass) identifierColumns() {
	for _, v := range p.ents.Values {
		shape := string(v.Shape)
		if v.Shape == ShapeIPv4Prefix {
			shape = string(ShapeIPv4)
		}
		name, ok := p.r.schema.IdentifierColumn(shape)
		if !ok {
			continue
		}
		p.ents.AddColumn(Entity{Label: name, Start: v.Start, End: v.End, Text: v.Text, Synthetic: true})
	}
}
