package annotate

import (
	"strings"
)

// MaxDependencyDepth bounds every walk up the head chain.
const MaxDependencyDepth = 100

// Token is one annotated token.
type Token struct {
	I     int    `json:"i" yaml:"i"`
	Text  string `json:"text" yaml:"text"`
	Lemma string `json:"lemma" yaml:"lemma"`
	POS   string `json:"pos" yaml:"pos"`
	Tag   string `json:"tag" yaml:"tag"`
	Dep   string `json:"dep" yaml:"dep"`
	Head  int    `json:"head" yaml:"head"`
}

// Lower returns the lower-cased surface text.
func (t Token) Lower() string {
	return strings.ToLower(t.Text)
}

// LowerLemma returns the lower-cased lemma, falling back to the text.
func (t Token) LowerLemma() string {
	if t.Lemma == "" {
		return t.Lower()
	}
	return strings.ToLower(t.Lemma)
}

// Span is a half-open token range [Start, End).
// Named entities carry a Label; noun chunks carry the index of their Root.
type Span struct {
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Root  int    `json:"root,omitempty" yaml:"root,omitempty"`
}

// Document is the annotator output for one input text.
type Document struct {
	Text       string  `json:"text" yaml:"text"`
	Tokens     []Token `json:"tokens" yaml:"tokens"`
	Ents       []Span  `json:"ents" yaml:"ents"`
	NounChunks []Span  `json:"noun_chunks" yaml:"noun_chunks"`
}

// Len returns the number of tokens. A nil document has zero tokens.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Tokens)
}

// Valid reports whether i is a token index of d.
func (d *Document) Valid(i int) bool {
	return i >= 0 && i < d.Len()
}

// Token returns the token at i.
func (d *Document) Token(i int) (Token, bool) {
	if !d.Valid(i) {
		return Token{}, false
	}
	return d.Tokens[i], true
}

// Lower returns the lower-cased text of token i, or "" when out of range.
func (d *Document) Lower(i int) string {
	tok, ok := d.Token(i)
	if !ok {
		return ""
	}
	return tok.Lower()
}

// SpanText joins the tokens of [start, end) with single spaces, without a
// space before punctuation or around hyphens.
func (d *Document) SpanText(start, end int) string {
	start = max(start, 0)
	end = min(end, d.Len())
	var b strings.Builder
	for i := start; i < end; i++ {
		tok := d.Tokens[i]
		if i > start && tok.POS != "PUNCT" && tok.Text != "-" && d.Tokens[i-1].Text != "-" {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}

// Normalize validates and repairs a document decoded from an untrusted
// source: token indices are renumbered to be dense and zero-based, and head
// indices outside the document are pointed back at the token itself.
func (d *Document) Normalize() {
	if d == nil {
		return
	}
	for i := range d.Tokens {
		d.Tokens[i].I = i
		if h := d.Tokens[i].Head; h < 0 || h >= len(d.Tokens) {
			d.Tokens[i].Head = i
		}
	}
	if d.Text == "" && len(d.Tokens) > 0 {
		d.Text = d.SpanText(0, len(d.Tokens))
	}
}
