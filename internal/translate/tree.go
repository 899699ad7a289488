package translate

import (
	"context"

	"github.com/roach88/nl2sql/internal/annotate"
)

// TreeToken describes one token of the dependency parse.
type TreeToken struct {
	Index     int      `json:"index"`
	Text      string   `json:"text"`
	Lemma     string   `json:"lemma"`
	POS       string   `json:"pos"`
	Tag       string   `json:"tag"`
	Dep       string   `json:"dep"`
	Head      string   `json:"head"`
	HeadIndex int      `json:"head_index"`
	Children  []string `json:"children"`
}

// Dependency is one arc of the parse, token to head.
type Dependency struct {
	Token string `json:"token"`
	Dep   string `json:"dep"`
	Head  string `json:"head"`
}

// Chunk is a noun chunk with its root token.
type Chunk struct {
	Text string `json:"text"`
	Root string `json:"root"`
	Dep  string `json:"dep"`
}

// NamedEntity is a named-entity span reported by the annotator.
type NamedEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Tree is the annotator's parse of one request, for diagnostics.
type Tree struct {
	Text         string        `json:"text"`
	Tokens       []TreeToken   `json:"tokens"`
	Dependencies []Dependency  `json:"dependencies"`
	NounChunks   []Chunk       `json:"noun_chunks"`
	Entities     []NamedEntity `json:"entities"`
}

// AnalyzeDependencyTree returns the parse of text without interpreting it.
func (t *Translator) AnalyzeDependencyTree(ctx context.Context, text string) (*Tree, error) {
	doc, err := t.annotate(ctx, text)
	if err != nil {
		return nil, err
	}
	return NewTree(doc), nil
}

// NewTree describes doc. Out-of-range spans are skipped.
func NewTree(doc *annotate.Document) *Tree {
	tree := &Tree{
		Tokens:       []TreeToken{},
		Dependencies: []Dependency{},
		NounChunks:   []Chunk{},
		Entities:     []NamedEntity{},
	}
	if doc == nil {
		return tree
	}
	tree.Text = doc.Text
	for i, tok := range doc.Tokens {
		head := doc.Head(i)
		if !doc.Valid(head) {
			head = i
		}
		children := []string{}
		for _, c := range doc.Children(i) {
			children = append(children, doc.Tokens[c].Text)
		}
		tree.Tokens = append(tree.Tokens, TreeToken{
			Index:     i,
			Text:      tok.Text,
			Lemma:     tok.Lemma,
			POS:       tok.POS,
			Tag:       tok.Tag,
			Dep:       tok.Dep,
			Head:      doc.Tokens[head].Text,
			HeadIndex: head,
			Children:  children,
		})
		tree.Dependencies = append(tree.Dependencies, Dependency{
			Token: tok.Text,
			Dep:   tok.Dep,
			Head:  doc.Tokens[head].Text,
		})
	}
	for _, nc := range doc.NounChunks {
		if !validSpan(doc, nc) || !doc.Valid(nc.Root) {
			continue
		}
		root := doc.Tokens[nc.Root]
		tree.NounChunks = append(tree.NounChunks, Chunk{
			Text: doc.SpanText(nc.Start, nc.End),
			Root: root.Text,
			Dep:  root.Dep,
		})
	}
	for _, e := range doc.Ents {
		if !validSpan(doc, e) {
			continue
		}
		tree.Entities = append(tree.Entities, NamedEntity{
			Text:  doc.SpanText(e.Start, e.End),
			Label: e.Label,
		})
	}
	return tree
}

func validSpan(doc *annotate.Document, s annotate.Span) bool {
	return s.Start >= 0 && s.Start < s.End && s.End <= doc.Len()
}
