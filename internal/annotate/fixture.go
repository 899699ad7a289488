package annotate

import (
	"context"
	"embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var builtinFixtures embed.FS

// fixtureFile is the on-disk YAML layout:
//
//	documents:
//	  - text: "Find assets in site 54"
//	    tokens:
//	      - {i: 0, text: Find, lemma: find, pos: VERB, tag: VB, dep: ROOT, head: 0}
//	      ...
type fixtureFile struct {
	Documents []Document `yaml:"documents"`
}

// FixtureAnnotator serves pre-annotated documents keyed by normalized text.
// It is safe for concurrent use; Annotate returns a private copy.
type FixtureAnnotator struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewFixtureAnnotator creates an annotator serving docs.
func NewFixtureAnnotator(docs ...Document) *FixtureAnnotator {
	f := &FixtureAnnotator{docs: make(map[string]Document, len(docs))}
	for _, d := range docs {
		f.Add(d)
	}
	return f
}

// Builtin returns an annotator over the fixture corpus compiled into the
// binary. It covers the sample requests used by tests and offline demos.
func Builtin() *FixtureAnnotator {
	f := NewFixtureAnnotator()
	entries, err := builtinFixtures.ReadDir("fixtures")
	if err != nil {
		panic(fmt.Sprintf("read embedded fixtures: %v", err))
	}
	for _, e := range entries {
		data, err := builtinFixtures.ReadFile("fixtures/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("read embedded fixture %s: %v", e.Name(), err))
		}
		docs, err := ParseFixtures(data)
		if err != nil {
			panic(fmt.Sprintf("parse embedded fixture %s: %v", e.Name(), err))
		}
		for _, d := range docs {
			f.Add(d)
		}
	}
	return f
}

// LoadFixtures reads one or more fixture YAML files.
func LoadFixtures(paths ...string) (*FixtureAnnotator, error) {
	f := NewFixtureAnnotator()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixtures %s: %w", path, err)
		}
		docs, err := ParseFixtures(data)
		if err != nil {
			return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
		}
		for _, d := range docs {
			f.Add(d)
		}
	}
	return f, nil
}

// ParseFixtures decodes a fixture YAML document.
func ParseFixtures(data []byte) ([]Document, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	for i := range file.Documents {
		if strings.TrimSpace(file.Documents[i].Text) == "" {
			return nil, fmt.Errorf("documents[%d]: text is required", i)
		}
		file.Documents[i].Normalize()
	}
	return file.Documents, nil
}

// Add registers doc, replacing any document with the same normalized text.
func (f *FixtureAnnotator) Add(doc Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[NormalizeText(doc.Text)] = doc
}

// Texts lists the stored texts in sorted order.
func (f *FixtureAnnotator) Texts() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d.Text)
	}
	slices.Sort(out)
	return out
}

// Annotate returns the stored document for text.
func (f *FixtureAnnotator) Annotate(_ context.Context, text string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return &Document{Text: text}, nil
	}

	f.mu.RLock()
	doc, ok := f.docs[NormalizeText(text)]
	f.mu.RUnlock()
	if !ok {
		return nil, newError(CodeUnknownText, ErrUnknownText, "%q", text)
	}
	return doc.clone(), nil
}

// NormalizeText is the fixture key: trimmed, lower-cased, single-spaced.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func (d Document) clone() *Document {
	out := d
	out.Tokens = slices.Clone(d.Tokens)
	out.Ents = slices.Clone(d.Ents)
	out.NounChunks = slices.Clone(d.NounChunks)
	return &out
}
