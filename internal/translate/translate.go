// Package translate composes the annotator and the interpretation pipeline
// into one call: text in, query document out.
//
// A Translator holds only immutable tables and is safe for concurrent use;
// each call builds its entities and document fresh.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/nl2sql/internal/annotate"
	"github.com/roach88/nl2sql/internal/builder"
	"github.com/roach88/nl2sql/internal/catalog"
	"github.com/roach88/nl2sql/internal/extract"
	"github.com/roach88/nl2sql/internal/intent"
	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/observability"
	"github.com/roach88/nl2sql/internal/queryir"
	"github.com/roach88/nl2sql/internal/querysql"
	"github.com/roach88/nl2sql/internal/recognize"
	"github.com/roach88/nl2sql/internal/schema"
)

// ErrNoAnnotator is returned by New when no annotator is given.
var ErrNoAnnotator = errors.New("translate: annotator is required")

// Translator turns English requests into query documents.
type Translator struct {
	annotator annotate.Annotator
	schema    *schema.Schema
	catalog   *catalog.Catalog
	table     string
	logger    *slog.Logger
	metrics   *observability.Metrics

	recognizer *recognize.Recognizer
	classifier *intent.Classifier
	extractor  *extract.Extractor
	builder    *builder.Builder
	compiler   *querysql.SQLCompiler
}

// Option configures a Translator.
type Option func(*Translator)

// WithSchema sets the table schema. Default: schema.Default().
func WithSchema(s *schema.Schema) Option {
	return func(t *Translator) {
		if s != nil {
			t.schema = s
		}
	}
}

// WithTable overrides the schema's table name.
func WithTable(table string) Option {
	return func(t *Translator) {
		t.table = table
	}
}

// WithCatalog sets the keyword catalog. Default: catalog.Default().
func WithCatalog(c *catalog.Catalog) Option {
	return func(t *Translator) {
		if c != nil {
			t.catalog = c
		}
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics records translations in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Translator) {
		t.metrics = m
	}
}

// New creates a Translator around a. The annotator is required; an
// unavailable model must be reported by the annotator's own constructor.
func New(a annotate.Annotator, opts ...Option) (*Translator, error) {
	if a == nil {
		return nil, ErrNoAnnotator
	}
	t := &Translator{
		annotator: a,
		schema:    schema.Default(),
		catalog:   catalog.Default(),
		logger:    observability.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.schema = t.schema.WithTable(t.table)
	t.table = t.schema.Table()

	t.recognizer = recognize.New(t.schema, t.catalog)
	t.classifier = intent.New(t.schema, t.catalog)
	t.extractor = extract.New(t.schema, t.catalog)
	t.builder = builder.New(t.table)
	t.compiler = querysql.NewSQLCompiler(t.schema)
	return t, nil
}

// Schema returns the schema queries are built against.
func (t *Translator) Schema() *schema.Schema {
	return t.schema
}

// Compiler returns the SQL compiler for the translator's schema.
func (t *Translator) Compiler() *querysql.SQLCompiler {
	return t.compiler
}

// Details is the full record of one translation.
type Details struct {
	Text        string                   `json:"text"`
	Query       queryir.Query            `json:"query"`
	SQL         string                   `json:"sql"`
	Intent      intent.Intent            `json:"intent"`
	Entities    *recognize.Entities      `json:"entities"`
	Pairs       []extract.Pair           `json:"pairs"`
	Validation  queryir.ValidationResult `json:"validation"`
	Fingerprint string                   `json:"fingerprint"`

	doc *annotate.Document
}

// Document returns the annotated document the translation was built from.
func (d *Details) Document() *annotate.Document {
	return d.doc
}

// Translate returns the query document for text.
func (t *Translator) Translate(ctx context.Context, text string) (queryir.Query, error) {
	d, err := t.TranslateWithDetails(ctx, text)
	if err != nil {
		return queryir.Query{}, err
	}
	return d.Query, nil
}

// TranslateToSQL returns the rendered SQL for text.
func (t *Translator) TranslateToSQL(ctx context.Context, text string) (string, error) {
	d, err := t.TranslateWithDetails(ctx, text)
	if err != nil {
		return "", err
	}
	return d.SQL, nil
}

// TranslateWithDetails runs the pipeline and keeps every intermediate
// result. Empty text yields the unfiltered select and no error.
func (t *Translator) TranslateWithDetails(ctx context.Context, text string) (*Details, error) {
	doc, err := t.annotate(ctx, text)
	if err != nil {
		return nil, err
	}

	ents := t.recognizer.Recognize(doc)
	in := t.classifier.Classify(doc, ents)
	res := t.extractor.Extract(doc, ents)
	q := t.builder.Build(builder.Input{
		Intent:     in,
		Conditions: res.Conditions,
		OrderBy:    res.OrderBy,
		Limit:      res.Limit,
	})

	fp, err := q.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("fingerprint query: %w", err)
	}
	d := &Details{
		Text:        text,
		Query:       q,
		SQL:         t.compiler.Render(q),
		Intent:      in,
		Entities:    ents,
		Pairs:       res.Pairs,
		Validation:  queryir.Validate(q, t.schema),
		Fingerprint: fp,
		doc:         doc,
	}

	t.metrics.ObserveTranslation(in.Type, len(q.Where))
	t.logger.Debug("translated",
		slog.String("intent", in.Type),
		slog.String("strategy", in.Strategy),
		slog.Int("entities", ents.Len()),
		slog.Int("conditions", len(q.Where)),
		slog.String("fingerprint", fp),
		slog.String("text_fingerprint", ir.TextFingerprint(text)),
	)
	for _, w := range d.Validation.Warnings {
		t.logger.Warn("query validation", slog.String("warning", w))
	}
	return d, nil
}

// annotate calls the annotator, except for blank text which maps to an
// empty document without a call.
func (t *Translator) annotate(ctx context.Context, text string) (*annotate.Document, error) {
	if strings.TrimSpace(text) == "" {
		return &annotate.Document{Text: text}, nil
	}
	doc, err := t.annotator.Annotate(ctx, text)
	if err != nil {
		t.metrics.ObserveAnnotatorFailure()
		t.logger.Error("annotate failed", slog.Any("error", err))
		return nil, fmt.Errorf("annotate %q: %w", text, err)
	}
	if doc == nil {
		doc = &annotate.Document{Text: text}
	}
	return doc, nil
}
