package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/nl2sql/internal/annotate"
	"github.com/roach88/nl2sql/internal/config"
	"github.com/roach88/nl2sql/internal/observability"
	"github.com/roach88/nl2sql/internal/schema"
	"github.com/roach88/nl2sql/internal/translate"
)

// BuiltinFixtures selects the fixture corpus compiled into the binary.
const BuiltinFixtures = "builtin"

// session is everything a command needs to translate text.
type session struct {
	cfg        config.Config
	logger     *slog.Logger
	schema     *schema.Schema
	translator *translate.Translator
}

// loadConfig reads the environment with the non-empty global flags laid
// over it, so flag values pass through the same validation.
func (o *RootOptions) loadConfig() (config.Config, error) {
	overrides := map[string]string{
		"NL2SQL_ANNOTATOR_URL": o.AnnotatorURL,
		"NL2SQL_MODEL":         o.Model,
		"NL2SQL_FIXTURES":      o.Fixtures,
		"NL2SQL_SCHEMA":        o.Schema,
		"NL2SQL_TABLE":         o.Table,
	}
	if o.Verbose {
		overrides["NL2SQL_LOG_LEVEL"] = "debug"
	}
	if o.LogJSON {
		overrides["NL2SQL_LOG_JSON"] = "true"
	}

	base := o.lookup
	if base == nil {
		base = os.LookupEnv
	}
	lookup := func(key string) (string, bool) {
		if v := overrides[key]; v != "" {
			return v, true
		}
		return base(key)
	}

	cfg, err := config.Load(lookup)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// loadSchema compiles the configured schema file, or returns the embedded
// one, and applies the table override.
func loadSchema(cfg config.Config) (*schema.Schema, error) {
	s := schema.Default()
	if cfg.Schema.Path != "" {
		loaded, err := schema.Load(cfg.Schema.Path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load schema", err)
		}
		s = loaded
	}
	return s.WithTable(cfg.Schema.Table), nil
}

// newSession builds the logger, metrics, schema, annotator and translator.
func (o *RootOptions) newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(cfg, cmd.ErrOrStderr())

	s, err := loadSchema(cfg)
	if err != nil {
		return nil, err
	}

	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	ann, err := newAnnotator(ctx, cfg, logger)
	if err != nil {
		metrics.ObserveAnnotatorFailure()
		return nil, err
	}

	tr, err := translate.New(ann,
		translate.WithSchema(s),
		translate.WithLogger(logger),
		translate.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("session ready",
		slog.String("table", s.Table()),
		slog.String("db", cfg.Store.DBPath),
	)
	return &session{cfg: cfg, logger: logger, schema: s, translator: tr}, nil
}

// newAnnotator returns the fixture annotator when fixtures are configured
// and the HTTP annotator otherwise. An unreachable service or missing
// model maps to ExitCommandError.
func newAnnotator(ctx context.Context, cfg config.Config, logger *slog.Logger) (annotate.Annotator, error) {
	fixtures := strings.TrimSpace(cfg.Annotator.Fixtures)
	switch {
	case fixtures == BuiltinFixtures:
		return annotate.Builtin(), nil
	case fixtures != "":
		var paths []string
		for _, p := range strings.Split(fixtures, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		fa, err := annotate.LoadFixtures(paths...)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load fixtures", err)
		}
		return fa, nil
	}

	a, err := annotate.NewHTTPAnnotator(ctx, annotate.HTTPConfig{
		BaseURL: cfg.Annotator.URL,
		Model:   cfg.Annotator.Model,
		Timeout: cfg.Annotator.Timeout,
		Logger:  logger,
	})
	if err != nil {
		if annotate.IsModelUnavailable(err) {
			return nil, WrapExitError(ExitCommandError, "annotator unavailable", err)
		}
		return nil, err
	}
	return a, nil
}

// translationError maps a failed translation to an exit code.
func translationError(err error) error {
	if annotate.IsModelUnavailable(err) {
		return WrapExitError(ExitCommandError, "annotator unavailable", err)
	}
	return WrapExitError(ExitFailure, "translate", err)
}
