// Package observability builds the process logger and the translation
// metrics.
package observability

import (
	"io"
	"log/slog"

	"github.com/roach88/nl2sql/internal/config"
)

// ServiceName is attached to every log record.
const ServiceName = "nl2sql"

// NewLogger returns a text or JSON logger at the configured level. A nil
// writer discards output.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return slog.New(handler).With(
		slog.String("service", ServiceName),
		slog.String("profile", string(cfg.Profile)),
	)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
