// Package config loads runtime settings from the environment. Command-line
// flags override these values in the CLI.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LookupFunc reads one variable; os.LookupEnv satisfies it.
type LookupFunc func(string) (string, bool)

// Profile selects a set of defaults.
type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Annotator     AnnotatorConfig
	Schema        SchemaConfig
	Store         StoreConfig
	Observability ObservabilityConfig
}

// AnnotatorConfig selects the linguistic annotator. When Fixtures is set
// the fixture annotator is used and the service is never contacted.
type AnnotatorConfig struct {
	URL      string
	Model    string
	Timeout  time.Duration
	Fixtures string
}

type SchemaConfig struct {
	// Path is a CUE schema file; empty selects the embedded schema.
	Path string
	// Table overrides the schema's table name.
	Table string
}

type StoreConfig struct {
	DBPath string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

// LoadFromEnv loads configuration from the process environment.
func LoadFromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load reads NL2SQL_* variables through lookup over the profile defaults
// and validates the result.
func Load(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("NL2SQL_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid NL2SQL_PROFILE: %q", profile)
	}
	cfg := defaultsForProfile(profile)

	steps := []func() error{
		func() error { return applyString(lookup, "NL2SQL_ANNOTATOR_URL", &cfg.Annotator.URL) },
		func() error { return applyString(lookup, "NL2SQL_MODEL", &cfg.Annotator.Model) },
		func() error { return applyDuration(lookup, "NL2SQL_ANNOTATOR_TIMEOUT", &cfg.Annotator.Timeout) },
		func() error { return applyString(lookup, "NL2SQL_FIXTURES", &cfg.Annotator.Fixtures) },
		func() error { return applyString(lookup, "NL2SQL_SCHEMA", &cfg.Schema.Path) },
		func() error { return applyString(lookup, "NL2SQL_TABLE", &cfg.Schema.Table) },
		func() error { return applyString(lookup, "NL2SQL_DB", &cfg.Store.DBPath) },
		func() error { return applyBool(lookup, "NL2SQL_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "NL2SQL_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be coerced.
func (c Config) Validate() error {
	if c.Annotator.Fixtures == "" {
		u, err := url.Parse(c.Annotator.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("annotator url must be an http(s) URL, got %q", c.Annotator.URL)
		}
		if c.Annotator.Model == "" {
			return fmt.Errorf("annotator model is required")
		}
	}
	if c.Annotator.Timeout <= 0 {
		return fmt.Errorf("annotator timeout must be positive, got %s", c.Annotator.Timeout)
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Annotator: AnnotatorConfig{
			URL:     "http://localhost:8000",
			Model:   "en_core_web_sm",
			Timeout: 10 * time.Second,
		},
		Store: StoreConfig{
			DBPath: filepath.Join(".nl2sql", "nl2sql.db"),
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelInfo,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Annotator.Timeout = 2 * time.Second
	case ProfileProd:
		cfg.Observability.LogJSON = true
	}
	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", raw)
	}
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level, err := ParseLogLevel(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = level
	return nil
}
