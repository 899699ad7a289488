package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
)

// DefaultModel is the annotation model requested when none is configured.
const DefaultModel = "en_core_web_sm"

// HTTPConfig configures an HTTPAnnotator.
type HTTPConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Client     *http.Client
	RequestIDs RequestIDGenerator
	Logger     *slog.Logger
}

// HTTPAnnotator calls a spaCy-style annotation service.
//
// The service exposes two endpoints:
//
//	GET  /models    -> {"models": ["en_core_web_sm", ...]}
//	POST /annotate  {"text": "...", "model": "..."} -> Document JSON
type HTTPAnnotator struct {
	baseURL    string
	model      string
	client     *http.Client
	requestIDs RequestIDGenerator
	logger     *slog.Logger
}

// NewHTTPAnnotator builds an annotator and verifies up front that the
// service is reachable and serves the configured model. Any failure of that
// check is reported as CodeModelUnavailable.
func NewHTTPAnnotator(ctx context.Context, cfg HTTPConfig) (*HTTPAnnotator, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, newError(CodeModelUnavailable, nil, "annotator base URL is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	ids := cfg.RequestIDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	a := &HTTPAnnotator{
		baseURL:    baseURL,
		model:      model,
		client:     client,
		requestIDs: ids,
		logger:     logger,
	}
	if err := a.checkModel(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Model returns the model name sent with each request.
func (a *HTTPAnnotator) Model() string {
	return a.model
}

func (a *HTTPAnnotator) checkModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return newError(CodeModelUnavailable, err, "build models request")
	}
	body, status, err := a.do(req)
	if err != nil {
		return newError(CodeModelUnavailable, err, "annotation service unreachable at %s", a.baseURL)
	}
	if status >= 400 {
		return newError(CodeModelUnavailable, nil, "model check failed status=%d", status)
	}

	var parsed struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return newError(CodeModelUnavailable, err, "decode model list")
	}
	if !slices.Contains(parsed.Models, a.model) {
		return newError(CodeModelUnavailable, nil,
			"model %q not installed (available: %s)", a.model, strings.Join(parsed.Models, ", "))
	}
	a.logger.Debug("annotator ready", "url", a.baseURL, "model", a.model)
	return nil
}

// Annotate posts text to the service and decodes the returned document.
func (a *HTTPAnnotator) Annotate(ctx context.Context, text string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return &Document{Text: text}, nil
	}

	payload, err := json.Marshal(map[string]string{"text": text, "model": a.model})
	if err != nil {
		return nil, newError(CodeRequestFailed, err, "marshal annotate payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/annotate", bytes.NewReader(payload))
	if err != nil {
		return nil, newError(CodeRequestFailed, err, "build annotate request")
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := a.requestIDs.Generate()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	body, status, err := a.do(req)
	if err != nil {
		return nil, newError(CodeRequestFailed, err, "annotate request %s", requestID)
	}
	switch {
	case status == http.StatusServiceUnavailable:
		return nil, newError(CodeModelUnavailable, nil, "model %q unavailable body=%s", a.model, truncate(body))
	case status >= 400:
		return nil, newError(CodeRequestFailed, nil, "annotate failed status=%d body=%s", status, truncate(body))
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, newError(CodeBadResponse, err, "decode annotate response")
	}
	doc.Text = text
	doc.Normalize()

	a.logger.Debug("annotated",
		"request_id", requestID,
		"tokens", doc.Len(),
		"duration", time.Since(start))
	return &doc, nil
}

func (a *HTTPAnnotator) do(req *http.Request) ([]byte, int, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
