package annotate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu         sync.Mutex
	models     []string
	status     int
	body       string
	requestIDs []string
	requests   []map[string]string
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /models", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string][]string{"models": f.models})
	})
	mux.HandleFunc("POST /annotate", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		f.requestIDs = append(f.requestIDs, r.Header.Get("X-Request-ID"))
		f.requests = append(f.requests, payload)
		f.mu.Unlock()
		if f.status != 0 {
			w.WriteHeader(f.status)
		}
		_, _ = w.Write([]byte(f.body))
	})
	return mux
}

func newService(t *testing.T, f *fakeService) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return srv
}

const siteDoc = `{"tokens": [
	{"i": 0, "text": "Find", "lemma": "find", "pos": "VERB", "dep": "ROOT", "head": 0},
	{"i": 1, "text": "site", "lemma": "site", "pos": "NOUN", "dep": "dobj", "head": 0},
	{"i": 2, "text": "54", "lemma": "54", "pos": "NUM", "dep": "nummod", "head": 42}
], "ents": [{"start": 2, "end": 3, "label": "CARDINAL"}], "noun_chunks": []}`

func TestHTTPAnnotator_Annotate(t *testing.T) {
	svc := &fakeService{models: []string{"en_core_web_sm"}, body: siteDoc}
	srv := newService(t, svc)

	a, err := NewHTTPAnnotator(context.Background(), HTTPConfig{
		BaseURL:    srv.URL + "/",
		RequestIDs: NewSequenceGenerator("req-1", "req-2"),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, a.Model())

	doc, err := a.Annotate(context.Background(), "Find site 54")
	require.NoError(t, err)
	assert.Equal(t, "Find site 54", doc.Text)
	require.Equal(t, 3, doc.Len())
	assert.Equal(t, 2, doc.Tokens[2].Head, "out-of-range head repaired")
	assert.Equal(t, []Span{{Start: 2, End: 3, Label: "CARDINAL"}}, doc.Ents)

	_, err = a.Annotate(context.Background(), "Find site 54")
	require.NoError(t, err)

	assert.Equal(t, []string{"req-1", "req-2"}, svc.requestIDs)
	assert.Equal(t, map[string]string{"text": "Find site 54", "model": "en_core_web_sm"}, svc.requests[0])
}

func TestHTTPAnnotator_BlankTextSkipsService(t *testing.T) {
	svc := &fakeService{models: []string{"en_core_web_sm"}, body: siteDoc}
	srv := newService(t, svc)

	a, err := NewHTTPAnnotator(context.Background(), HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	doc, err := a.Annotate(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
	assert.Empty(t, svc.requests)
}

func TestNewHTTPAnnotator_ModelUnavailable(t *testing.T) {
	svc := &fakeService{models: []string{"en_core_web_lg"}}
	srv := newService(t, svc)

	_, err := NewHTTPAnnotator(context.Background(), HTTPConfig{BaseURL: srv.URL, Model: "en_core_web_sm"})
	require.Error(t, err)
	assert.True(t, IsModelUnavailable(err))
	assert.Contains(t, err.Error(), "en_core_web_lg")

	_, err = NewHTTPAnnotator(context.Background(), HTTPConfig{})
	assert.True(t, IsModelUnavailable(err))

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	_, err = NewHTTPAnnotator(context.Background(), HTTPConfig{BaseURL: down.URL})
	assert.True(t, IsModelUnavailable(err))
}

func TestNewHTTPAnnotator_ProbeStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPAnnotator(context.Background(), HTTPConfig{BaseURL: srv.URL})
	require.Error(t, err)
	assert.True(t, IsModelUnavailable(err))
	assert.Contains(t, err.Error(), "status=500")
}

func TestHTTPAnnotator_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   ErrorCode
	}{
		{"service unavailable", http.StatusServiceUnavailable, "loading", CodeModelUnavailable},
		{"server error", http.StatusInternalServerError, "boom", CodeRequestFailed},
		{"bad body", http.StatusOK, "{not json", CodeBadResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{models: []string{"en_core_web_sm"}, status: tt.status, body: tt.body}
			srv := newService(t, svc)
			a, err := NewHTTPAnnotator(context.Background(), HTTPConfig{BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = a.Annotate(context.Background(), "Find site 54")
			require.Error(t, err)
			var ae *Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.code, ae.Code)
		})
	}
}

func TestHTTPAnnotator_ContextCanceled(t *testing.T) {
	svc := &fakeService{models: []string{"en_core_web_sm"}, body: siteDoc}
	srv := newService(t, svc)
	a, err := NewHTTPAnnotator(context.Background(), HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Annotate(ctx, "Find site 54")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTruncate(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, truncate(long), 259)
	assert.Equal(t, "short", truncate([]byte("short")))
}
