package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nl2sql/internal/annotate"
)

const siteQueryJSON = `{"limit":null,"order_by":[],"select":["*"],"table":"assets","where":[{"column":"site","operator":"=","value":54}]}`

func TestTranslate_Formats(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "json default",
			args: []string{"translate", "Find assets in site 54"},
			want: siteQueryJSON + "\n",
		},
		{
			name: "sql",
			args: []string{"translate", "--format", "sql", "Find assets in site 54"},
			want: "SELECT * FROM assets WHERE site = 54\n",
		},
		{
			name: "sql shorthand",
			args: []string{"translate", "--sql", "Find", "assets", "in", "site", "54"},
			want: "SELECT * FROM assets WHERE site = 54\n",
		},
		{
			name: "both",
			args: []string{"translate", "--format", "both", "Find assets in site 54"},
			want: "SQL: SELECT * FROM assets WHERE site = 54\nJSON: " + siteQueryJSON + "\n",
		},
		{
			name: "count",
			args: []string{"translate", "--sql", "How many assets are there?"},
			want: "SELECT COUNT(*) FROM assets\n",
		},
		{
			name: "table override",
			args: []string{"--table", "hosts", "translate", "--sql", "Find assets in site 54"},
			want: "SELECT * FROM hosts WHERE site = 54\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, testEnv(t), "", tt.args...)
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.stdout)
		})
	}
}

func TestTranslate_PrettyBoth(t *testing.T) {
	res := execute(t, testEnv(t), "", "translate", "--format", "both", "--pretty", "Show me all assets")
	require.NoError(t, res.err)

	want := "SQL:\nSELECT * FROM assets\n\nJSON:\n" +
		"{\n" +
		"  \"limit\": null,\n" +
		"  \"order_by\": [],\n" +
		"  \"select\": [\n" +
		"    \"*\"\n" +
		"  ],\n" +
		"  \"table\": \"assets\",\n" +
		"  \"where\": []\n" +
		"}\n"
	assert.Equal(t, want, res.stdout)
}

func TestTranslate_Stdin(t *testing.T) {
	res := execute(t, testEnv(t), "  Find assets in site 54\n", "translate", "--stdin", "--sql")
	require.NoError(t, res.err)
	assert.Equal(t, "SELECT * FROM assets WHERE site = 54\n", res.stdout)
}

func TestTranslate_Details(t *testing.T) {
	res := execute(t, testEnv(t), "", "translate", "--details", "Show me approved assets in site 54")
	require.NoError(t, res.err)

	var d struct {
		Text        string `json:"text"`
		SQL         string `json:"sql"`
		Fingerprint string `json:"fingerprint"`
		Intent      struct {
			Type string `json:"type"`
		} `json:"intent"`
		Validation struct {
			Valid bool `json:"valid"`
		} `json:"validation"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &d))
	assert.Equal(t, "Show me approved assets in site 54", d.Text)
	assert.Equal(t, "SELECT * FROM assets WHERE approved = TRUE AND site = 54", d.SQL)
	assert.Equal(t, "select", d.Intent.Type)
	assert.Len(t, d.Fingerprint, 64)
	assert.True(t, d.Validation.Valid)
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantCode int
		wantErr  string
	}{
		{"no text", []string{"translate"}, "", ExitCommandError, "no request given"},
		{"blank text", []string{"translate", "   "}, "", ExitFailure, "empty request"},
		{"blank stdin", []string{"translate", "--stdin"}, "\n\n", ExitFailure, "empty request"},
		{"bad format", []string{"translate", "--format", "xml", "Show me all assets"}, "", ExitCommandError, "invalid format"},
		{"unknown fixture text", []string{"translate", "Delete every asset"}, "", ExitFailure, "translate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, testEnv(t), tt.stdin, tt.args...)
			require.Error(t, res.err)
			assert.Equal(t, tt.wantCode, res.code())
			assert.Contains(t, res.err.Error(), tt.wantErr)
			assert.Empty(t, res.stdout)
		})
	}
}

func TestTranslate_FixtureFiles(t *testing.T) {
	env := testEnv(t)
	env["NL2SQL_FIXTURES"] = "../annotate/fixtures/corpus.yaml"

	res := execute(t, env, "", "translate", "--sql", "Find assets in site 54")
	require.NoError(t, res.err)
	assert.Equal(t, "SELECT * FROM assets WHERE site = 54\n", res.stdout)

	env["NL2SQL_FIXTURES"] = "missing.yaml"
	res = execute(t, env, "", "translate", "Find assets in site 54")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, res.code())
	assert.Contains(t, res.err.Error(), "load fixtures")
}

// annotationService serves the built-in fixtures over HTTP.
func annotationService(t *testing.T, models ...string) *httptest.Server {
	t.Helper()
	fixtures := annotate.Builtin()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /models", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string][]string{"models": models})
	})
	mux.HandleFunc("POST /annotate", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		doc, err := fixtures.Annotate(context.Background(), payload["text"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(doc)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTranslate_HTTPAnnotator(t *testing.T) {
	srv := annotationService(t, "en_core_web_sm")
	env := testEnv(t)
	delete(env, "NL2SQL_FIXTURES")

	res := execute(t, env, "", "--annotator-url", srv.URL, "translate", "--sql", "Find assets in site 54")
	require.NoError(t, res.err)
	assert.Equal(t, "SELECT * FROM assets WHERE site = 54\n", res.stdout)
}

func TestTranslate_ModelUnavailable(t *testing.T) {
	srv := annotationService(t, "en_core_web_lg")
	env := testEnv(t)
	delete(env, "NL2SQL_FIXTURES")
	env["NL2SQL_ANNOTATOR_URL"] = srv.URL

	res := execute(t, env, "", "translate", "Find assets in site 54")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, res.code())
	assert.True(t, annotate.IsModelUnavailable(res.err))

	res = execute(t, env, "", "--model", "en_core_web_lg", "translate", "--sql", "Find assets in site 54")
	require.NoError(t, res.err)
	assert.Equal(t, "SELECT * FROM assets WHERE site = 54\n", res.stdout)
}

func TestTree(t *testing.T) {
	res := execute(t, testEnv(t), "", "--output", "json", "tree", "Find assets in site 54")
	require.NoError(t, res.err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Text   string `json:"text"`
			Tokens []struct {
				Text string `json:"text"`
				Dep  string `json:"dep"`
				Head string `json:"head"`
			} `json:"tokens"`
			NounChunks []struct {
				Text string `json:"text"`
			} `json:"noun_chunks"`
			Entities []struct {
				Text  string `json:"text"`
				Label string `json:"label"`
			} `json:"entities"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Find assets in site 54", resp.Data.Text)
	require.Len(t, resp.Data.Tokens, 5)
	assert.Equal(t, "site", resp.Data.Tokens[4].Head)
	require.Len(t, resp.Data.Entities, 1)
	assert.Equal(t, "CARDINAL", resp.Data.Entities[0].Label)
	assert.Len(t, resp.Data.NounChunks, 2)

	res = execute(t, testEnv(t), "", "tree", "Find assets in site 54")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Text: Find assets in site 54\n")
	assert.Contains(t, res.stdout, "54 [CARDINAL]")
}

func TestExplain(t *testing.T) {
	res := execute(t, testEnv(t), "", "explain", "Find assets in site 54")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Query: Find assets in site 54\n")
	assert.Contains(t, res.stdout, "SQL: SELECT * FROM assets WHERE site = 54\n")
	assert.Contains(t, res.stdout, "site = 54")

	res = execute(t, testEnv(t), "", "-o", "json", "explain", "Delete every asset")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.code())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTranslate, resp.Error.Code)
}
