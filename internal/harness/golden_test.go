package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nl2sql/internal/queryir"
)

// First run with -update to create golden files:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden_SiteFilter(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/site_filter.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestTraceSnapshot_Canonical(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "one",
		Trace: []TraceEvent{{
			Seq:         1,
			Text:        "Show me all assets",
			Intent:      "select",
			Query:       queryir.Query{Table: "assets", Select: []string{"*"}},
			SQL:         "SELECT * FROM assets",
			Fingerprint: "ignored",
			Rows:        2,
		}},
	}
	data, err := snap.Canonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"one","trace":[{"intent":"select","query":{"limit":null,"order_by":[],"select":["*"],"table":"assets","where":[]},"rows":2,"seq":1,"sql":"SELECT * FROM assets","text":"Show me all assets"}]}`,
		string(data))
}
