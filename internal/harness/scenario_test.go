package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/site_filter.yaml")
	require.NoError(t, err)

	assert.Equal(t, "site_filter", s.Name)
	assert.Len(t, s.Seed, 3)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, "Find assets in site 54", s.Steps[1].Text)
	require.NotNil(t, s.Steps[1].Expect)
	require.NotNil(t, s.Steps[1].Expect.Rows)
	assert.Equal(t, 2, *s.Steps[1].Expect.Rows)
	assert.Nil(t, s.Steps[3].Expect)
	require.Len(t, s.Assertions, 3)
	assert.Equal(t, []int{1, 3}, s.Assertions[1].Steps)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: d
stepz:
  - text: "Show me all assets"
`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse YAML")
}

func TestParseScenario_ResolvesFixturePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parses.yaml"), []byte("documents: []\n"), 0o644))

	s, err := ParseScenario([]byte(`
name: fixtures
description: d
fixtures: [parses.yaml]
steps:
  - text: "Show me all assets"
`), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "parses.yaml")}, s.Fixtures)
}

func TestValidateScenario(t *testing.T) {
	valid := func() Scenario {
		return Scenario{
			Name:        "s",
			Description: "d",
			Steps:       []Step{{Text: "Show me all assets"}, {Text: "Find assets in site 54"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"empty text", func(s *Scenario) { s.Steps[1].Text = "" }, "steps[1]: text is required"},
		{"missing fixture", func(s *Scenario) { s.Fixtures = []string{"/does/not/exist.yaml"} }, "fixture file not found"},
		{"empty seed row", func(s *Scenario) { s.Seed = []map[string]any{{}} }, "seed[0]"},
		{"where without column", func(s *Scenario) {
			s.Steps[0].Expect = &ExpectClause{Where: []map[string]any{{"value": 1}}}
		}, "steps[0].expect.where[0]: column is required"},
		{"assertion without type", func(s *Scenario) { s.Assertions = []Assertion{{}} }, "assertions[0]: type is required"},
		{"unknown assertion", func(s *Scenario) { s.Assertions = []Assertion{{Type: "final_state"}} }, `unknown assertion type "final_state"`},
		{"negative count", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertHistoryCount, Count: -1}}
		}, "count must be non-negative"},
		{"same_query one step", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertSameQuery, Steps: []int{0}}}
		}, "at least two steps"},
		{"same_query out of range", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertSameQuery, Steps: []int{0, 5}}}
		}, "step 5 out of range"},
		{"result_contains without column", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertResultContains, Values: []any{"a1"}}}
		}, "column is required"},
		{"result_contains without values", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertResultContains, Column: "id"}}
		}, "values are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := validateScenario(&s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	s := valid()
	assert.NoError(t, validateScenario(&s))
}
