package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one translation contract test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Table overrides the schema's table name.
	Table string `yaml:"table,omitempty"`

	// Fixtures lists YAML files of recorded parses. Empty selects the
	// built-in fixtures.
	Fixtures []string `yaml:"fixtures,omitempty"`

	// Seed holds the rows inserted into the asset table before any step.
	Seed []map[string]any `yaml:"seed,omitempty"`

	// Steps are the requests to translate, in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one request and what it should translate to.
type Step struct {
	Text   string        `yaml:"text"`
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause is a subset match against a translated step. Nil fields
// are not checked.
type ExpectClause struct {
	Intent string           `yaml:"intent,omitempty"`
	SQL    string           `yaml:"sql,omitempty"`
	Select []string         `yaml:"select,omitempty"`
	Where  []map[string]any `yaml:"where,omitempty"`
	Limit  *int             `yaml:"limit,omitempty"`
	Rows   *int             `yaml:"rows,omitempty"`
}

// Assertion validates the run as a whole.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected log size (history_count).
	Count int `yaml:"count,omitempty"`

	// Steps are zero-based step indexes (same_query).
	Steps []int `yaml:"steps,omitempty"`

	// Step, Column and Values describe a result_contains check.
	Step   int    `yaml:"step,omitempty"`
	Column string `yaml:"column,omitempty"`
	Values []any  `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertHistoryCount   = "history_count"
	AssertSameQuery      = "same_query"
	AssertResultContains = "result_contains"
)

// LoadScenario reads and parses a scenario YAML file. Fixture paths are
// resolved relative to the file's directory.
//
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving relative fixture paths
// against basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	for i, p := range scenario.Fixtures {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Fixtures[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, p := range s.Fixtures {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("fixture file not found: %s", p)
		}
	}

	for i, row := range s.Seed {
		if len(row) == 0 {
			return fmt.Errorf("seed[%d]: row must name at least one column", i)
		}
	}

	for i, step := range s.Steps {
		if step.Text == "" {
			return fmt.Errorf("steps[%d]: text is required", i)
		}
		if e := step.Expect; e != nil {
			for j, w := range e.Where {
				if _, ok := w["column"].(string); !ok {
					return fmt.Errorf("steps[%d].expect.where[%d]: column is required", i, j)
				}
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion, steps int) error {
	inRange := func(n int) bool { return n >= 0 && n < steps }

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertHistoryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history_count", index)
		}
	case AssertSameQuery:
		if len(a.Steps) < 2 {
			return fmt.Errorf("assertions[%d]: same_query needs at least two steps", index)
		}
		for _, n := range a.Steps {
			if !inRange(n) {
				return fmt.Errorf("assertions[%d]: step %d out of range", index, n)
			}
		}
	case AssertResultContains:
		if !inRange(a.Step) {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
		}
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for result_contains", index)
		}
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values are required for result_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
