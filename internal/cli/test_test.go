package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: site_count
description: "Counting and filtering by site"
seed:
  - { id: a1, site: 54 }
  - { id: a2, site: 12 }
steps:
  - text: "Find assets in site 54"
    expect:
      sql: "SELECT * FROM assets WHERE site = 54"
      rows: 1
  - text: "How many assets are there?"
    expect:
      intent: count
assertions:
  - type: history_count
    count: 2
`

const failingScenario = `name: wrong_sql
description: "Expects the wrong SQL"
steps:
  - text: "Show me all assets"
    expect:
      sql: "SELECT id FROM assets"
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type testResponse struct {
	Status string     `json:"status"`
	Data   TestResult `json:"data"`
}

func TestTestCommandMissingArgs(t *testing.T) {
	res := execute(t, testEnv(t), "", "test")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	res := execute(t, testEnv(t), "", "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, res.code())
	assert.Contains(t, res.err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	res := execute(t, testEnv(t), "", "test", t.TempDir())
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	res := execute(t, testEnv(t), "", "-o", "json", "test", t.TempDir())
	require.NoError(t, res.err)

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	res := execute(t, testEnv(t), "", "-o", "json", "test", "../harness/testdata/scenarios")
	require.NoError(t, res.err, res.stdout)

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	assert.Zero(t, resp.Data.Failed)
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "site_count.yaml", passingScenario)
	writeScenario(t, dir, "wrong_sql.yaml", failingScenario)

	res := execute(t, testEnv(t), "", "test", dir)
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.code())
	assert.Contains(t, res.stdout, "✓ site_count")
	assert.Contains(t, res.stdout, "✗ wrong_sql")
	assert.Contains(t, res.stdout, "sql: expected SELECT id FROM assets, got SELECT * FROM assets")
	assert.Contains(t, res.stdout, "1 passed, 1 failed, 2 total")

	res = execute(t, testEnv(t), "", "test", dir, "--filter", "site_*")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "1 passed, 0 failed, 1 total")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nsteps: []\n")

	res := execute(t, testEnv(t), "", "-o", "json", "test", dir)
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.code())

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "broken.yaml", resp.Data.Scenarios[0].Name)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "failed to load scenario")
}

func TestTestCommandGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "site_count.yaml", passingScenario)

	res := execute(t, testEnv(t), "", "test", dir, "--update")
	require.NoError(t, res.err)
	goldenPath := filepath.Join(dir, "golden", "site_count.golden")
	require.FileExists(t, goldenPath)

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"site_count"`)

	res = execute(t, testEnv(t), "", "test", dir)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "✓ site_count")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"site_count","trace":[]}`), 0o644))
	res = execute(t, testEnv(t), "", "test", dir)
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "trace does not match golden file")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", passingScenario)
	writeScenario(t, dir, "b.yml", passingScenario)
	writeScenario(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	writeScenario(t, filepath.Join(dir, "golden"), "skipped.yaml", passingScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	writeScenario(t, filepath.Join(dir, "nested"), "c.yaml", passingScenario)

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)

	files, err = findScenarioFiles(dir, "[ab]")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "site_filter.golden"),
		goldenFilePath(filepath.Join("scenarios", "site_filter.yaml")))
}
