package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devicesCUE = `
table: "devices"
columns: {
	serial: {type: "TEXT", primary_key: true, synonyms: ["sn", "serial number"]}
	online: {type: "BOOLEAN", synonyms: ["up"]}
}
`

func writeCUE(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSchema_ShowDefault(t *testing.T) {
	res := execute(t, testEnv(t), "", "schema")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Table: assets\n")
	assert.Contains(t, res.stdout, "COLUMN")
	assert.Contains(t, res.stdout, "hostname")
	assert.Contains(t, res.stdout, `CREATE TABLE IF NOT EXISTS "assets"`)
}

func TestSchema_ShowCustomJSON(t *testing.T) {
	path := writeCUE(t, "devices.cue", devicesCUE)

	res := execute(t, testEnv(t), "", "-o", "json", "--schema", path, "schema")
	require.NoError(t, res.err)

	var resp struct {
		Status string     `json:"status"`
		Data   SchemaInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "devices", resp.Data.Table)
	require.Len(t, resp.Data.Columns, 2)
	assert.Equal(t, "serial", resp.Data.Columns[0].Name)
	assert.True(t, resp.Data.Columns[0].PrimaryKey)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS \"devices\" (\n    \"serial\" TEXT PRIMARY KEY,\n    \"online\" BOOLEAN\n)", resp.Data.DDL)
}

func TestSchema_TableOverride(t *testing.T) {
	res := execute(t, testEnv(t), "", "--table", "inventory", "schema")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Table: inventory\n")
}

func TestSchema_Validate(t *testing.T) {
	good := writeCUE(t, "devices.cue", devicesCUE)
	res := execute(t, testEnv(t), "", "schema", "validate", good)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "(table devices, 2 columns)")

	bad := writeCUE(t, "bad.cue", "columns: {\n\tid: {type: \"TEXT\", synonyms: []}\n}\n")
	res = execute(t, testEnv(t), "", "-o", "json", "schema", "validate", bad)
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.code())

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string           `json:"code"`
			Details SchemaValidation `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeInvalidSchema, resp.Error.Code)
	assert.False(t, resp.Error.Details.Valid)
	assert.Equal(t, "table", resp.Error.Details.Field)

	res = execute(t, testEnv(t), "", "schema", "validate", filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, res.code())
}

func TestSchema_InvalidSchemaFlag(t *testing.T) {
	bad := writeCUE(t, "broken.cue", `table: "assets`)
	res := execute(t, testEnv(t), "", "--schema", bad, "translate", "Show me all assets")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, res.code())
	assert.Contains(t, res.err.Error(), "load schema")
}

func TestSchema_Source(t *testing.T) {
	res := execute(t, testEnv(t), "", "schema", "source")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `table: "assets"`)
}
