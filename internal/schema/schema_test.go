package schema

import (
	"errors"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema(t *testing.T) {
	s := Default()
	require.NotNil(t, s)

	assert.Equal(t, "assets", s.Table())
	assert.Equal(t, "id", s.PrimaryKey())
	assert.Len(t, s.Columns(), 65)
	assert.Equal(t, "id", s.ColumnNames()[0])
	assert.Equal(t, "CVE", s.ColumnNames()[len(s.ColumnNames())-1])
	assert.Same(t, s, Default())
}

func TestLookupSynonyms(t *testing.T) {
	s := Default()

	tests := []struct {
		word string
		want string
	}{
		{"site", "site"},
		{"Location", "site"},
		{"ip", "ipv4"},
		{"IP", "ipv4"},
		{"cve", "CVE"},
		{"vulnerabilities", "CVE"},
		{"host", "hostname"},
		{"approved", "approved"},
		{"query", "active_queries"},
		{"old_ip", "old_ip"},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got, ok := s.Lookup(tt.word)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := s.Lookup("assets")
	assert.False(t, ok)
}

func TestLookupPhrase(t *testing.T) {
	s := Default()

	got, ok := s.LookupPhrase("ip", "address")
	require.True(t, ok)
	assert.Equal(t, "ipv4", got)

	got, ok = s.LookupPhrase("Last", "Seen")
	require.True(t, ok)
	assert.Equal(t, "last_seen", got)

	got, ok = s.LookupPhrase("active", "query")
	require.True(t, ok)
	assert.Equal(t, "active_queries", got)

	_, ok = s.LookupPhrase("site", "54")
	assert.False(t, ok)

	assert.GreaterOrEqual(t, s.MaxPhraseWords(), 2)
}

func TestColumnClasses(t *testing.T) {
	s := Default()

	for _, name := range []string{"approved", "valid", "ghost", "parsed", "has_interfaces"} {
		assert.True(t, s.IsBoolean(name), name)
	}
	assert.False(t, s.IsBoolean("site"))

	assert.True(t, s.IsNumeric("alerts"))
	assert.True(t, s.IsNumeric("plc_slots"))
	assert.False(t, s.IsNumeric("site"))

	for _, name := range []string{"old_ip", "active_queries", "active_tasks", "CVE"} {
		assert.True(t, s.IsMultiValue(name), name)
		assert.True(t, s.IsListValued(name), name)
	}
	assert.False(t, s.IsMultiValue("children"))
	assert.True(t, s.IsListValued("children"))

	col, ok := s.Column("cve")
	require.True(t, ok)
	assert.Equal(t, "CVE", col.Name)
	assert.Equal(t, ClassText, col.Class())

	col, ok = s.Column("last_seen")
	require.True(t, ok)
	assert.Equal(t, ClassTimestamp, col.Class())
}

func TestIdentifierColumns(t *testing.T) {
	s := Default()

	for shape, want := range map[string]string{
		ShapeCVE:    "CVE",
		ShapeIPv4:   "ipv4",
		ShapeMAC:    "mac",
		ShapeVendor: "vendor",
	} {
		got, ok := s.IdentifierColumn(shape)
		require.True(t, ok, shape)
		assert.Equal(t, want, got)
	}

	_, ok := s.IdentifierColumn("ipv6")
	assert.False(t, ok)
}

func TestWithTable(t *testing.T) {
	s := Default()
	other := s.WithTable("devices")

	assert.Equal(t, "devices", other.Table())
	assert.Equal(t, "assets", s.Table())
	assert.Same(t, s, s.WithTable(""))
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []Column
		field   string
	}{
		{"missing table", "", []Column{{Name: "id", Type: "TEXT"}}, "table"},
		{"no columns", "t", nil, "columns"},
		{"missing type", "t", []Column{{Name: "id"}}, "columns.id.type"},
		{"duplicate column", "t", []Column{{Name: "id", Type: "TEXT"}, {Name: "ID", Type: "TEXT"}}, "columns.ID"},
		{"shared synonym", "t", []Column{
			{Name: "a", Type: "TEXT", Synonyms: []string{"thing"}},
			{Name: "b", Type: "TEXT", Synonyms: []string{"Thing"}},
		}, "columns.b.synonyms"},
		{"unknown shape", "t", []Column{{Name: "a", Type: "TEXT", Identifier: "phone"}}, "columns.a.identifier"},
		{"boolean multi value", "t", []Column{{Name: "a", Type: "BOOLEAN", MultiValue: true}}, "columns.a.multi_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.table, tt.columns)
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestNewMinimalSchema(t *testing.T) {
	s, err := New("devices", []Column{
		{Name: "serial", Type: "TEXT", PrimaryKey: true},
		{Name: "online", Type: "BOOLEAN", Synonyms: []string{"up", "Up"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "serial", s.PrimaryKey())
	name, ok := s.Lookup("up")
	require.True(t, ok)
	assert.Equal(t, "online", name)

	col, _ := s.Column("online")
	assert.Equal(t, []string{"online", "up"}, col.Synonyms)
}

func TestCompileFromCUE(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
table: "devices"
columns: {
	serial: {type: "TEXT", primary_key: true, synonyms: ["sn", "serial number"]}
	online: {type: "BOOLEAN", synonyms: ["up"]}
	addr:   {type: "TEXT", identifier: "ipv4", synonyms: []}
}
`)

	s, err := Compile(v)
	require.NoError(t, err)
	assert.Equal(t, "devices", s.Table())
	assert.Equal(t, []string{"serial", "online", "addr"}, s.ColumnNames())

	got, ok := s.LookupPhrase("serial", "number")
	require.True(t, ok)
	assert.Equal(t, "serial", got)

	got, ok = s.IdentifierColumn(ShapeIPv4)
	require.True(t, ok)
	assert.Equal(t, "addr", got)
}

func TestCompileErrorsCarryPositions(t *testing.T) {
	_, err := LoadBytes("bad.cue", []byte(`
columns: {
	id: {type: "TEXT", synonyms: []}
}
`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "table", ce.Field)
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := LoadBytes("broken.cue", []byte(`table: "assets`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/schema.cue")
	assert.Error(t, err)
}
