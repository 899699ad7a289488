package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/queryir"
)

// createTestStore opens a store on a fresh database file.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations were not met: %v", err)
	}
}

// siteQuery is the document for "assets in site <site>".
func siteQuery(site int64) queryir.Query {
	return queryir.Query{
		Table:   "assets",
		Select:  []string{"*"},
		Where:   []queryir.Condition{{Column: "site", Operator: "=", Value: ir.IRInt(site)}},
		OrderBy: []queryir.OrderBy{},
	}
}

// createTestTranslation builds a log entry with a fixed ID.
func createTestTranslation(t *testing.T, id string, seq int64, text string, q queryir.Query) Translation {
	t.Helper()
	tr, err := NewTranslation(seq, text, "select", q, "SELECT 1")
	if err != nil {
		t.Fatalf("NewTranslation() failed: %v", err)
	}
	tr.ID = id
	return tr
}

func seedAssets() []map[string]any {
	return []map[string]any{
		{"id": "a3", "site": 54, "hostname": "plc-03", "approved": false, "alerts": 0, "risk": "low"},
		{"id": "a1", "site": 54, "hostname": "plc-01", "approved": true, "alerts": 7, "risk": "high",
			"CVE": []any{"CVE-2021-44228", "CVE-2017-12819"}},
		{"id": "a2", "site": 12, "hostname": "hmi-02", "approved": true, "alerts": 2, "risk": "medium"},
	}
}
