package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/queryir"
)

const insertTranslationSQL = `
		INSERT INTO translations
		(id, seq, text, text_hash, fingerprint, intent, query, sql_text, row_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

// Translation is one entry of the translation log.
type Translation struct {
	ID          string        `json:"id"`
	Seq         int64         `json:"seq"`
	Text        string        `json:"text"`
	TextHash    string        `json:"text_hash"`
	Fingerprint string        `json:"fingerprint"`
	Intent      string        `json:"intent"`
	Query       queryir.Query `json:"query"`
	SQL         string        `json:"sql"`
	Rows        *int64        `json:"rows,omitempty"`
}

// NewTranslation builds a log entry and computes its content addresses.
func NewTranslation(seq int64, text, intentType string, q queryir.Query, sqlText string) (Translation, error) {
	fp, err := q.Fingerprint()
	if err != nil {
		return Translation{}, fmt.Errorf("new translation: %w", err)
	}
	return Translation{
		Seq:         seq,
		Text:        text,
		TextHash:    ir.TextFingerprint(text),
		Fingerprint: fp,
		Intent:      intentType,
		Query:       q,
		SQL:         sqlText,
	}, nil
}

// RecordTranslation appends t to the log and returns its ID. An empty ID is
// replaced by a fresh UUIDv7. Writing an ID that already exists is a no-op.
func (s *Store) RecordTranslation(ctx context.Context, t Translation) (string, error) {
	if t.ID == "" {
		t.ID = uuid.Must(uuid.NewV7()).String()
	}
	queryJSON, err := marshalQuery(t.Query)
	if err != nil {
		return "", fmt.Errorf("record translation: %w", err)
	}

	var rows any
	if t.Rows != nil {
		rows = *t.Rows
	}
	_, err = s.db.ExecContext(ctx, insertTranslationSQL,
		t.ID,
		t.Seq,
		t.Text,
		t.TextHash,
		t.Fingerprint,
		t.Intent,
		queryJSON,
		t.SQL,
		rows,
	)
	if err != nil {
		return "", fmt.Errorf("record translation: %w", err)
	}
	return t.ID, nil
}

// InsertAssets inserts rows into the asset table in one transaction and
// returns the number inserted. Keys must be schema columns; a row naming an
// unknown column aborts the whole batch.
func (s *Store) InsertAssets(ctx context.Context, rows []map[string]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, row := range rows {
		stmt, args, err := s.insertAsset(row)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return 0, fmt.Errorf("row %d: insert: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(rows), nil
}

// insertAsset builds the INSERT for one row. Columns are written in sorted
// order so the statement text is stable.
func (s *Store) insertAsset(row map[string]any) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("empty row")
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		col, ok := s.schema.Column(k)
		if !ok {
			return "", nil, fmt.Errorf("unknown column %q", k)
		}
		v, err := cellValue(row[k])
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		cols[i] = quoteIdent(col.Name)
		args[i] = v
	}
	holders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(s.schema.Table()), strings.Join(cols, ", "), holders)
	return stmt, args, nil
}
