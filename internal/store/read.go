package store

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	lastSeqSQL = `SELECT COALESCE(MAX(seq), 0) FROM translations`

	// historySQL takes the newest entries, then returns them oldest first.
	historySQL = `
		SELECT id, seq, text, text_hash, fingerprint, intent, query, sql_text, row_count
		FROM (
			SELECT * FROM translations
			ORDER BY seq DESC, id COLLATE BINARY DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`

	byFingerprintSQL = `
		SELECT id, seq, text, text_hash, fingerprint, intent, query, sql_text, row_count
		FROM translations
		WHERE fingerprint = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`

	translationSQL = `
		SELECT id, seq, text, text_hash, fingerprint, intent, query, sql_text, row_count
		FROM translations
		WHERE id = ?
	`
)

// Result is the outcome of running a query against the asset table.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Execute runs a compiled SELECT and collects every row. TEXT cells come
// back as strings. Callers pass SQL from querysql.Compile, which already
// orders rows deterministically.
func (s *Store) Execute(ctx context.Context, query string, args ...any) (Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("execute: columns: %w", err)
	}

	res := Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("execute: scan: %w", err)
		}
		for i, c := range cells {
			cells[i] = cellOut(c)
		}
		res.Rows = append(res.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("execute: iterate: %w", err)
	}
	return res, nil
}

// History returns the newest limit log entries in seq order. A limit of
// zero or less returns the whole log.
func (s *Store) History(ctx context.Context, limit int) ([]Translation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, historySQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return collectTranslations(rows)
}

// ByFingerprint returns every log entry that produced the query with the
// given fingerprint, in seq order.
func (s *Store) ByFingerprint(ctx context.Context, fingerprint string) ([]Translation, error) {
	rows, err := s.db.QueryContext(ctx, byFingerprintSQL, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query by fingerprint: %w", err)
	}
	return collectTranslations(rows)
}

// ReadTranslation retrieves a single entry by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadTranslation(ctx context.Context, id string) (Translation, error) {
	return scanTranslation(s.db.QueryRowContext(ctx, translationSQL, id))
}

type scanner interface {
	Scan(dest ...any) error
}

func collectTranslations(rows *sql.Rows) ([]Translation, error) {
	defer rows.Close()

	out := []Translation{}
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return out, nil
}

func scanTranslation(row scanner) (Translation, error) {
	var (
		t         Translation
		queryJSON string
		count     sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Seq, &t.Text, &t.TextHash, &t.Fingerprint, &t.Intent, &queryJSON, &t.SQL, &count)
	if err != nil {
		if err == sql.ErrNoRows {
			return Translation{}, err
		}
		return Translation{}, fmt.Errorf("scan translation: %w", err)
	}
	q, err := unmarshalQuery(queryJSON)
	if err != nil {
		return Translation{}, err
	}
	t.Query = q
	if count.Valid {
		n := count.Int64
		t.Rows = &n
	}
	return t, nil
}
