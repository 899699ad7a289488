package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/queryir"
)

// marshalQuery converts a query document to canonical JSON TEXT.
func marshalQuery(q queryir.Query) (string, error) {
	data, err := q.Canonical()
	if err != nil {
		return "", fmt.Errorf("marshal query: %w", err)
	}
	return string(data), nil
}

// unmarshalQuery parses a stored document. Condition values keep their
// integer precision through ir.UnmarshalIRValue.
func unmarshalQuery(data string) (queryir.Query, error) {
	var q queryir.Query
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		return queryir.Query{}, fmt.Errorf("unmarshal query: %w", err)
	}
	return q, nil
}

// cellValue converts a seed value to a SQLite parameter. Lists are stored
// as canonical JSON arrays in a single TEXT cell and times as RFC 3339
// text in UTC.
func cellValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t.UTC().Format(time.RFC3339), nil
	}
	iv, err := ir.FromNative(v)
	if err != nil {
		return nil, err
	}
	switch iv.(type) {
	case ir.IRArray, ir.IRObject:
		data, err := ir.MarshalCanonical(iv)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	return ir.Native(iv)
}

// cellOut converts a scanned column value to a plain Go value. The driver
// parses TIMESTAMP columns into time.Time; they go back out as RFC 3339.
func cellOut(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	}
	return v
}
