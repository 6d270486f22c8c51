package exec

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/roach88/cachequery/internal/query"
)

// Column describes one projected column of a SQL-fields result.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// FieldsResult holds the rows of a SQL-fields query.
// Columns is nil unless the descriptor includes metadata.
type FieldsResult struct {
	Columns []Column
	Rows    []query.Row
}

// Fields runs a SQL-fields descriptor. args are bound to the placeholders of
// the clause.
//
// The clause runs read-only: statements that write fail with ErrCodeStore and
// leave the store unchanged. The clause sees the whole entries table and
// selects a cache itself (WHERE cache_name = ?). The descriptor's cache is
// used only to label logs and metrics.
//
// Text and blob values are returned as string; other values keep the type
// the SQLite driver produces (int64, float64, bool, nil).
func (e *Engine) Fields(ctx context.Context, d *query.Descriptor[query.Row], args ...any) (*FieldsResult, error) {
	if d == nil {
		return nil, newError(ErrCodeInvalidDescriptor, query.KindUnknown, nil, "descriptor is nil")
	}

	var result *FieldsResult
	err := e.observe(ctx, d, func(log *zap.Logger) (int, error) {
		if err := validate(d, query.KindSQLFields); err != nil {
			return 0, err
		}

		stmt, err := e.compiler.Compile(d, args...)
		if err != nil {
			return 0, newError(ErrCodeInvalidDescriptor, d.Kind(), err, "compile")
		}

		err = e.read(ctx, stmt, func(rows *sql.Rows) error {
			var err error
			result, err = scanFields(rows, d.IncludeMetadata())
			return err
		})
		if err != nil {
			return 0, newError(ErrCodeStore, d.Kind(), err, "execute clause")
		}
		return len(result.Rows), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanFields(rows *sql.Rows, includeMetadata bool) (*FieldsResult, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	result := &FieldsResult{Rows: []query.Row{}}
	if includeMetadata {
		result.Columns = make([]Column, len(types))
		for i, ct := range types {
			result.Columns[i] = Column{Name: ct.Name(), Type: ct.DatabaseTypeName()}
		}
	}

	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
