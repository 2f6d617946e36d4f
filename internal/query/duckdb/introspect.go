package duckdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/duckmesh/duckprompt/internal/dataset"
	"github.com/duckmesh/duckprompt/internal/query"
)

var errNoColumns = errors.New("dataset has no columns")

// IntrospectionError reports a dataset file DuckDB could not load or describe.
type IntrospectionError struct {
	Path string
	Err  error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspect dataset %q: %v", e.Path, e.Err)
}

func (e *IntrospectionError) Unwrap() error {
	return e.Err
}

// Introspect loads path into a throwaway table and returns its columns in
// declaration order. Unsupported extensions fail with
// *dataset.UnsupportedFormatError before any session is opened.
func (e *Engine) Introspect(ctx context.Context, path string) ([]dataset.Column, error) {
	if _, err := dataset.FormatForPath(path); err != nil {
		return nil, err
	}

	localPath, cleanup, err := e.materialize(ctx, path)
	if err != nil {
		return nil, &IntrospectionError{Path: path, Err: err}
	}
	defer cleanup()

	columns, err := describe(ctx, localPath)
	if err != nil {
		return nil, &IntrospectionError{Path: path, Err: err}
	}
	return columns, nil
}

func describe(ctx context.Context, localPath string) ([]dataset.Column, error) {
	source, err := sourceExpr(localPath)
	if err != nil {
		return nil, err
	}

	db, err := openSession()
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	createSQL := fmt.Sprintf(`CREATE TABLE %s AS SELECT * FROM %s`, quoteIdent(query.TableName), source)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("load file: %w", err)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteString(query.TableName)))
	if err != nil {
		return nil, fmt.Errorf("read table info: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []dataset.Column
	for rows.Next() {
		var (
			cid          int64
			name         string
			columnType   string
			notNull      bool
			defaultValue any
			primaryKey   bool
		)
		if err := rows.Scan(&cid, &name, &columnType, &notNull, &defaultValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, dataset.Column{Name: name, Type: columnType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	if len(columns) == 0 {
		return nil, errNoColumns
	}
	return columns, nil
}
