package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/duckmesh/duckprompt/internal/dataset"
	"github.com/duckmesh/duckprompt/internal/query"
	"github.com/duckmesh/duckprompt/internal/storage"
)

// Engine runs every call in its own in-memory DuckDB session. Store is only
// needed for datasets whose path is an s3:// location.
type Engine struct {
	Store storage.ObjectStore
}

var _ query.Engine = (*Engine)(nil)

func NewEngine(store storage.ObjectStore) *Engine {
	return &Engine{Store: store}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) query.Outcome {
	start := time.Now()
	outcome := e.execute(ctx, request)
	outcome.Duration = time.Since(start)
	return outcome
}

func (e *Engine) execute(ctx context.Context, request query.Request) query.Outcome {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return failure(query.SyntaxError, fmt.Errorf("query is empty"))
	}

	localPath, cleanup, err := e.materialize(ctx, request.Dataset.FilePath)
	if err != nil {
		return failure(query.EngineError, err)
	}
	defer cleanup()

	source, err := sourceExpr(localPath)
	if err != nil {
		return failure(query.EngineError, err)
	}

	db, err := openSession()
	if err != nil {
		return failure(query.EngineError, err)
	}
	defer func() { _ = db.Close() }()

	viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM %s`, quoteIdent(query.TableName), source)
	if _, err := db.ExecContext(ctx, viewSQL); err != nil {
		return failure(query.EngineError, fmt.Errorf("load dataset %q: %w", request.Dataset.FilePath, err))
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return failure(classify(err), err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return failure(query.EngineError, fmt.Errorf("query columns: %w", err))
	}

	resultRows := make([]query.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return failure(query.EngineError, fmt.Errorf("scan row: %w", err))
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return failure(classify(err), err)
	}
	if len(resultRows) == 0 {
		return query.Empty()
	}

	result := query.ResultSet{Columns: columns, Rows: resultRows}
	if request.Dataset.IsNested() && len(columns) == 1 {
		decodeNestedColumn(result.Rows)
	}
	renameToDeclared(&result, request.Dataset.Columns)
	return query.Success(result)
}

// renameToDeclared restores the dataset's declared column names when the
// result has exactly as many columns as the dataset. Only the count is
// compared; names are replaced positionally.
func renameToDeclared(result *query.ResultSet, declared []dataset.Column) {
	if len(declared) == 0 || len(result.Columns) != len(declared) {
		return
	}
	renamed := make([]string, len(declared))
	for i, column := range declared {
		renamed[i] = column.Name
	}
	result.Columns = renamed
}

func openSession() (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return db, nil
}

func sourceExpr(path string) (string, error) {
	reader, err := dataset.ReaderForPath(path)
	if err != nil {
		return "", err
	}
	literal := quoteString(path)
	switch reader {
	case dataset.ReaderParquet:
		return fmt.Sprintf("%s(%s)", reader, literal), nil
	case dataset.ReaderCSV:
		if dataset.Extension(path) == "tsv" {
			return fmt.Sprintf(`%s(%s, delim='\t', ignore_errors=true)`, reader, literal), nil
		}
		return fmt.Sprintf("%s(%s, ignore_errors=true)", reader, literal), nil
	default:
		return fmt.Sprintf("%s(%s, ignore_errors=true)", reader, literal), nil
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
