package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/duckmesh/duckprompt/internal/dataset"
)

// Registry stores dataset metadata in the dataset_metadata table created by
// internal/migrations.
type Registry struct {
	db *sql.DB
}

func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db}
}

func (r *Registry) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping registry db: %w", err)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, datasetID string) (dataset.Metadata, error) {
	query := `
SELECT file_path, format, nested_column, columns
FROM dataset_metadata
WHERE dataset_id = $1`

	var (
		metadata    dataset.Metadata
		format      string
		nested      sql.NullString
		columnsJSON []byte
	)
	if err := r.db.QueryRowContext(ctx, query, datasetID).Scan(
		&metadata.FilePath,
		&format,
		&nested,
		&columnsJSON,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dataset.Metadata{}, dataset.ErrNotFound
		}
		return dataset.Metadata{}, fmt.Errorf("get dataset metadata: %w", err)
	}
	metadata.Format = dataset.Format(format)
	metadata.NestedColumn = nested.String
	if len(columnsJSON) > 0 {
		if err := json.Unmarshal(columnsJSON, &metadata.Columns); err != nil {
			return dataset.Metadata{}, fmt.Errorf("decode dataset columns: %w", err)
		}
	}
	return metadata, nil
}

func (r *Registry) Set(ctx context.Context, datasetID string, metadata dataset.Metadata) error {
	if strings.TrimSpace(datasetID) == "" {
		return fmt.Errorf("dataset id is required")
	}
	columns := metadata.Columns
	if columns == nil {
		columns = []dataset.Column{}
	}
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("encode dataset columns: %w", err)
	}

	query := `
INSERT INTO dataset_metadata (dataset_id, file_path, format, nested_column, columns)
VALUES ($1, $2, $3, NULLIF($4, ''), $5::jsonb)
ON CONFLICT (dataset_id)
DO UPDATE SET file_path = EXCLUDED.file_path,
              format = EXCLUDED.format,
              nested_column = EXCLUDED.nested_column,
              columns = EXCLUDED.columns,
              updated_at = now()`
	if _, err := r.db.ExecContext(ctx, query,
		datasetID,
		metadata.FilePath,
		string(metadata.Format),
		metadata.NestedColumn,
		string(columnsJSON),
	); err != nil {
		return fmt.Errorf("set dataset metadata: %w", err)
	}
	return nil
}

func (r *Registry) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT dataset_id
FROM dataset_metadata
ORDER BY dataset_id`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan dataset id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return ids, nil
}
