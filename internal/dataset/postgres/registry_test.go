package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/duckmesh/duckprompt/internal/dataset"
)

func TestGetReturnsMetadata(t *testing.T) {
	db, mock := newSQLMock(t)
	registry := NewRegistry(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT file_path, format, nested_column, columns
FROM dataset_metadata
WHERE dataset_id = $1`)).
		WithArgs("sales.csv").
		WillReturnRows(sqlmock.NewRows([]string{"file_path", "format", "nested_column", "columns"}).
			AddRow("public/uploads/sales.csv", "tabular", nil, []byte(`[{"name":"region","type":"VARCHAR"},{"name":"amount","type":"DOUBLE"}]`)))

	metadata, err := registry.Get(context.Background(), "sales.csv")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if metadata.FilePath != "public/uploads/sales.csv" {
		t.Fatalf("FilePath = %q", metadata.FilePath)
	}
	if metadata.Format != dataset.FormatTabular {
		t.Fatalf("Format = %q", metadata.Format)
	}
	if len(metadata.Columns) != 2 || metadata.Columns[1].Descriptor() != "amount::DOUBLE" {
		t.Fatalf("Columns = %+v", metadata.Columns)
	}
	if metadata.NestedColumn != "" {
		t.Fatalf("NestedColumn = %q", metadata.NestedColumn)
	}
	assertSQLMock(t, mock)
}

func TestGetReturnsNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	registry := NewRegistry(db)

	mock.ExpectQuery(`SELECT file_path, format, nested_column, columns`).
		WithArgs("missing.csv").
		WillReturnError(sql.ErrNoRows)

	_, err := registry.Get(context.Background(), "missing.csv")
	if !errors.Is(err, dataset.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	assertSQLMock(t, mock)
}

func TestSetUpsertsMetadata(t *testing.T) {
	db, mock := newSQLMock(t)
	registry := NewRegistry(db)

	mock.ExpectExec(`INSERT INTO dataset_metadata`).
		WithArgs("doc.json", "s3://uploads/doc.json", "nested", "", `[{"name":"tables","type":"JSON"}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := registry.Set(context.Background(), "doc.json", dataset.Metadata{
		FilePath: "s3://uploads/doc.json",
		Format:   dataset.FormatNested,
		Columns:  []dataset.Column{{Name: "tables", Type: "JSON"}},
	})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestSetEncodesMissingColumnsAsEmptyArray(t *testing.T) {
	db, mock := newSQLMock(t)
	registry := NewRegistry(db)

	mock.ExpectExec(`INSERT INTO dataset_metadata`).
		WithArgs("lazy.csv", "/tmp/lazy.csv", "tabular", "", `[]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := registry.Set(context.Background(), "lazy.csv", dataset.Metadata{FilePath: "/tmp/lazy.csv", Format: dataset.FormatTabular}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestListReturnsIDs(t *testing.T) {
	db, mock := newSQLMock(t)
	registry := NewRegistry(db)

	mock.ExpectQuery(`SELECT dataset_id`).
		WillReturnRows(sqlmock.NewRows([]string{"dataset_id"}).AddRow("a.csv").AddRow("b.json"))

	ids, err := registry.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "a.csv" || ids[1] != "b.json" {
		t.Fatalf("ids = %#v", ids)
	}
	assertSQLMock(t, mock)
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
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
