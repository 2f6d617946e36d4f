package duckdb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/duckmesh/duckprompt/internal/dataset"
	"github.com/duckmesh/duckprompt/internal/query"
	"github.com/duckmesh/duckprompt/internal/storage"
)

const scoresCSV = "id,name,score\n1,ada,91\n2,bob,78\n3,cyd,95\n"

type event struct {
	ID    int64  `parquet:"id"`
	Value string `parquet:"value"`
}

func TestExecuteReturnsRowsFromCSV(t *testing.T) {
	meta := csvDataset(t)
	engine := NewEngine(nil)

	outcome := engine.Execute(context.Background(), query.Request{
		SQL:     "SELECT id, name, score FROM data ORDER BY id",
		Dataset: meta,
	})
	if outcome.Kind != query.OutcomeSuccess {
		t.Fatalf("Kind = %q, message = %q", outcome.Kind, outcome.Message)
	}
	if got := strings.Join(outcome.Result.Columns, ","); got != "id,name,score" {
		t.Fatalf("Columns = %s", got)
	}
	if outcome.Result.Len() != 3 {
		t.Fatalf("rows = %d", outcome.Result.Len())
	}
	if outcome.Result.Rows[0][0] != int64(1) || outcome.Result.Rows[0][1] != "ada" {
		t.Fatalf("first row = %#v", outcome.Result.Rows[0])
	}
}

func TestExecuteSelectStarReturnsEveryRowWithDeclaredColumns(t *testing.T) {
	path := writeDatasetFile(t, "cities.csv", "city,population\nOslo,709000\nRome,2873000\nLima,10092000\n")
	meta, err := dataset.NewMetadata(path, []dataset.Column{
		{Name: "city", Type: "VARCHAR"},
		{Name: "population", Type: "BIGINT"},
	})
	if err != nil {
		t.Fatalf("NewMetadata() error = %v", err)
	}

	outcome := NewEngine(nil).Execute(context.Background(), query.Request{SQL: "SELECT * FROM data", Dataset: meta})
	if outcome.Kind != query.OutcomeSuccess {
		t.Fatalf("Kind = %q, message = %q", outcome.Kind, outcome.Message)
	}
	records := outcome.Result.Records()
	if len(records) != 3 {
		t.Fatalf("records = %#v", records)
	}
	want := map[string]int64{"Oslo": 709000, "Rome": 2873000, "Lima": 10092000}
	for _, record := range records {
		if len(record) != 2 {
			t.Fatalf("record = %#v, want exactly city and population", record)
		}
		city, ok := record["city"].(string)
		if !ok {
			t.Fatalf("city = %#v, want string", record["city"])
		}
		population, ok := record["population"].(int64)
		if !ok || population != want[city] {
			t.Fatalf("population for %q = %#v, want int64 %d", city, record["population"], want[city])
		}
		delete(want, city)
	}
	if len(want) != 0 {
		t.Fatalf("missing cities: %v", want)
	}
}

func TestExecuteFiltersRows(t *testing.T) {
	meta := csvDataset(t)
	outcome := NewEngine(nil).Execute(context.Background(), query.Request{
		SQL:     "SELECT * FROM data WHERE score > 90 ORDER BY id;",
		Dataset: meta,
	})
	if outcome.Kind != query.OutcomeSuccess {
		t.Fatalf("Kind = %q, message = %q", outcome.Kind, outcome.Message)
	}
	records := outcome.Result.Records()
	if len(records) != 2 {
		t.Fatalf("records = %#v", records)
	}
	if records[0]["name"] != "ada" || records[1]["name"] != "cyd" {
		t.Fatalf("records = %#v", records)
	}
}

func TestExecuteReportsEmptyResult(t *testing.T) {
	outcome := NewEngine(nil).Execute(context.Background(), query.Request{
		SQL:     "SELECT * FROM data WHERE score > 1000",
		Dataset: csvDataset(t),
	})
	if outcome.Kind != query.OutcomeEmpty {
		t.Fatalf("Kind = %q, want empty", outcome.Kind)
	}
	if outcome.Result.Len() != 0 {
		t.Fatalf("Empty outcome carries %d rows", outcome.Result.Len())
	}
}

func TestExecuteClassifiesSyntaxError(t *testing.T) {
	outcome := NewEngine(nil).Execute(context.Background(), query.Request{
		SQL:     "SELECT * FROM data WHERE (score > 1",
		Dataset: csvDataset(t),
	})
	if outcome.Kind != query.OutcomeFailure || outcome.ErrorKind != query.SyntaxError {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.HasPrefix(outcome.Message, "Error: SQL Syntax error - Please check your query. Details: ") {
		t.Fatalf("Message = %q", outcome.Message)
	}
}

func TestExecuteClassifiesUnknownColumnAsSchemaError(t *testing.T) {
	outcome := NewEngine(nil).Execute(context.Background(), query.Request{
		SQL:     "SELECT salary FROM data",
		Dataset: csvDataset(t),
	})
	if outcome.Kind != query.OutcomeFailure || outcome.ErrorKind != query.SchemaError {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.HasPrefix(outcome.Message, "Error: Column name error - Please check if the column names are correct. Details: ") {
		t.Fatalf("Message = %q", outcome.Message)
	}
	if !strings.Contains(outcome.Message, "salary") {
		t.Fatalf("Message should name the column: %q", outcome.Message)
	}
}

func TestExecuteClassifiesOtherFailuresAsEngineError(t *testing.T) {
	outcome := NewEngine(nil).Execute(context.Background(), query.Request{
		SQL:     "SELECT CAST(name AS INTEGER) FROM data",
		Dataset: csvDataset(t),
	})
	if outcome.Kind != query.OutcomeFailure || outcome.ErrorKind != query.EngineError {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.HasPrefix(outcome.Message, "An unexpected error occurred: ") || !strings.HasSuffix(outcome.Message, "Please review the prompt or try again.") {
		t.Fatalf("Message = %q", outcome.Message)
	}
}

func TestExecuteRejectsBlankQuery(t *testing.T) {
	outcome := NewEngine(nil).Execute(context.Background(), query.Request{SQL: " ; ", Dataset: csvDataset(t)})
	if outcome.Kind != query.OutcomeFailure || outcome.ErrorKind != query.SyntaxError {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestExecuteRenamesColumnsWhenCountMatches(t *testing.T) {
	meta := csvDataset(t)
	engine := NewEngine(nil)

	outcome := engine.Execute(context.Background(), query.Request{
		SQL:     "SELECT id AS a, name AS b, score AS c FROM data",
		Dataset: meta,
	})
	if outcome.Kind != query.OutcomeSuccess {
		t.Fatalf("Kind = %q, message = %q", outcome.Kind, outcome.Message)
	}
	if got := strings.Join(outcome.Result.Columns, ","); got != "id,name,score" {
		t.Fatalf("Columns = %s, want declared names", got)
	}

	outcome = engine.Execute(context.Background(), query.Request{
		SQL:     "SELECT name AS who FROM data",
		Dataset: meta,
	})
	if got := strings.Join(outcome.Result.Columns, ","); got != "who" {
		t.Fatalf("Columns = %s, want alias kept", got)
	}
}

func TestExecuteDecodesNestedJSONStrings(t *testing.T) {
	path := writeDatasetFile(t, "orders.jsonl", `{"id":1,"tables":{"name":"north","seats":4}}
{"id":2,"tables":{"name":"south","seats":2}}
`)
	meta := dataset.Metadata{
		FilePath: path,
		Format:   dataset.FormatNested,
		Columns:  []dataset.Column{{Name: "id", Type: "BIGINT"}, {Name: "tables", Type: "STRUCT(name VARCHAR, seats BIGINT)"}},
	}

	outcome := NewEngine(nil).Execute(context.Background(), query.Request{
		SQL:     `SELECT CASE WHEN id = 1 THEN '{"a":1}' ELSE 'not json {' END AS payload FROM data ORDER BY id`,
		Dataset: meta,
	})
	if outcome.Kind != query.OutcomeSuccess {
		t.Fatalf("Kind = %q, message = %q", outcome.Kind, outcome.Message)
	}
	decoded, ok := outcome.Result.Rows[0][0].(map[string]any)
	if !ok {
		t.Fatalf("row 0 = %#v, want decoded object", outcome.Result.Rows[0][0])
	}
	if decoded["a"] != float64(1) {
		t.Fatalf("decoded = %#v", decoded)
	}
	if outcome.Result.Rows[1][0] != "not json {" {
		t.Fatalf("row 1 = %#v, want original string", outcome.Result.Rows[1][0])
	}
}

func TestExecuteReadsStructFields(t *testing.T) {
	path := writeDatasetFile(t, "orders.json", `[{"id":1,"tables":{"name":"north"}},{"id":2,"tables":{"name":"south"}}]`)
	meta, err := dataset.NewMetadata(path, nil)
	if err != nil {
		t.Fatalf("NewMetadata() error = %v", err)
	}

	outcome := NewEngine(nil).Execute(context.Background(), query.Request{
		SQL:     "SELECT tables.name AS table_name FROM data ORDER BY id",
		Dataset: meta,
	})
	if outcome.Kind != query.OutcomeSuccess {
		t.Fatalf("Kind = %q, message = %q", outcome.Kind, outcome.Message)
	}
	if outcome.Result.Rows[1][0] != "south" {
		t.Fatalf("rows = %#v", outcome.Result.Rows)
	}
}

func TestIntrospectCSV(t *testing.T) {
	columns, err := NewEngine(nil).Introspect(context.Background(), csvDataset(t).FilePath)
	if err != nil {
		t.Fatalf("Introspect() error = %v", err)
	}
	got := strings.Join(dataset.Descriptors(columns), ",")
	if got != "id::BIGINT,name::VARCHAR,score::BIGINT" {
		t.Fatalf("descriptors = %s", got)
	}
}

func TestIntrospectTSV(t *testing.T) {
	path := writeDatasetFile(t, "people.tsv", "name\tage\nada\t36\n")
	columns, err := NewEngine(nil).Introspect(context.Background(), path)
	if err != nil {
		t.Fatalf("Introspect() error = %v", err)
	}
	if len(columns) != 2 || columns[0].Name != "name" || columns[1].Name != "age" {
		t.Fatalf("columns = %#v", columns)
	}
}

func TestIntrospectRejectsUnsupportedFormat(t *testing.T) {
	path := writeDatasetFile(t, "notes.txt", "hello")
	_, err := NewEngine(nil).Introspect(context.Background(), path)
	var unsupported *dataset.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Introspect() error = %v, want UnsupportedFormatError", err)
	}
}

func TestIntrospectMissingFile(t *testing.T) {
	_, err := NewEngine(nil).Introspect(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	var introspection *IntrospectionError
	if !errors.As(err, &introspection) {
		t.Fatalf("Introspect() error = %v, want IntrospectionError", err)
	}
}

func TestParquetThroughObjectStore(t *testing.T) {
	parquetBytes, err := buildParquet([]event{{ID: 1, Value: "a"}, {ID: 2, Value: "b"}})
	if err != nil {
		t.Fatalf("buildParquet() error = %v", err)
	}
	store := &memoryStore{objects: map[string][]byte{"events.parquet": parquetBytes}}
	engine := NewEngine(store)
	location := storage.RemoteLocation("events.parquet")

	columns, err := engine.Introspect(context.Background(), location)
	if err != nil {
		t.Fatalf("Introspect() error = %v", err)
	}
	meta, err := dataset.NewMetadata(location, columns)
	if err != nil {
		t.Fatalf("NewMetadata() error = %v", err)
	}
	if meta.IsNested() {
		t.Fatal("parquet dataset should be tabular")
	}

	outcome := engine.Execute(context.Background(), query.Request{
		SQL:     "SELECT COUNT(*) AS c FROM data",
		Dataset: meta,
	})
	if outcome.Kind != query.OutcomeSuccess {
		t.Fatalf("Kind = %q, message = %q", outcome.Kind, outcome.Message)
	}
	if outcome.Result.Rows[0][0] != int64(2) {
		t.Fatalf("count = %#v", outcome.Result.Rows[0][0])
	}
}

func TestRemoteDatasetWithoutStoreFails(t *testing.T) {
	outcome := NewEngine(nil).Execute(context.Background(), query.Request{
		SQL:     "SELECT 1",
		Dataset: dataset.Metadata{FilePath: "s3://events.parquet", Format: dataset.FormatTabular},
	})
	if outcome.Kind != query.OutcomeFailure || outcome.ErrorKind != query.EngineError {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestClassifyFallsBackToMessagePrefix(t *testing.T) {
	cases := map[string]query.ErrorKind{
		"Parser Error: syntax error at end of input":           query.SyntaxError,
		`Binder Error: Referenced column "x" not found`:         query.SchemaError,
		"Catalog Error: Table with name other does not exist!": query.SchemaError,
		"IO Error: No files found":                             query.EngineError,
	}
	for message, want := range cases {
		if got := classify(errors.New(message)); got != want {
			t.Fatalf("classify(%q) = %q, want %q", message, got, want)
		}
	}
}

func TestNormalizeValue(t *testing.T) {
	got := normalizeValue(map[string]any{"raw": []byte("x"), "list": []any{[]byte("y")}})
	record, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("normalizeValue() = %#v", got)
	}
	if record["raw"] != "x" {
		t.Fatalf("raw = %#v", record["raw"])
	}
	if list, ok := record["list"].([]any); !ok || list[0] != "y" {
		t.Fatalf("list = %#v", record["list"])
	}
}

func csvDataset(t *testing.T) dataset.Metadata {
	t.Helper()
	path := writeDatasetFile(t, "scores.csv", scoresCSV)
	meta, err := dataset.NewMetadata(path, []dataset.Column{
		{Name: "id", Type: "BIGINT"},
		{Name: "name", Type: "VARCHAR"},
		{Name: "score", Type: "BIGINT"},
	})
	if err != nil {
		t.Fatalf("NewMetadata() error = %v", err)
	}
	return meta
}

func writeDatasetFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func buildParquet(rows []event) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[event](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Put(context.Context, string, io.Reader, int64, storage.PutOptions) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (m *memoryStore) Stat(context.Context, string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, nil
}

func (m *memoryStore) Delete(context.Context, string) error {
	return nil
}
