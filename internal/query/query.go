package query

import (
	"context"
	"time"

	"github.com/duckmesh/duckprompt/internal/dataset"
)

// TableName is the relation every dataset is exposed as.
const TableName = "data"

type Request struct {
	SQL     string
	Dataset dataset.Metadata
}

// Row holds one value per entry of ResultSet.Columns.
type Row []any

type ResultSet struct {
	Columns []string
	Rows    []Row
}

func (r ResultSet) Len() int {
	return len(r.Rows)
}

// Records converts the result into name to value mappings, one per row.
func (r ResultSet) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		record := make(map[string]any, len(r.Columns))
		for i, column := range r.Columns {
			if i < len(row) {
				record[column] = row[i]
			} else {
				record[column] = nil
			}
		}
		records = append(records, record)
	}
	return records
}

// Head returns a copy limited to the first n rows. n <= 0 keeps every row.
func (r ResultSet) Head(n int) ResultSet {
	if n <= 0 || n >= len(r.Rows) {
		return r
	}
	return ResultSet{Columns: r.Columns, Rows: r.Rows[:n]}
}

type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeEmpty   OutcomeKind = "empty"
	OutcomeFailure OutcomeKind = "failure"
)

type ErrorKind string

const (
	SyntaxError ErrorKind = "syntax"
	SchemaError ErrorKind = "schema"
	EngineError ErrorKind = "engine"
)

// Outcome is the result of running one query. Result is only set for
// OutcomeSuccess; ErrorKind and Message only for OutcomeFailure.
type Outcome struct {
	Kind      OutcomeKind
	Result    ResultSet
	ErrorKind ErrorKind
	Message   string
	Duration  time.Duration
}

func Success(result ResultSet) Outcome {
	return Outcome{Kind: OutcomeSuccess, Result: result}
}

func Empty() Outcome {
	return Outcome{Kind: OutcomeEmpty}
}

func Failure(kind ErrorKind, message string) Outcome {
	return Outcome{Kind: OutcomeFailure, ErrorKind: kind, Message: message}
}

func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

type Engine interface {
	Introspect(ctx context.Context, path string) ([]dataset.Column, error)
	Execute(ctx context.Context, request Request) Outcome
}
