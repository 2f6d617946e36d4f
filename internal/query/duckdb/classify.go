package duckdb

import (
	"errors"
	"fmt"
	"strings"

	duckdbdriver "github.com/marcboeker/go-duckdb/v2"

	"github.com/duckmesh/duckprompt/internal/query"
)

const (
	syntaxErrorFormat = "Error: SQL Syntax error - Please check your query. Details: %s"
	schemaErrorFormat = "Error: Column name error - Please check if the column names are correct. Details: %s"
	engineErrorFormat = "An unexpected error occurred: %s. Please review the prompt or try again."
)

// classify maps a driver error onto the outcome error kinds. Unresolved
// columns surface from DuckDB as binder errors, unknown tables as catalog
// errors.
func classify(err error) query.ErrorKind {
	var driverErr *duckdbdriver.Error
	if errors.As(err, &driverErr) {
		switch driverErr.Type {
		case duckdbdriver.ErrorTypeParser, duckdbdriver.ErrorTypeSyntax:
			return query.SyntaxError
		case duckdbdriver.ErrorTypeBinder, duckdbdriver.ErrorTypeCatalog:
			return query.SchemaError
		default:
			return query.EngineError
		}
	}

	message := err.Error()
	switch {
	case strings.HasPrefix(message, "Parser Error"), strings.HasPrefix(message, "Syntax Error"):
		return query.SyntaxError
	case strings.HasPrefix(message, "Binder Error"), strings.HasPrefix(message, "Catalog Error"):
		return query.SchemaError
	default:
		return query.EngineError
	}
}

func failureMessage(kind query.ErrorKind, err error) string {
	details := strings.TrimSpace(err.Error())
	switch kind {
	case query.SyntaxError:
		return fmt.Sprintf(syntaxErrorFormat, details)
	case query.SchemaError:
		return fmt.Sprintf(schemaErrorFormat, details)
	default:
		return fmt.Sprintf(engineErrorFormat, details)
	}
}

func failure(kind query.ErrorKind, err error) query.Outcome {
	return query.Failure(kind, failureMessage(kind, err))
}
