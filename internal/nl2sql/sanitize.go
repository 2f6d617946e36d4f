package nl2sql

import (
	"regexp"
	"strings"
)

var (
	// A fence may carry a language tag. Common SQL dialect names are removed
	// even when the query follows on the same line; any other tag only when
	// it ends the line.
	codeFencePattern = regexp.MustCompile("(?i)```(?:(?:sql|duckdb|postgres(?:ql)?)\\b|[a-z0-9_+-]*[ \\t]*(?:\\r\\n|\\r|\\n))?")
	lineBreakPattern = regexp.MustCompile(`\r\n|\r|\n`)
)

// Sanitize strips markdown code fences from model output and flattens it to a
// single trimmed line. It does not check that the result is valid SQL.
func Sanitize(raw string) string {
	cleaned := codeFencePattern.ReplaceAllString(raw, "")
	cleaned = lineBreakPattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
