package duckdb

import (
	"encoding/json"
	"fmt"
	"strings"

	duckdbdriver "github.com/marcboeker/go-duckdb/v2"

	"github.com/duckmesh/duckprompt/internal/query"
)

func normalizeValues(values []any) query.Row {
	normalized := make(query.Row, len(values))
	for i, value := range values {
		normalized[i] = normalizeValue(value)
	}
	return normalized
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case duckdbdriver.Decimal:
		return typed.Float64()
	case duckdbdriver.Map:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return typed
	}
}

// decodeNestedColumn replaces JSON encoded strings in a single column result
// with their decoded form. Values that do not decode are left untouched.
func decodeNestedColumn(rows []query.Row) {
	for _, row := range rows {
		if len(row) != 1 {
			continue
		}
		text, ok := row[0].(string)
		if !ok || !looksLikeJSON(text) {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			continue
		}
		row[0] = decoded
	}
}

func looksLikeJSON(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	return text[0] == '{' || text[0] == '['
}
