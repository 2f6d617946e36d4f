package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/duckmesh/duckprompt/internal/query"
)

type Mode string

const (
	ModeRecords Mode = "records"
	ModeTable   Mode = "table"
)

const columnSeparator = "  "

func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeRecords, "":
		return ModeRecords, nil
	case ModeTable:
		return ModeTable, nil
	default:
		return "", fmt.Errorf("invalid render mode %q", value)
	}
}

// Result renders rs in the given mode: []map[string]any for records, string
// for table.
func Result(mode Mode, rs query.ResultSet) any {
	if mode == ModeTable {
		return Table(rs)
	}
	return Records(rs)
}

func Records(rs query.ResultSet) []map[string]any {
	return rs.Records()
}

// Table renders rs as aligned plain text with a header row. Every column is
// padded to its widest cell by display width.
func Table(rs query.ResultSet) string {
	cells := make([][]string, 0, len(rs.Rows)+1)
	cells = append(cells, rs.Columns)
	for _, row := range rs.Rows {
		line := make([]string, len(rs.Columns))
		for i := range rs.Columns {
			if i < len(row) {
				line[i] = FormatValue(row[i])
			} else {
				line[i] = FormatValue(nil)
			}
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(rs.Columns))
	for _, line := range cells {
		for i, cell := range line {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var out strings.Builder
	for _, line := range cells {
		for i, cell := range line {
			if i > 0 {
				out.WriteString(columnSeparator)
			}
			out.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		out.WriteString("\n")
	}
	return out.String()
}

// FormatValue renders a single cell. Structured values are written as JSON.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case string:
		return strings.ReplaceAll(typed, "\n", " ")
	case bool:
		return strconv.FormatBool(typed)
	case float32:
		return strconv.FormatFloat(float64(typed), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	case time.Time:
		return typed.Format(time.RFC3339Nano)
	case map[string]any, []any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	default:
		return fmt.Sprint(typed)
	}
}
