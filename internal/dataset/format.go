package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Reader names the DuckDB table function that loads a file of this kind.
type Reader string

const (
	ReaderCSV     Reader = "read_csv_auto"
	ReaderJSON    Reader = "read_json_auto"
	ReaderParquet Reader = "read_parquet"
)

type fileKind struct {
	format Format
	reader Reader
}

var allowedExtensions = map[string]fileKind{
	"csv":     {format: FormatTabular, reader: ReaderCSV},
	"tsv":     {format: FormatTabular, reader: ReaderCSV},
	"parquet": {format: FormatTabular, reader: ReaderParquet},
	"json":    {format: FormatNested, reader: ReaderJSON},
	"jsonl":   {format: FormatNested, reader: ReaderJSON},
	"ndjson":  {format: FormatNested, reader: ReaderJSON},
}

type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("unsupported file type: %s; supported types are %s", ext, strings.Join(AllowedExtensions(), ", "))
}

func AllowedExtensions() []string {
	out := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func IsAllowed(path string) bool {
	_, ok := allowedExtensions[Extension(path)]
	return ok
}

func FormatForPath(path string) (Format, error) {
	kind, ok := allowedExtensions[Extension(path)]
	if !ok {
		return "", &UnsupportedFormatError{Extension: Extension(path)}
	}
	return kind.format, nil
}

func ReaderForPath(path string) (Reader, error) {
	kind, ok := allowedExtensions[Extension(path)]
	if !ok {
		return "", &UnsupportedFormatError{Extension: Extension(path)}
	}
	return kind.reader, nil
}
