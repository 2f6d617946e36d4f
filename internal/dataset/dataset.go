package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatTabular Format = "tabular"
	FormatNested  Format = "nested"
)

// DefaultNestedColumn is used when a nested dataset has no column whose
// declared type is structured.
const DefaultNestedColumn = "tables"

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Descriptor renders the column as "name::TYPE".
func (c Column) Descriptor() string {
	return c.Name + "::" + c.Type
}

type Metadata struct {
	FilePath     string   `json:"file_path"`
	Columns      []Column `json:"columns"`
	Format       Format   `json:"format"`
	NestedColumn string   `json:"nested_column,omitempty"`
}

func (m Metadata) IsNested() bool {
	return m.Format == FormatNested
}

func (m Metadata) ColumnNames() []string {
	names := make([]string, 0, len(m.Columns))
	for _, column := range m.Columns {
		names = append(names, column.Name)
	}
	return names
}

// PathNavigationColumn returns the column nested-mode prompts should navigate
// into: the explicit NestedColumn, else the first structured column, else
// DefaultNestedColumn.
func (m Metadata) PathNavigationColumn() string {
	if strings.TrimSpace(m.NestedColumn) != "" {
		return m.NestedColumn
	}
	for _, column := range m.Columns {
		if isStructuredType(column.Type) {
			return column.Name
		}
	}
	return DefaultNestedColumn
}

func NewMetadata(filePath string, columns []Column) (Metadata, error) {
	format, err := FormatForPath(filePath)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{FilePath: filePath, Columns: columns, Format: format}, nil
}

func Descriptors(columns []Column) []string {
	out := make([]string, 0, len(columns))
	for _, column := range columns {
		out = append(out, column.Descriptor())
	}
	return out
}

// ParseDescriptor splits "name::TYPE" on the last "::", so column names that
// themselves contain "::" are kept intact.
func ParseDescriptor(descriptor string) (Column, error) {
	descriptor = strings.TrimSpace(descriptor)
	idx := strings.LastIndex(descriptor, "::")
	if idx <= 0 || idx == len(descriptor)-2 {
		return Column{}, fmt.Errorf("invalid column descriptor %q: expected name::type", descriptor)
	}
	return Column{Name: descriptor[:idx], Type: descriptor[idx+2:]}, nil
}

func ParseDescriptors(descriptors []string) ([]Column, error) {
	columns := make([]Column, 0, len(descriptors))
	for _, descriptor := range descriptors {
		column, err := ParseDescriptor(descriptor)
		if err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return columns, nil
}

func isStructuredType(declared string) bool {
	upper := strings.ToUpper(strings.TrimSpace(declared))
	switch {
	case strings.HasPrefix(upper, "STRUCT"), strings.HasPrefix(upper, "MAP"), upper == "JSON":
		return true
	case strings.HasSuffix(upper, "[]"):
		return true
	default:
		return false
	}
}

// Extension returns the lower-cased extension of path without the dot.
func Extension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
