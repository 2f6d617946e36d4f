package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/duckmesh/duckprompt/internal/dataset"
)

const stagingPrefix = "staging-"

var (
	pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)
	unsafeNameChars      = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// SanitizeFilename reduces a client supplied file name to a single safe path
// component. Directory parts are dropped and runs of other characters become
// underscores.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = path.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	return strings.TrimLeft(name, "._-")
}

// BuildUploadPath returns the object key an uploaded dataset is stored under.
// The extension must be one the query engine can read.
func BuildUploadPath(name string) (string, error) {
	cleaned := SanitizeFilename(name)
	if err := validatePathComponent(cleaned, "file name"); err != nil {
		return "", err
	}
	if !dataset.IsAllowed(cleaned) {
		return "", &dataset.UnsupportedFormatError{Extension: dataset.Extension(cleaned)}
	}
	return cleaned, nil
}

// StagingKey returns a unique key an upload for key is written to while it is
// being checked. It keeps key's extension so the file reads the same way.
func StagingKey(key string) string {
	return stagingPrefix + uuid.NewString() + "-" + key
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
