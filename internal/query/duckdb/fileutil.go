package duckdb

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/duckmesh/duckprompt/internal/storage"
)

// materialize returns a local path DuckDB can read for location. Object store
// locations are downloaded into a temp dir that cleanup removes.
func (e *Engine) materialize(ctx context.Context, location string) (string, func(), error) {
	key, remote := storage.ParseRemoteLocation(location)
	if !remote {
		return location, func() {}, nil
	}
	if e.Store == nil {
		return "", nil, fmt.Errorf("object store is required for %q", location)
	}

	workDir, err := os.MkdirTemp("", "duckprompt-dataset-")
	if err != nil {
		return "", nil, fmt.Errorf("create dataset temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	reader, err := e.Store.Get(ctx, key)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("get object %q: %w", key, err)
	}
	localPath := filepath.Join(workDir, path.Base(key))
	if err := writeFile(localPath, reader); err != nil {
		_ = reader.Close()
		cleanup()
		return "", nil, fmt.Errorf("write local dataset file %q: %w", localPath, err)
	}
	if err := reader.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close object %q: %w", key, err)
	}
	return localPath, cleanup, nil
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, reader); err != nil {
		return err
	}
	return file.Sync()
}
