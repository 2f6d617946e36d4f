package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/duckmesh/duckprompt/internal/storage"
)

// Store keeps uploaded datasets in a directory on the local filesystem. It is
// the default when no object store endpoint is configured.
type Store struct {
	root string
}

var _ storage.DatasetStore = (*Store)(nil)

func New(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	target, err := s.resolve(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return storage.ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("create directory for %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	_, err = io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("write object %q: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("move object %q into place: %w", key, err)
	}
	return s.Stat(ctx, key)
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	return file, nil
}

func (s *Store) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	target, err := s.resolve(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ObjectInfo{}, storage.ErrObjectNotFound
		}
		return storage.ObjectInfo{}, fmt.Errorf("stat object %q: %w", key, err)
	}
	return storage.ObjectInfo{
		Key:          cleanKey(key),
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
	}, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// Location is the filesystem path DuckDB reads the dataset from.
func (s *Store) Location(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(cleanKey(key)))
}

func (s *Store) resolve(key string) (string, error) {
	cleaned := cleanKey(key)
	if cleaned == "" || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

func cleanKey(key string) string {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return ""
	}
	return path.Clean(key)
}
