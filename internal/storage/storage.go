package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// RemoteScheme marks dataset paths that live in the object store rather than
// on the local filesystem.
const RemoteScheme = "s3://"

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// DatasetStore is an ObjectStore that can report where a stored object should
// be read from when it is later queried.
type DatasetStore interface {
	ObjectStore
	Location(key string) string
}

func RemoteLocation(key string) string {
	return RemoteScheme + strings.TrimPrefix(key, "/")
}

// ParseRemoteLocation returns the object key of an s3:// dataset path.
func ParseRemoteLocation(location string) (string, bool) {
	if !strings.HasPrefix(location, RemoteScheme) {
		return "", false
	}
	key := strings.TrimPrefix(location, RemoteScheme)
	if strings.TrimSpace(key) == "" {
		return "", false
	}
	return key, true
}
