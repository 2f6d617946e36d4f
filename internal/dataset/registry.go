package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("dataset: not found")

// Registry maps a dataset identifier to its metadata. Implementations own
// storage; callers receive metadata by value.
type Registry interface {
	Get(ctx context.Context, datasetID string) (Metadata, error)
	Set(ctx context.Context, datasetID string, metadata Metadata) error
}

type MemoryRegistry struct {
	mu    sync.RWMutex
	items map[string]Metadata
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{items: map[string]Metadata{}}
}

func (r *MemoryRegistry) Get(_ context.Context, datasetID string) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	metadata, ok := r.items[datasetID]
	if !ok {
		return Metadata{}, ErrNotFound
	}
	return cloneMetadata(metadata), nil
}

func (r *MemoryRegistry) Set(_ context.Context, datasetID string, metadata Metadata) error {
	if strings.TrimSpace(datasetID) == "" {
		return fmt.Errorf("dataset id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[datasetID] = cloneMetadata(metadata)
	return nil
}

func (r *MemoryRegistry) HealthCheck(context.Context) error {
	return nil
}

func cloneMetadata(metadata Metadata) Metadata {
	if metadata.Columns != nil {
		metadata.Columns = append([]Column(nil), metadata.Columns...)
	}
	return metadata
}
