package memory

import (
	"context"
	"sync"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// SnapshotRepository keeps snapshots in process memory.
type SnapshotRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{data: make(map[string][]byte)}
}

func (r *SnapshotRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.data[key]
	if !ok {
		return nil, apperrors.NotFound("cart snapshot", key)
	}
	return append([]byte(nil), data...), nil
}

func (r *SnapshotRepository) Set(_ context.Context, key string, data []byte) error {
	r.mu.Lock()
	r.data[key] = append([]byte(nil), data...)
	r.mu.Unlock()
	return nil
}

func (r *SnapshotRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.data, key)
	r.mu.Unlock()
	return nil
}

// Len returns the number of stored snapshots.
func (r *SnapshotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
