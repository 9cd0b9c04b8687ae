package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/utafrali/storefront/pkg/errors"

	"github.com/utafrali/storefront/internal/domain"
)

// Store persists the full list of line items for one cart.
type Store interface {
	// Load returns the persisted items, or nil when nothing was saved yet.
	Load(ctx context.Context) ([]domain.LineItem, error)
	// Save replaces the persisted items.
	Save(ctx context.Context, items []domain.LineItem) error
}

// Backend is a key-value store holding encoded snapshots. Get returns an
// error matching apperrors.ErrNotFound when the key is absent.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// SnapshotStore binds a Backend key to the Store interface using the JSON
// snapshot encoding.
type SnapshotStore struct {
	backend Backend
	key     string
}

// NewSnapshotStore returns a Store persisting under key.
func NewSnapshotStore(backend Backend, key string) *SnapshotStore {
	return &SnapshotStore{backend: backend, key: key}
}

func (s *SnapshotStore) Load(ctx context.Context) ([]domain.LineItem, error) {
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot %s: %w", s.key, err)
	}
	return DecodeSnapshot(data)
}

func (s *SnapshotStore) Save(ctx context.Context, items []domain.LineItem) error {
	data, err := EncodeSnapshot(items)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.key, err)
	}
	return nil
}

// ErrCorruptSnapshot is returned by DecodeSnapshot for data that is not a
// well-formed list of valid line items.
var ErrCorruptSnapshot = errors.New("corrupt cart snapshot")

// EncodeSnapshot serialises items as a JSON array. An empty cart encodes as [].
func EncodeSnapshot(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot produced by EncodeSnapshot. Unknown
// fields, trailing data and items violating the line item invariants all
// make the snapshot corrupt.
func DecodeSnapshot(data []byte) ([]domain.LineItem, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var items []domain.LineItem
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrCorruptSnapshot)
	}
	if err := domain.ValidateLineItems(items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return items, nil
}
