package memory

import (
	"context"
	"sync"

	"case-metrics/internal/storage"
)

// KVStore is an in-memory implementation of storage.KVStore.
type KVStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewKVStore creates a new in-memory key/value store.
func NewKVStore() *KVStore {
	return &KVStore{
		data: make(map[string]string),
	}
}

// SetKV creates or overwrites a value.
func (s *KVStore) SetKV(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// GetKV retrieves a value by key.
func (s *KVStore) GetKV(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

var _ storage.KVStore = (*KVStore)(nil)
