package postgres

import (
	"context"
	"fmt"

	"case-metrics/internal/storage"
)

// KVStore is a PostgreSQL implementation of storage.KVStore.
type KVStore struct {
	pool *Pool
}

// NewKVStore creates a new PostgreSQL key/value store.
func NewKVStore(pool *Pool) *KVStore {
	return &KVStore{pool: pool}
}

var _ storage.KVStore = (*KVStore)(nil)

// SetKV creates or overwrites a value.
func (s *KVStore) SetKV(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv (k, v)
		VALUES ($1, $2)
		ON CONFLICT (k) DO UPDATE
		SET v = EXCLUDED.v
	`, key, value)
	return err
}

// GetKV retrieves a value by key.
func (s *KVStore) GetKV(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT v FROM kv WHERE k = $1`, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get kv: %w", err)
	}
	return value, nil
}
