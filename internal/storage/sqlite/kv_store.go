package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"case-metrics/internal/storage"
)

// KVStore is a SQLite implementation of storage.KVStore.
type KVStore struct {
	db *DB
}

// NewKVStore creates a new SQLite key/value store.
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

var _ storage.KVStore = (*KVStore)(nil)

// SetKV creates or overwrites a value.
func (s *KVStore) SetKV(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv (k, v) VALUES (?, ?)
			ON CONFLICT(k) DO UPDATE SET v = excluded.v
		`, key, value)
		if err != nil {
			return fmt.Errorf("set kv: %w", err)
		}
		return nil
	})
}

// GetKV retrieves a value by key.
func (s *KVStore) GetKV(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get kv: %w", err)
	}
	return value, nil
}
