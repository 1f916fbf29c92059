package clickhouse

import (
	"context"
	"fmt"

	"case-metrics/internal/storage"
)

// KVStore implements storage.KVStore using a ReplacingMergeTree table.
type KVStore struct {
	conn *Conn
}

// NewKVStore creates a new KVStore.
func NewKVStore(conn *Conn) *KVStore {
	return &KVStore{conn: conn}
}

// Compile-time interface check.
var _ storage.KVStore = (*KVStore)(nil)

// SetKV inserts a new version of the key.
func (s *KVStore) SetKV(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	if err := s.conn.Exec(ctx, `
		INSERT INTO kv (k, v, updated_at) VALUES (?, ?, now64(3))
	`, key, value); err != nil {
		return fmt.Errorf("set kv: %w", err)
	}
	return nil
}

// GetKV returns the newest version of the key.
func (s *KVStore) GetKV(ctx context.Context, key string) (string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT v FROM kv FINAL WHERE k = ?
	`, key)
	if err != nil {
		return "", fmt.Errorf("get kv: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", storage.ErrNotFound
	}

	var value string
	if err := rows.Scan(&value); err != nil {
		return "", fmt.Errorf("scan kv: %w", err)
	}
	return value, nil
}
