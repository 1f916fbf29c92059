package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"case-metrics/internal/domain"
	"case-metrics/internal/storage"
)

// TimeSeriesStore is a SQLite implementation of storage.TimeSeriesStore.
// Every mutating call runs in its own transaction.
type TimeSeriesStore struct {
	db *DB
}

// NewTimeSeriesStore creates a new SQLite time-series store.
func NewTimeSeriesStore(db *DB) *TimeSeriesStore {
	return &TimeSeriesStore{db: db}
}

var _ storage.TimeSeriesStore = (*TimeSeriesStore)(nil)

// UpsertSeries creates or overwrites series metadata.
func (s *TimeSeriesStore) UpsertSeries(ctx context.Context, series *domain.Series) error {
	if series == nil || series.Key == "" {
		return storage.ErrInvalidInput
	}

	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO series (key, kind, source, item_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				kind = excluded.kind,
				source = excluded.source,
				item_id = excluded.item_id
		`, series.Key, series.Kind, series.Source, series.ItemID)
		if err != nil {
			return fmt.Errorf("upsert series: %w", err)
		}
		return nil
	})
}

// AddTick inserts a tick; an existing (key, ts_utc) is ignored.
func (s *TimeSeriesStore) AddTick(ctx context.Context, t *domain.Tick) (bool, error) {
	if t == nil || t.SeriesKey == "" {
		return false, storage.ErrInvalidInput
	}

	var inserted bool
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO ticks (key, ts_utc, value)
			VALUES (?, ?, ?)
		`, t.SeriesKey, t.Timestamp, t.Value)
		if err != nil {
			return fmt.Errorf("insert tick: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

// LatestValue returns the value of the most recent tick.
func (s *TimeSeriesStore) LatestValue(ctx context.Context, key string) (*float64, error) {
	return s.queryValue(ctx, `
		SELECT value FROM ticks
		WHERE key = ?
		ORDER BY ts_utc DESC
		LIMIT 1
	`, key)
}

// ValueAtOrBefore returns the most recent value with ts_utc <= cutoff.
func (s *TimeSeriesStore) ValueAtOrBefore(ctx context.Context, key string, cutoff int64) (*float64, error) {
	return s.queryValue(ctx, `
		SELECT value FROM ticks
		WHERE key = ? AND ts_utc <= ?
		ORDER BY ts_utc DESC
		LIMIT 1
	`, key, cutoff)
}

// PeakSince returns the maximum value with ts_utc >= since.
func (s *TimeSeriesStore) PeakSince(ctx context.Context, key string, since int64) (*float64, error) {
	return s.queryValue(ctx, `
		SELECT MAX(value) FROM ticks
		WHERE key = ? AND ts_utc >= ?
	`, key, since)
}

// PeakAllTime returns the maximum value of the series.
func (s *TimeSeriesStore) PeakAllTime(ctx context.Context, key string) (*float64, error) {
	return s.queryValue(ctx, `SELECT MAX(value) FROM ticks WHERE key = ?`, key)
}

// GetSeries retrieves series metadata by key.
func (s *TimeSeriesStore) GetSeries(ctx context.Context, key string) (*domain.Series, error) {
	var series domain.Series
	err := s.db.QueryRowContext(ctx, `
		SELECT key, kind, source, item_id FROM series WHERE key = ?
	`, key).Scan(&series.Key, &series.Kind, &series.Source, &series.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get series: %w", err)
	}
	return &series, nil
}

// ListSeries retrieves all series ordered by key.
func (s *TimeSeriesStore) ListSeries(ctx context.Context) ([]*domain.Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, kind, source, item_id FROM series ORDER BY key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var result []*domain.Series
	for rows.Next() {
		var series domain.Series
		if err := rows.Scan(&series.Key, &series.Kind, &series.Source, &series.ItemID); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		result = append(result, &series)
	}
	return result, rows.Err()
}

// GetTicks retrieves all ticks of a series, ordered by timestamp ASC.
func (s *TimeSeriesStore) GetTicks(ctx context.Context, key string) ([]*domain.Tick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, ts_utc, value FROM ticks WHERE key = ? ORDER BY ts_utc ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []*domain.Tick
	for rows.Next() {
		var t domain.Tick
		if err := rows.Scan(&t.SeriesKey, &t.Timestamp, &t.Value); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		ticks = append(ticks, &t)
	}
	return ticks, rows.Err()
}

// queryValue scans a single nullable float; no row and NULL both yield nil.
func (s *TimeSeriesStore) queryValue(ctx context.Context, query string, args ...any) (*float64, error) {
	var value sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query value: %w", err)
	}
	if !value.Valid {
		return nil, nil
	}
	v := value.Float64
	return &v, nil
}
