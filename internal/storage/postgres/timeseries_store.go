package postgres

import (
	"context"
	"fmt"

	"case-metrics/internal/domain"
	"case-metrics/internal/storage"
)

// TimeSeriesStore is a PostgreSQL implementation of storage.TimeSeriesStore.
type TimeSeriesStore struct {
	pool *Pool
}

// NewTimeSeriesStore creates a new PostgreSQL time-series store.
func NewTimeSeriesStore(pool *Pool) *TimeSeriesStore {
	return &TimeSeriesStore{pool: pool}
}

var _ storage.TimeSeriesStore = (*TimeSeriesStore)(nil)

// UpsertSeries creates or overwrites series metadata.
func (s *TimeSeriesStore) UpsertSeries(ctx context.Context, series *domain.Series) error {
	if series == nil || series.Key == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO series (key, kind, source, item_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET kind = EXCLUDED.kind,
		    source = EXCLUDED.source,
		    item_id = EXCLUDED.item_id
	`, series.Key, series.Kind, series.Source, series.ItemID)
	if err != nil {
		return fmt.Errorf("upsert series: %w", err)
	}
	return nil
}

// AddTick inserts a tick. A unique violation on (key, ts_utc) means the
// observation is already stored and is reported as not inserted.
func (s *TimeSeriesStore) AddTick(ctx context.Context, t *domain.Tick) (bool, error) {
	if t == nil || t.SeriesKey == "" {
		return false, storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ticks (key, ts_utc, value)
		VALUES ($1, $2, $3)
	`, t.SeriesKey, t.Timestamp, t.Value)
	if err != nil {
		if isDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert tick: %w", err)
	}
	return true, nil
}

// LatestValue returns the value of the most recent tick.
func (s *TimeSeriesStore) LatestValue(ctx context.Context, key string) (*float64, error) {
	return s.queryValue(ctx, `
		SELECT value FROM ticks
		WHERE key = $1
		ORDER BY ts_utc DESC
		LIMIT 1
	`, key)
}

// ValueAtOrBefore returns the most recent value with ts_utc <= cutoff.
func (s *TimeSeriesStore) ValueAtOrBefore(ctx context.Context, key string, cutoff int64) (*float64, error) {
	return s.queryValue(ctx, `
		SELECT value FROM ticks
		WHERE key = $1 AND ts_utc <= $2
		ORDER BY ts_utc DESC
		LIMIT 1
	`, key, cutoff)
}

// PeakSince returns the maximum value with ts_utc >= since. MAX over no rows is NULL.
func (s *TimeSeriesStore) PeakSince(ctx context.Context, key string, since int64) (*float64, error) {
	return s.queryValue(ctx, `
		SELECT MAX(value) FROM ticks
		WHERE key = $1 AND ts_utc >= $2
	`, key, since)
}

// PeakAllTime returns the maximum value of the series.
func (s *TimeSeriesStore) PeakAllTime(ctx context.Context, key string) (*float64, error) {
	return s.queryValue(ctx, `
		SELECT MAX(value) FROM ticks
		WHERE key = $1
	`, key)
}

// GetSeries retrieves series metadata by key.
func (s *TimeSeriesStore) GetSeries(ctx context.Context, key string) (*domain.Series, error) {
	var series domain.Series
	err := s.pool.QueryRow(ctx, `
		SELECT key, kind, source, item_id
		FROM series
		WHERE key = $1
	`, key).Scan(&series.Key, &series.Kind, &series.Source, &series.ItemID)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get series: %w", err)
	}
	return &series, nil
}

// ListSeries retrieves all series ordered by key.
func (s *TimeSeriesStore) ListSeries(ctx context.Context) ([]*domain.Series, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, kind, source, item_id
		FROM series
		ORDER BY key ASC
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
	rows, err := s.pool.Query(ctx, `
		SELECT key, ts_utc, value
		FROM ticks
		WHERE key = $1
		ORDER BY ts_utc ASC
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
	var value *float64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query value: %w", err)
	}
	return value, nil
}
