package clickhouse

import (
	"context"
	"fmt"

	"case-metrics/internal/domain"
	"case-metrics/internal/storage"
)

// TimeSeriesStore implements storage.TimeSeriesStore using ClickHouse.
// ReplacingMergeTree does not enforce uniqueness, so AddTick checks for an
// existing (key, ts_utc) before inserting.
type TimeSeriesStore struct {
	conn *Conn
}

// NewTimeSeriesStore creates a new TimeSeriesStore.
func NewTimeSeriesStore(conn *Conn) *TimeSeriesStore {
	return &TimeSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TimeSeriesStore = (*TimeSeriesStore)(nil)

// UpsertSeries inserts a new version of the series row; FINAL reads keep the newest.
func (s *TimeSeriesStore) UpsertSeries(ctx context.Context, series *domain.Series) error {
	if series == nil || series.Key == "" {
		return storage.ErrInvalidInput
	}

	err := s.conn.Exec(ctx, `
		INSERT INTO series (key, kind, source, item_id, updated_at)
		VALUES (?, ?, ?, ?, now64(3))
	`, series.Key, series.Kind, series.Source, series.ItemID)
	if err != nil {
		return fmt.Errorf("upsert series: %w", err)
	}
	return nil
}

// AddTick inserts a tick unless one already exists for (key, ts_utc).
func (s *TimeSeriesStore) AddTick(ctx context.Context, t *domain.Tick) (bool, error) {
	if t == nil || t.SeriesKey == "" {
		return false, storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, t.SeriesKey, t.Timestamp)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return false, nil
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO ticks (key, ts_utc, value) VALUES (?, ?, ?)
	`, t.SeriesKey, t.Timestamp, t.Value)
	if err != nil {
		return false, fmt.Errorf("insert tick: %w", err)
	}
	return true, nil
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
	return s.queryPeak(ctx, `
		SELECT max(value), count() FROM ticks
		WHERE key = ? AND ts_utc >= ?
	`, key, since)
}

// PeakAllTime returns the maximum value of the series.
func (s *TimeSeriesStore) PeakAllTime(ctx context.Context, key string) (*float64, error) {
	return s.queryPeak(ctx, `
		SELECT max(value), count() FROM ticks
		WHERE key = ?
	`, key)
}

// GetSeries retrieves series metadata by key.
func (s *TimeSeriesStore) GetSeries(ctx context.Context, key string) (*domain.Series, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT key, kind, source, item_id
		FROM series FINAL
		WHERE key = ?
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	series, err := scanSeries(rows)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, storage.ErrNotFound
	}
	return series[0], nil
}

// ListSeries retrieves all series ordered by key.
func (s *TimeSeriesStore) ListSeries(ctx context.Context) ([]*domain.Series, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT key, kind, source, item_id
		FROM series FINAL
		ORDER BY key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	return scanSeries(rows)
}

// GetTicks retrieves all ticks of a series, ordered by timestamp ASC.
func (s *TimeSeriesStore) GetTicks(ctx context.Context, key string) ([]*domain.Tick, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT key, ts_utc, value
		FROM ticks
		WHERE key = ?
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

// exists checks if a tick with the given key exists.
func (s *TimeSeriesStore) exists(ctx context.Context, key string, ts int64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM ticks
		WHERE key = ? AND ts_utc = ?
	`, key, ts).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// queryValue returns the single value selected by query, or nil when no row matches.
func (s *TimeSeriesStore) queryValue(ctx context.Context, query string, args ...interface{}) (*float64, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query value: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var v float64
	if err := rows.Scan(&v); err != nil {
		return nil, fmt.Errorf("scan value: %w", err)
	}
	return &v, nil
}

// queryPeak runs a max/count aggregate; max over no rows is 0 in ClickHouse,
// so the count decides between a peak and nil.
func (s *TimeSeriesStore) queryPeak(ctx context.Context, query string, args ...interface{}) (*float64, error) {
	var (
		peak  float64
		count uint64
	)
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&peak, &count); err != nil {
		return nil, fmt.Errorf("query peak: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	return &peak, nil
}

// scanSeries scans multiple series rows.
func scanSeries(rows chRows) ([]*domain.Series, error) {
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
