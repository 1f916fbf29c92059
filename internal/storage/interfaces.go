package storage

import (
	"context"

	"case-metrics/internal/domain"
)

// TimeSeriesStore provides access to series and ticks storage.
// Ticks are append-only; there is no update or delete path.
type TimeSeriesStore interface {
	// UpsertSeries creates or overwrites series metadata. Accumulated ticks are untouched.
	UpsertSeries(ctx context.Context, s *domain.Series) error

	// AddTick inserts an observation. A tick with an existing (key, timestamp)
	// is ignored: inserted is false and err is nil.
	AddTick(ctx context.Context, t *domain.Tick) (inserted bool, err error)

	// LatestValue returns the value of the most recent tick, or nil if the series has none.
	LatestValue(ctx context.Context, key string) (*float64, error)

	// ValueAtOrBefore returns the value of the most recent tick with timestamp <= cutoff,
	// or nil if the series had not started observing at cutoff.
	ValueAtOrBefore(ctx context.Context, key string, cutoff int64) (*float64, error)

	// PeakSince returns the maximum value among ticks with timestamp >= since, or nil.
	PeakSince(ctx context.Context, key string, since int64) (*float64, error)

	// PeakAllTime returns the maximum value of the series, or nil.
	PeakAllTime(ctx context.Context, key string) (*float64, error)

	// GetSeries retrieves series metadata. Returns ErrNotFound if not exists.
	GetSeries(ctx context.Context, key string) (*domain.Series, error)

	// ListSeries retrieves all series ordered by key.
	ListSeries(ctx context.Context) ([]*domain.Series, error)

	// GetTicks retrieves all ticks of a series, ordered by timestamp ASC.
	GetTicks(ctx context.Context, key string) ([]*domain.Tick, error)
}

// KVStore provides access to the auxiliary key/value table.
type KVStore interface {
	// SetKV creates or overwrites a value.
	SetKV(ctx context.Context, key, value string) error

	// GetKV retrieves a value. Returns ErrNotFound if not exists.
	GetKV(ctx context.Context, key string) (string, error)
}
