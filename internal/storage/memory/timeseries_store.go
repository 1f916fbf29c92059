package memory

import (
	"context"
	"sort"
	"sync"

	"case-metrics/internal/domain"
	"case-metrics/internal/lookup"
	"case-metrics/internal/storage"
)

// TimeSeriesStore is an in-memory implementation of storage.TimeSeriesStore.
type TimeSeriesStore struct {
	mu     sync.RWMutex
	series map[string]*domain.Series
	ticks  map[string][]*domain.Tick // keyed by series key, ordered by timestamp ASC
}

// NewTimeSeriesStore creates a new in-memory time-series store.
func NewTimeSeriesStore() *TimeSeriesStore {
	return &TimeSeriesStore{
		series: make(map[string]*domain.Series),
		ticks:  make(map[string][]*domain.Tick),
	}
}

// UpsertSeries creates or overwrites series metadata.
func (s *TimeSeriesStore) UpsertSeries(_ context.Context, series *domain.Series) error {
	if series == nil || series.Key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seriesCopy := *series
	s.series[series.Key] = &seriesCopy
	return nil
}

// AddTick inserts a tick, keeping the per-series slice ordered.
// An existing (key, timestamp) is left untouched.
func (s *TimeSeriesStore) AddTick(_ context.Context, t *domain.Tick) (bool, error) {
	if t == nil || t.SeriesKey == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ticks := s.ticks[t.SeriesKey]
	i := sort.Search(len(ticks), func(i int) bool {
		return ticks[i].Timestamp >= t.Timestamp
	})
	if i < len(ticks) && ticks[i].Timestamp == t.Timestamp {
		return false, nil
	}

	tickCopy := *t
	ticks = append(ticks, nil)
	copy(ticks[i+1:], ticks[i:])
	ticks[i] = &tickCopy
	s.ticks[t.SeriesKey] = ticks

	return true, nil
}

// LatestValue returns the value of the most recent tick.
func (s *TimeSeriesStore) LatestValue(_ context.Context, key string) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lookup.Latest(s.ticks[key]), nil
}

// ValueAtOrBefore returns the most recent value with timestamp <= cutoff.
func (s *TimeSeriesStore) ValueAtOrBefore(_ context.Context, key string, cutoff int64) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lookup.ValueAtOrBefore(cutoff, s.ticks[key]), nil
}

// PeakSince returns the maximum value with timestamp >= since.
func (s *TimeSeriesStore) PeakSince(_ context.Context, key string, since int64) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lookup.PeakSince(since, s.ticks[key]), nil
}

// PeakAllTime returns the maximum value of the series.
func (s *TimeSeriesStore) PeakAllTime(_ context.Context, key string) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lookup.PeakAllTime(s.ticks[key]), nil
}

// GetSeries retrieves series metadata by key.
func (s *TimeSeriesStore) GetSeries(_ context.Context, key string) (*domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	seriesCopy := *series
	return &seriesCopy, nil
}

// ListSeries retrieves all series ordered by key.
func (s *TimeSeriesStore) ListSeries(_ context.Context) ([]*domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Series, 0, len(s.series))
	for _, series := range s.series {
		seriesCopy := *series
		result = append(result, &seriesCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result, nil
}

// GetTicks retrieves all ticks of a series, ordered by timestamp ASC.
func (s *TimeSeriesStore) GetTicks(_ context.Context, key string) ([]*domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticks := s.ticks[key]
	result := make([]*domain.Tick, len(ticks))
	for i, t := range ticks {
		tickCopy := *t
		result[i] = &tickCopy
	}
	return result, nil
}

var _ storage.TimeSeriesStore = (*TimeSeriesStore)(nil)
