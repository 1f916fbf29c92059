package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-metrics/internal/domain"
	"case-metrics/internal/storage"
)

func TestTimeSeriesStore_AddTickDuplicateIsNoop(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTimeSeriesStore(pool)

	series := domain.NewSeries("csfloat_price", "csfloat_prices", "Fracture Case")
	require.NoError(t, store.UpsertSeries(ctx, series))

	inserted, err := store.AddTick(ctx, &domain.Tick{SeriesKey: series.Key, Timestamp: 1700000000, Value: 0.42})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.AddTick(ctx, &domain.Tick{SeriesKey: series.Key, Timestamp: 1700000000, Value: 0.99})
	require.NoError(t, err)
	assert.False(t, inserted)

	ticks, err := store.GetTicks(ctx, series.Key)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, 0.42, ticks[0].Value)
}

func TestTimeSeriesStore_Queries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTimeSeriesStore(pool)
	key := domain.SeriesKey("steam_price", "steam_prices", "Kilowatt Case")

	for _, q := range []func() (*float64, error){
		func() (*float64, error) { return store.LatestValue(ctx, key) },
		func() (*float64, error) { return store.PeakAllTime(ctx, key) },
		func() (*float64, error) { return store.PeakSince(ctx, key, 0) },
	} {
		v, err := q()
		require.NoError(t, err)
		assert.Nil(t, v)
	}

	for _, tick := range []*domain.Tick{
		{SeriesKey: key, Timestamp: 100, Value: 10},
		{SeriesKey: key, Timestamp: 300, Value: 30},
		{SeriesKey: key, Timestamp: 200, Value: 50},
	} {
		_, err := store.AddTick(ctx, tick)
		require.NoError(t, err)
	}

	latest, err := store.LatestValue(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 30.0, *latest)

	exact, err := store.ValueAtOrBefore(ctx, key, 200)
	require.NoError(t, err)
	require.NotNil(t, exact)
	assert.Equal(t, 50.0, *exact)

	beforeFirst, err := store.ValueAtOrBefore(ctx, key, 99)
	require.NoError(t, err)
	assert.Nil(t, beforeFirst)

	peak, err := store.PeakSince(ctx, key, 201)
	require.NoError(t, err)
	require.NotNil(t, peak)
	assert.Equal(t, 30.0, *peak)

	allTime, err := store.PeakAllTime(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, allTime)
	assert.Equal(t, 50.0, *allTime)
}

func TestTimeSeriesStore_SeriesUpsertAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTimeSeriesStore(pool)

	_, err := store.GetSeries(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	b := domain.NewSeries("playing", "steamcharts", domain.GlobalItemID)
	a := domain.NewSeries("market_listings", "csgocasetracker_popularity", "Dreams & Nightmares Case")
	require.NoError(t, store.UpsertSeries(ctx, b))
	require.NoError(t, store.UpsertSeries(ctx, a))
	require.NoError(t, store.UpsertSeries(ctx, a))

	got, err := store.GetSeries(ctx, b.Key)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	list, err := store.ListSeries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.Key, list[0].Key)

	assert.ErrorIs(t, store.UpsertSeries(ctx, nil), storage.ErrInvalidInput)
}
