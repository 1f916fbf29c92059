package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-metrics/internal/config"
	"case-metrics/internal/domain"
	"case-metrics/internal/storage"
)

func TestOpenStores_Memory(t *testing.T) {
	ctx := context.Background()

	st, err := openStores(ctx, config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	defer func() { require.NoError(t, st.close()) }()

	require.NoError(t, st.kv.SetKV(ctx, "k", "v"))
	got, err := st.kv.GetKV(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestOpenStores_SQLitePersists(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "nested", "metrics.db"),
	}

	st, err := openStores(ctx, cfg)
	require.NoError(t, err)

	s := domain.NewSeries("steam_price", "steam_prices", "Kilowatt Case")
	require.NoError(t, st.series.UpsertSeries(ctx, s))
	inserted, err := st.series.AddTick(ctx, &domain.Tick{SeriesKey: s.Key, Timestamp: 1700000000, Value: 1.25})
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, st.close())

	st, err = openStores(ctx, cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, st.close()) }()

	latest, err := st.series.LatestValue(ctx, s.Key)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 1.25, *latest)

	_, err = storage.LoadRunState(ctx, st.kv)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	_, err := openStores(context.Background(), config.StoreConfig{Driver: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestNewPass_RejectsUnknownTimePolicy(t *testing.T) {
	st, err := openStores(context.Background(), config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)

	cfg := config.Config{Normalizer: config.NormalizerConfig{TimePolicy: "lenient"}}
	_, err = newPass(cfg, st, nil, nil)
	require.Error(t, err)
}
