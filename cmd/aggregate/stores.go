package main

import (
	"context"
	"fmt"

	"case-metrics/internal/config"
	"case-metrics/internal/storage"
	chstore "case-metrics/internal/storage/clickhouse"
	"case-metrics/internal/storage/memory"
	"case-metrics/internal/storage/migrations"
	"case-metrics/internal/storage/postgres"
	"case-metrics/internal/storage/sqlite"
)

// stores bundles the backend selected by store.driver.
type stores struct {
	series storage.TimeSeriesStore
	kv     storage.KVStore
	close  func() error
}

// openStores connects to the configured backend and applies its migrations.
func openStores(ctx context.Context, cfg config.StoreConfig) (*stores, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{
			series: sqlite.NewTimeSeriesStore(db),
			kv:     sqlite.NewKVStore(db),
			close:  db.Close,
		}, nil

	case config.DriverMemory:
		return &stores{
			series: memory.NewTimeSeriesStore(),
			kv:     memory.NewKVStore(),
			close:  func() error { return nil },
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		return &stores{
			series: postgres.NewTimeSeriesStore(pool),
			kv:     postgres.NewKVStore(pool),
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	case config.DriverClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		return &stores{
			series: chstore.NewTimeSeriesStore(conn),
			kv:     chstore.NewKVStore(conn),
			close:  conn.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
