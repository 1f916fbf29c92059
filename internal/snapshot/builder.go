package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"case-metrics/internal/domain"
	"case-metrics/internal/metrics"
	"case-metrics/internal/storage"
)

// DefaultPopularitySource is the feed whose volume counters are too coarse
// for a 24h comparison.
const DefaultPopularitySource = "csgocasetracker_popularity"

// no24hMetrics lose their 24h figures when they come from the popularity source.
var no24hMetrics = map[string]struct{}{
	"daily_sales":       {},
	"market_listings":   {},
	"opened_last_month": {},
	"opened_last_week":  {},
}

// Include24h reports whether rows of metric from source carry 24h figures.
func Include24h(source, metric, popularitySource string) bool {
	if source != popularitySource {
		return true
	}
	_, drop := no24hMetrics[metric]
	return !drop
}

// Builder accumulates the metric rows of one pass. For every observation it
// records the tick, recomputes the series' window figures and replaces the
// row for (item, metric). It is not safe for concurrent use.
type Builder struct {
	store            storage.TimeSeriesStore
	aggregator       *metrics.Aggregator
	popularitySource string
	rows             map[domain.RowKey]*domain.MetricRow
}

// NewBuilder creates a Builder writing ticks to store and measuring with aggregator.
func NewBuilder(store storage.TimeSeriesStore, aggregator *metrics.Aggregator, popularitySource string) *Builder {
	if popularitySource == "" {
		popularitySource = DefaultPopularitySource
	}
	return &Builder{
		store:            store,
		aggregator:       aggregator,
		popularitySource: popularitySource,
		rows:             make(map[domain.RowKey]*domain.MetricRow),
	}
}

// Ingest stores obs and refreshes its row. inserted is false when the tick
// was already stored; the row is refreshed either way.
func (b *Builder) Ingest(ctx context.Context, obs *domain.Observation) (inserted bool, err error) {
	if err := b.store.UpsertSeries(ctx, obs.Series()); err != nil {
		return false, fmt.Errorf("upsert series: %w", err)
	}

	key := obs.SeriesKey()
	inserted, err = b.store.AddTick(ctx, &domain.Tick{
		SeriesKey: key,
		Timestamp: obs.Timestamp,
		Value:     obs.Value,
	})
	if err != nil {
		return false, fmt.Errorf("add tick: %w", err)
	}

	stats, err := b.aggregator.Compute(ctx, key)
	if err != nil {
		return inserted, err
	}

	b.Put(obs.ItemID, obs.Metric, obs.Source, stats.Figures())
	return inserted, nil
}

// Put records the figures of (item, metric), replacing any earlier row.
func (b *Builder) Put(item, metric, source string, f metrics.Figures) *domain.MetricRow {
	row := &domain.MetricRow{
		Item:           item,
		Metric:         metric,
		Change7dPct:    f.Change7dPct,
		Change30dPct:   f.Change30dPct,
		PctFromPeak7d:  f.PctFromPeak7d,
		PctFromPeak30d: f.PctFromPeak30d,
		Include24h:     Include24h(source, metric, b.popularitySource),
	}
	if row.Include24h {
		row.Change24hPct = f.Change24hPct
		row.PctFromPeak24h = f.PctFromPeak24h
	}

	b.rows[row.Key()] = row
	return row
}

// Len returns the number of distinct (item, metric) rows.
func (b *Builder) Len() int {
	return len(b.rows)
}

// Rows returns the accumulated rows sorted by lowercased item, then metric,
// then item.
func (b *Builder) Rows() []*domain.MetricRow {
	rows := make([]*domain.MetricRow, 0, len(b.rows))
	for _, row := range b.rows {
		rows = append(rows, row)
	}
	SortRows(rows)
	return rows
}

// SortRows orders rows the way snapshots emit them.
func SortRows(rows []*domain.MetricRow) {
	sort.Slice(rows, func(i, j int) bool {
		li, lj := strings.ToLower(rows[i].Item), strings.ToLower(rows[j].Item)
		if li != lj {
			return li < lj
		}
		if rows[i].Metric != rows[j].Metric {
			return rows[i].Metric < rows[j].Metric
		}
		return rows[i].Item < rows[j].Item
	})
}
