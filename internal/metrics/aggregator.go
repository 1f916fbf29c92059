package metrics

import (
	"context"
	"fmt"

	"case-metrics/internal/storage"
)

// Stats are the raw window inputs of one series.
type Stats struct {
	Curr    *float64
	Base24h *float64
	Base7d  *float64
	Base30d *float64
	Peak24h *float64
	Peak7d  *float64
	Peak30d *float64
}

// Figures are the derived percentages of one series.
type Figures struct {
	Change24hPct   *float64
	Change7dPct    *float64
	Change30dPct   *float64
	PctFromPeak24h *float64
	PctFromPeak7d  *float64
	PctFromPeak30d *float64
}

// Figures derives the window percentages from the stats.
func (s *Stats) Figures() Figures {
	return Figures{
		Change24hPct:   ChangePct(s.Curr, s.Base24h),
		Change7dPct:    ChangePct(s.Curr, s.Base7d),
		Change30dPct:   ChangePct(s.Curr, s.Base30d),
		PctFromPeak24h: PctFromPeak(s.Curr, s.Peak24h),
		PctFromPeak7d:  PctFromPeak(s.Curr, s.Peak7d),
		PctFromPeak30d: PctFromPeak(s.Curr, s.Peak30d),
	}
}

// Aggregator computes window statistics for series held in a TimeSeriesStore.
type Aggregator struct {
	store   storage.TimeSeriesStore
	windows Windows
}

// NewAggregator creates an aggregator measuring against the given windows.
func NewAggregator(store storage.TimeSeriesStore, windows Windows) *Aggregator {
	return &Aggregator{store: store, windows: windows}
}

// Windows returns the boundaries the aggregator measures against.
func (a *Aggregator) Windows() Windows {
	return a.windows
}

// Compute loads the current value, per-window baselines and per-window peaks of a series.
func (a *Aggregator) Compute(ctx context.Context, key string) (*Stats, error) {
	var (
		stats Stats
		err   error
	)

	if stats.Curr, err = a.store.LatestValue(ctx, key); err != nil {
		return nil, fmt.Errorf("latest value %s: %w", key, err)
	}

	windows := []struct {
		start int64
		base  **float64
		peak  **float64
	}{
		{a.windows.H24, &stats.Base24h, &stats.Peak24h},
		{a.windows.D7, &stats.Base7d, &stats.Peak7d},
		{a.windows.D30, &stats.Base30d, &stats.Peak30d},
	}
	for _, w := range windows {
		if *w.base, err = a.store.ValueAtOrBefore(ctx, key, w.start); err != nil {
			return nil, fmt.Errorf("baseline %s at %d: %w", key, w.start, err)
		}
		if *w.peak, err = a.store.PeakSince(ctx, key, w.start); err != nil {
			return nil, fmt.Errorf("peak %s since %d: %w", key, w.start, err)
		}
	}

	return &stats, nil
}
