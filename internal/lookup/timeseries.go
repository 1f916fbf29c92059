package lookup

import (
	"case-metrics/internal/domain"
)

// Lookups over a tick slice ordered by Timestamp ASC.
// A nil result means no tick qualifies; it is never conflated with zero.

// Latest returns the value of the most recent tick.
func Latest(ticks []*domain.Tick) *float64 {
	if len(ticks) == 0 {
		return nil
	}
	v := ticks[len(ticks)-1].Value
	return &v
}

// ValueAtOrBefore returns the value of the most recent tick with
// Timestamp <= cutoff. Returns nil if the series starts after cutoff.
func ValueAtOrBefore(cutoff int64, ticks []*domain.Tick) *float64 {
	for i := len(ticks) - 1; i >= 0; i-- {
		if ticks[i].Timestamp <= cutoff {
			v := ticks[i].Value
			return &v
		}
	}
	return nil
}

// PeakSince returns the maximum value among ticks with Timestamp >= since.
func PeakSince(since int64, ticks []*domain.Tick) *float64 {
	var peak *float64
	for i := len(ticks) - 1; i >= 0; i-- {
		if ticks[i].Timestamp < since {
			break
		}
		if peak == nil || ticks[i].Value > *peak {
			v := ticks[i].Value
			peak = &v
		}
	}
	return peak
}

// PeakAllTime returns the maximum value of the whole series.
func PeakAllTime(ticks []*domain.Tick) *float64 {
	var peak *float64
	for _, t := range ticks {
		if peak == nil || t.Value > *peak {
			v := t.Value
			peak = &v
		}
	}
	return peak
}
