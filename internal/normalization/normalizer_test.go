package normalization

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-metrics/internal/domain"
)

var runStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize_PriceUsesSourceName(t *testing.T) {
	n := New(Options{})

	res, err := n.Normalize(domain.Record{
		"name":      "Kilowatt Case",
		"price":     "$1.25",
		"timestamp": json.Number("1714564800"),
	}, "csfloat_prices", runStart)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)

	obs := res.Observations[0]
	assert.Equal(t, "csfloat_price", obs.Metric)
	assert.Equal(t, "Kilowatt Case", obs.ItemID)
	assert.Equal(t, int64(1714564800), obs.Timestamp)
	assert.Equal(t, 1.25, obs.Value)
	assert.False(t, obs.TimeFallback)
	assert.Equal(t, "csfloat_price:csfloat_prices:Kilowatt Case", obs.SeriesKey())
}

func TestNormalize_CanonicalNames(t *testing.T) {
	n := New(Options{PriceNames: map[string]string{"skinport": "skinport_eur"}})

	assert.Equal(t, "steamlytics_price", n.CanonicalName("price", "steamlytics"))
	assert.Equal(t, "skinport_eur", n.CanonicalName("price", "skinport"))
	assert.Equal(t, "avg_unbox_usd", n.CanonicalName("average_unbox_usd", "csroi"))
	assert.Equal(t, "daily_sales", n.CanonicalName("daily_sales", "csgocasetracker_popularity"))
}

func TestNormalize_ItemPriorityOrder(t *testing.T) {
	n := New(Options{})

	res, err := n.Normalize(domain.Record{
		"skin":    "ignored",
		"case":    "Clutch Case",
		"item_id": "",
		"price":   1,
	}, "steam_prices", runStart)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Equal(t, "Clutch Case", res.Observations[0].ItemID)
}

func TestNormalize_GlobalItemForPlayerCounts(t *testing.T) {
	n := New(Options{})

	res, err := n.Normalize(domain.Record{
		"playing": json.Number("1350000"),
		"ts":      json.Number("1714564800000"),
	}, "steamcharts_playercounts", runStart)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)

	obs := res.Observations[0]
	assert.Equal(t, domain.GlobalItemID, obs.ItemID)
	assert.Equal(t, "playing", obs.Metric)
	assert.Equal(t, int64(1714564800), obs.Timestamp)
}

func TestNormalize_NoItem(t *testing.T) {
	n := New(Options{})

	_, err := n.Normalize(domain.Record{"price": 1.0}, "steam_prices", runStart)
	assert.ErrorIs(t, err, ErrNoItem)

	_, err = n.Normalize(domain.Record{"item": "", "playing": ""}, "steamcharts", runStart)
	assert.ErrorIs(t, err, ErrNoItem)
}

func TestNormalize_TimePolicy(t *testing.T) {
	rec := domain.Record{"item": "Gamma Case", "price": 2.0, "timestamp": "not a time"}

	res, err := New(Options{}).Normalize(rec, "steam_prices", runStart)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Equal(t, runStart.Unix(), res.Observations[0].Timestamp)
	assert.True(t, res.Observations[0].TimeFallback)

	_, err = New(Options{TimePolicy: TimePolicyStrict}).Normalize(rec, "steam_prices", runStart)
	assert.ErrorIs(t, err, ErrNoTime)
}

func TestNormalize_OutOfRangeEpochFallsBack(t *testing.T) {
	rec := domain.Record{"item": "Gamma Case", "price": 2.0, "timestamp": json.Number("1e30")}

	res, err := New(Options{}).Normalize(rec, "steam_prices", runStart)
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Equal(t, runStart.Unix(), res.Observations[0].Timestamp)
	assert.True(t, res.Observations[0].TimeFallback)

	_, err = New(Options{TimePolicy: TimePolicyStrict}).Normalize(rec, "steam_prices", runStart)
	assert.ErrorIs(t, err, ErrNoTime)
}

func TestNormalize_MetricOrderAndRejections(t *testing.T) {
	n := New(Options{})

	res, err := n.Normalize(domain.Record{
		"item":              "Revolution Case",
		"unbox_roi_pct":     "-35.5%",
		"average_unbox_usd": "0.91",
		"opened_last_month": "12,345",
		"market_listings":   "abc",
		"daily_sales":       json.Number("420"),
		"avg_price":         "n/a",
		"median_price":      "0,75",
		"date":              "2024-04-30",
	}, "csgocasetracker_popularity", runStart)
	require.NoError(t, err)

	var metrics []string
	for _, obs := range res.Observations {
		metrics = append(metrics, obs.Metric)
	}
	assert.Equal(t, []string{
		"csgocasetracker_popularity_price",
		"daily_sales",
		"opened_last_month",
		"avg_unbox_usd",
		"unbox_roi_pct",
	}, metrics)
	assert.Equal(t, 0.75, res.Observations[0].Value)
	assert.Equal(t, 12345.0, res.Observations[2].Value)
	assert.Equal(t, -35.5, res.Observations[4].Value)
	assert.Equal(t, []Rejection{{Metric: "market_listings", Field: "market_listings", Value: "abc"}}, res.Rejected)
}

func TestNormalize_PriceRejectedWhenNoAliasCoerces(t *testing.T) {
	n := New(Options{})

	res, err := n.Normalize(domain.Record{"item": "X", "price": "sold out"}, "steam_prices", runStart)
	require.NoError(t, err)
	assert.Empty(t, res.Observations)
	assert.Equal(t, []Rejection{{Metric: "price", Field: "price", Value: "sold out"}}, res.Rejected)
}

func TestNormalize_PriceRejectionNamesAliasField(t *testing.T) {
	n := New(Options{})

	res, err := n.Normalize(domain.Record{"item": "X", "avg_price": "n/a", "median_price": "tbd"}, "steam_prices", runStart)
	require.NoError(t, err)
	assert.Empty(t, res.Observations)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "price", res.Rejected[0].Metric)
	assert.Equal(t, "avg_price", res.Rejected[0].Field)
	assert.Equal(t, "n/a", res.Rejected[0].Value)
}

func TestParseTimePolicy(t *testing.T) {
	p, err := ParseTimePolicy("")
	require.NoError(t, err)
	assert.Equal(t, TimePolicyFallback, p)

	p, err = ParseTimePolicy("strict")
	require.NoError(t, err)
	assert.Equal(t, TimePolicyStrict, p)

	_, err = ParseTimePolicy("lenient")
	assert.Error(t, err)
}
