package normalization

import (
	"strings"

	"github.com/spf13/cast"

	"case-metrics/internal/domain"
)

// Candidate fields per semantic slot, in priority order.
var (
	itemFields  = []string{"item_id", "item", "case", "name", "market_hash_name", "hash_name", "skin"}
	timeFields  = []string{"timestamp", "scraped_at", "ts", "time", "date"}
	priceFields = []string{"price", "avg_price", "median_price", "latest_price", "lowest_price"}
)

// Named metric fields, emitted after the price in this order.
var namedMetrics = []string{
	"daily_sales",
	"market_listings",
	"opened_last_week",
	"opened_last_month",
	"playing",
	"average_unbox_usd",
	"unbox_roi_pct",
}

// playingField marks game-wide player-count records.
const playingField = "playing"

// isEmpty reports whether a record value counts as absent.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// pickFirst returns the first non-empty value among fields, in field order.
func pickFirst(rec domain.Record, fields []string) (any, bool) {
	for _, f := range fields {
		if v, ok := rec[f]; ok && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

// resolveItem returns the item a record describes, or globalItem for player
// counts that carry no item field.
func resolveItem(rec domain.Record, globalItem string) (string, error) {
	if v, ok := pickFirst(rec, itemFields); ok {
		item, err := cast.ToStringE(v)
		if err == nil && strings.TrimSpace(item) != "" {
			return strings.TrimSpace(item), nil
		}
	}
	if v, ok := rec[playingField]; ok && !isEmpty(v) {
		return globalItem, nil
	}
	return "", ErrNoItem
}
