package domain

// Series identifies the observation history of one (kind, source, item) triple.
// Corresponds to the series table.
type Series struct {
	Key    string // kind:source:item_id
	Kind   string // canonical metric name, e.g. csfloat_price, daily_sales, playing
	Source string // producer feed name, e.g. steam_prices
	ItemID string // entity the metric describes, e.g. a case name or GlobalItemID
}

// Tick is a single observation within a series.
// Corresponds to the ticks table; unique per (SeriesKey, Timestamp).
type Tick struct {
	SeriesKey string  // owning series key
	Timestamp int64   // Unix timestamp in seconds
	Value     float64 // observed value
}

// GlobalItemID is the item assigned to game-wide signals (player counts)
// that carry no item field of their own.
const GlobalItemID = "CS2"

// SeriesKey builds the composite series key.
func SeriesKey(kind, source, itemID string) string {
	return kind + ":" + source + ":" + itemID
}

// NewSeries builds a Series with its key derived from the triple.
func NewSeries(kind, source, itemID string) *Series {
	return &Series{
		Key:    SeriesKey(kind, source, itemID),
		Kind:   kind,
		Source: source,
		ItemID: itemID,
	}
}
