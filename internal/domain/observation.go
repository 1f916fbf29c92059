package domain

// Record is one producer record as decoded from a feed line.
// Numbers are kept as json.Number until coerced.
type Record map[string]any

// Observation is a single (metric, value) pair extracted from a Record.
type Observation struct {
	Metric       string  // canonical metric name (output name and series kind)
	Source       string  // producer feed name
	ItemID       string  // resolved item
	Timestamp    int64   // Unix seconds
	Value        float64 // coerced value
	TimeFallback bool    // true when Timestamp is the run start instead of a record field
}

// SeriesKey returns the key of the series this observation belongs to.
func (o *Observation) SeriesKey() string {
	return SeriesKey(o.Metric, o.Source, o.ItemID)
}

// Series returns the series metadata for this observation.
func (o *Observation) Series() *Series {
	return NewSeries(o.Metric, o.Source, o.ItemID)
}
