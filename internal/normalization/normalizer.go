package normalization

import (
	"fmt"
	"time"

	"case-metrics/internal/domain"
)

// TimePolicy decides what happens to records without a usable timestamp.
type TimePolicy string

const (
	// TimePolicyFallback stamps such records with the run-start instant.
	TimePolicyFallback TimePolicy = "fallback"
	// TimePolicyStrict discards them with ErrNoTime.
	TimePolicyStrict TimePolicy = "strict"
)

// ParseTimePolicy validates a configured policy name. Empty means fallback.
func ParseTimePolicy(s string) (TimePolicy, error) {
	switch TimePolicy(s) {
	case "", TimePolicyFallback:
		return TimePolicyFallback, nil
	case TimePolicyStrict:
		return TimePolicyStrict, nil
	}
	return "", fmt.Errorf("unknown time policy %q", s)
}

// DefaultPriceNames maps price feeds to their canonical price metric.
func DefaultPriceNames() map[string]string {
	return map[string]string{
		"csfloat_prices": "csfloat_price",
		"steam_prices":   "steam_price",
	}
}

// Options configures a Normalizer.
type Options struct {
	TimePolicy TimePolicy
	PriceNames map[string]string // source -> canonical price metric
	GlobalItem string            // item for records with only a playing field
}

// Normalizer maps producer records onto canonical observations.
// It holds no per-record state and is safe for concurrent use.
type Normalizer struct {
	opts Options
}

// New creates a Normalizer. Zero-valued options take their defaults.
func New(opts Options) *Normalizer {
	if opts.TimePolicy == "" {
		opts.TimePolicy = TimePolicyFallback
	}
	if opts.PriceNames == nil {
		opts.PriceNames = DefaultPriceNames()
	}
	if opts.GlobalItem == "" {
		opts.GlobalItem = domain.GlobalItemID
	}
	return &Normalizer{opts: opts}
}

// Result is the outcome of normalizing one record.
type Result struct {
	Observations []*domain.Observation
	Rejected     []Rejection
}

// Rejection is a metric value that was present but not numeric.
type Rejection struct {
	Metric string // raw metric name, "price" for every price alias
	Field  string // record field the value was read from
	Value  any
}

// Normalize extracts observations from rec. A record without an item, or
// without a timestamp under the strict policy, yields an error and no
// observations. Non-numeric metric values are listed in Result.Rejected.
func (n *Normalizer) Normalize(rec domain.Record, source string, runStart time.Time) (*Result, error) {
	item, err := resolveItem(rec, n.opts.GlobalItem)
	if err != nil {
		return nil, err
	}

	ts, fallback, err := n.resolveTime(rec, runStart)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	emit := func(raw string, value float64) {
		res.Observations = append(res.Observations, &domain.Observation{
			Metric:       n.CanonicalName(raw, source),
			Source:       source,
			ItemID:       item,
			Timestamp:    ts,
			Value:        value,
			TimeFallback: fallback,
		})
	}

	if value, ok, rejected := firstNumeric(rec, priceFields); ok {
		emit("price", value)
	} else if rejected != "" {
		res.Rejected = append(res.Rejected, Rejection{Metric: "price", Field: rejected, Value: rec[rejected]})
	}

	for _, field := range namedMetrics {
		v, ok := rec[field]
		if !ok || isEmpty(v) {
			continue
		}
		value, err := ToFloat(v)
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Metric: field, Field: field, Value: v})
			continue
		}
		emit(field, value)
	}

	return res, nil
}

// CanonicalName maps a raw metric field to its output name.
func (n *Normalizer) CanonicalName(raw, source string) string {
	switch raw {
	case "price":
		if name, ok := n.opts.PriceNames[source]; ok {
			return name
		}
		return source + "_price"
	case "average_unbox_usd":
		return "avg_unbox_usd"
	}
	return raw
}

func (n *Normalizer) resolveTime(rec domain.Record, runStart time.Time) (int64, bool, error) {
	if v, ok := pickFirst(rec, timeFields); ok {
		if ts, ok := ToEpoch(v); ok {
			return ts, false, nil
		}
	}
	if n.opts.TimePolicy == TimePolicyStrict {
		return 0, false, ErrNoTime
	}
	return runStart.Unix(), true, nil
}

// firstNumeric returns the first coercible value among fields. When none
// coerces, rejected names the first field that held a non-empty value.
func firstNumeric(rec domain.Record, fields []string) (value float64, ok bool, rejected string) {
	for _, f := range fields {
		v, exists := rec[f]
		if !exists || isEmpty(v) {
			continue
		}
		if value, err := ToFloat(v); err == nil {
			return value, true, ""
		}
		if rejected == "" {
			rejected = f
		}
	}
	return 0, false, rejected
}
