package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MetricRow is one output line of a snapshot: the windowed figures for an
// (item, metric) pair. Nil figures encode as JSON null.
//
// The 24h figures are only emitted when Include24h is set; the remaining
// figures are always emitted.
type MetricRow struct {
	Item           string
	Metric         string
	Change24hPct   *float64
	Change7dPct    *float64
	Change30dPct   *float64
	PctFromPeak24h *float64
	PctFromPeak7d  *float64
	PctFromPeak30d *float64
	Include24h     bool
}

// RowKey identifies a MetricRow within a snapshot.
type RowKey struct {
	Item   string
	Metric string
}

// Key returns the deduplication key of the row.
func (r *MetricRow) Key() RowKey {
	return RowKey{Item: r.Item, Metric: r.Metric}
}

// MarshalJSON writes fields in a fixed order with the 24h pair last.
func (r MetricRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	fields := []struct {
		name  string
		value any
	}{
		{"item", r.Item},
		{"metric", r.Metric},
		{"change_7d_pct", r.Change7dPct},
		{"change_30d_pct", r.Change30dPct},
		{"pct_from_peak_7d", r.PctFromPeak7d},
		{"pct_from_peak_30d", r.PctFromPeak30d},
	}
	if r.Include24h {
		fields = append(fields,
			struct {
				name  string
				value any
			}{"change_24h_pct", r.Change24hPct},
			struct {
				name  string
				value any
			}{"pct_from_peak_24h", r.PctFromPeak24h},
		)
	}

	// Item names such as "Dreams & Nightmares Case" are written unescaped.
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(f.name); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(f.value); err != nil {
			return nil, fmt.Errorf("marshal %s: %w", f.name, err)
		}
		trimNewline(&buf)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// trimNewline drops the newline json.Encoder appends after each value.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}

// UnmarshalJSON is the inverse of MarshalJSON. Include24h is set when
// either 24h key is present.
func (r *MetricRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var row MetricRow
	if err := json.Unmarshal(raw["item"], &row.Item); err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	if err := json.Unmarshal(raw["metric"], &row.Metric); err != nil {
		return fmt.Errorf("decode metric: %w", err)
	}

	figures := map[string]**float64{
		"change_7d_pct":     &row.Change7dPct,
		"change_30d_pct":    &row.Change30dPct,
		"pct_from_peak_7d":  &row.PctFromPeak7d,
		"pct_from_peak_30d": &row.PctFromPeak30d,
		"change_24h_pct":    &row.Change24hPct,
		"pct_from_peak_24h": &row.PctFromPeak24h,
	}
	for name, dst := range figures {
		value, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
	}

	_, has24hChange := raw["change_24h_pct"]
	_, has24hPeak := raw["pct_from_peak_24h"]
	row.Include24h = has24hChange || has24hPeak

	*r = row
	return nil
}
