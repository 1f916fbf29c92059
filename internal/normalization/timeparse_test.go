package normalization

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToEpoch(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"seconds", json.Number("1700000000"), 1700000000, true},
		{"milliseconds", json.Number("1700000000123"), 1700000000, true},
		{"float seconds", 1700000000.9, 1700000000, true},
		{"numeric string", "1700000000", 1700000000, true},
		{"numeric string millis", "1700000000000", 1700000000, true},
		{"rfc3339 z", "2023-11-14T22:13:20Z", 1700000000, true},
		{"rfc3339 offset", "2023-11-15T00:13:20+02:00", 1700000000, true},
		{"naive iso is utc", "2023-11-14T22:13:20", 1700000000, true},
		{"naive iso fraction", "2023-11-14T22:13:20.5", 1700000000, true},
		{"space separated", "2023-11-14 22:13:20", 1700000000, true},
		{"date only", "2023-11-14", 1699920000, true},
		{"zero", 0, 0, false},
		{"negative", -5, 0, false},
		{"garbage", "yesterday", 0, false},
		{"bool", true, 0, false},
		{"empty", "", 0, false},
		{"beyond int64 millis", json.Number("1e30"), 0, false},
		{"beyond int64 just above", "9.3e21", 0, false},
		{"beyond int64 float", 1e25, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToEpoch(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
