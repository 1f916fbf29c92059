package normalization

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// millisThreshold separates epoch seconds from epoch milliseconds.
const millisThreshold = 10_000_000_000

// ToEpoch converts a record time value to Unix seconds.
// Numbers (and numeric strings) are epoch seconds, or milliseconds above
// millisThreshold. Other strings are parsed as timestamps; those without a
// zone are UTC. Non-positive instants and numbers beyond the int64 range
// are treated as unparsable.
func ToEpoch(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		return epochFromString(x.String())
	case string:
		return epochFromString(x)
	case bool, nil:
		return 0, false
	default:
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return 0, false
		}
		return epochFromNumber(f)
	}
}

func epochFromString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return epochFromNumber(f)
	}

	t, err := cast.ToTimeInDefaultLocationE(s, time.UTC)
	if err != nil {
		return 0, false
	}
	if sec := t.Unix(); sec > 0 {
		return sec, true
	}
	return 0, false
}

func epochFromNumber(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	if f > millisThreshold {
		f /= 1000
	}
	if f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
