package metrics

import "math"

// ChangePct returns the percentage change from base to curr.
// Nil when either input is missing, base is zero or the result overflows.
func ChangePct(curr, base *float64) *float64 {
	if curr == nil || base == nil || *base == 0 {
		return nil
	}
	return finite((*curr - *base) / *base * 100)
}

// PctFromPeak returns how far curr sits below peak, as a percentage of peak.
// Nil when either input is missing, peak is zero or the result overflows.
func PctFromPeak(curr, peak *float64) *float64 {
	if curr == nil || peak == nil || *peak == 0 {
		return nil
	}
	return finite((*peak - *curr) / *peak * 100)
}

// finite returns &v, or nil for NaN and infinities, which have no JSON encoding.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
