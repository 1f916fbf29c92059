package normalization

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// noise is stripped from numeric strings before parsing.
var noise = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "", "zł", "", "ZŁ", "", "%", "",
	"USD", "", "EUR", "", "PLN", "", "GBP", "",
	"usd", "", "eur", "", "pln", "", "gbp", "",
)

// ToFloat coerces a record value to a finite float64.
// Numbers pass through; strings may carry currency marks, percent signs,
// whitespace, thousands separators and decimal commas. Booleans, NaN and
// infinities are rejected.
func ToFloat(v any) (float64, error) {
	var (
		f   float64
		err error
	)

	switch x := v.(type) {
	case nil, bool:
		return 0, ErrNotNumeric
	case json.Number:
		f, err = parseNumeric(x.String())
	case string:
		f, err = parseNumeric(x)
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, err = cast.ToFloat64E(x)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrNotNumeric, v)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotNumeric
	}
	return f, nil
}

// parseNumeric parses a human-formatted number string.
func parseNumeric(s string) (float64, error) {
	s = noise.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, ErrNotNumeric
	}

	d, err := decimal.NewFromString(normalizeSeparators(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	f, _ := d.Float64()
	return f, nil
}

// normalizeSeparators rewrites s so that '.' is the only decimal separator
// and thousands separators are gone.
//
// With both '.' and ',' present the one occurring last is the decimal
// separator. A lone ',' followed by exactly three digits groups thousands,
// otherwise it is a decimal comma. Repeated separators of a single kind
// always group thousands.
func normalizeSeparators(s string) string {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case commas == 1:
		if len(s)-strings.Index(s, ",")-1 == 3 {
			return strings.Replace(s, ",", "", 1)
		}
		return strings.Replace(s, ",", ".", 1)
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
