package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	man = 10_000      // 万
	oku = 100_000_000 // 億
)

// ParseAmount normalizes a yen amount. Numbers are truncated to an integer.
// Strings may carry thousands separators, the 円 glyph and a 万 or 億 unit.
func ParseAmount(v any) *int64 {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return nonNegative(float64(x))
	case int64:
		return nonNegative(float64(x))
	case float64:
		return nonNegative(x)
	case json.Number:
		return parseAmountString(x.String())
	case string:
		return parseAmountString(x)
	default:
		return nil
	}
}

func parseAmountString(s string) *int64 {
	cleaned := Fold(s)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "円", "")
	cleaned = strings.TrimSpace(cleaned)

	multiplier := 1.0
	switch {
	case strings.Contains(cleaned, "万"):
		cleaned = strings.ReplaceAll(cleaned, "万", "")
		multiplier = man
	case strings.Contains(cleaned, "億"):
		cleaned = strings.ReplaceAll(cleaned, "億", "")
		multiplier = oku
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return nonNegative(f * multiplier)
}

func nonNegative(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return nil
	}
	n := int64(math.Trunc(f))
	return &n
}
