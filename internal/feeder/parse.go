package feeder

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Clients report fill levels in three shapes: an explicit gram string like
// "20 gramas", a bare percentage (0-100), or a bare gram count (>100). The
// rules below resolve that ambiguity; values that resist all of them fall
// back to 0 grams so a malformed payload never takes the service down.
var gramUnitRe = regexp.MustCompile(`(?i)^\s*(-?\d+)\s*gram(?:a|as)?\s*$`)

// ParseLevel resolves an inbound level value to grams.
//
//  1. A string with a trailing gram unit token yields its leading integer
//     as grams directly.
//  2. Any other numeric value <= 100 is a percentage; > 100 is already grams.
//  3. Unparseable input resolves to 0 grams (fail-soft).
//
// The result is not range-checked here; SetGrams owns that.
func ParseLevel(value any) int {
	switch v := value.(type) {
	case string:
		if m := gramUnitRe.FindStringSubmatch(v); m != nil {
			g, err := strconv.Atoi(m[1])
			if err != nil {
				return 0
			}
			return g
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return fromNumeric(n)
	case float64:
		return fromNumeric(v)
	case float32:
		return fromNumeric(float64(v))
	case int:
		return fromNumeric(float64(v))
	case int64:
		return fromNumeric(float64(v))
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0
		}
		return fromNumeric(n)
	default:
		return 0
	}
}

// fromNumeric applies the 100-threshold rule: small values are percentages,
// larger ones are taken as grams verbatim.
func fromNumeric(n float64) int {
	if n <= 100 {
		return int(math.Round(n / 100 * MaxGrams))
	}
	return int(math.Round(n))
}
