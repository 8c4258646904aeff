// Package normalize coerces loosely typed operator and spreadsheet input
// into canonical values. Functions never fail; each returns the safe value
// together with a flag reporting whether the input had to be coerced.
package normalize

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

// maxAmount is the largest value a priced column can hold.
var maxAmount = decimal.RequireFromString("999999999999.99")

var moneyDecorations = strings.NewReplacer(
	"¥", "", "$", "", "€", "", "£", "",
	"元", "", "RMB", "", "CNY", "", "rmb", "", "cny", "",
	"㎡", "", "m²", "", "m2", "", "平方", "", "平米", "",
	",", "", "'", "", " ", "", "_", "",
)

// Money returns a finite, non-negative amount rounded to cents and no
// larger than 999999999999.99. Empty input yields 0 without being reported as
// coerced; out-of-range input yields 0 and is.
func Money(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return clampFloat(v)
	case float32:
		return clampFloat(float64(v))
	case int:
		return clampFloat(float64(v))
	case int64:
		return clampFloat(float64(v))
	case decimal.Decimal:
		return clampDecimal(v)
	case string:
		return moneyFromString(v)
	case *string:
		if v == nil {
			return 0, false
		}
		return moneyFromString(*v)
	default:
		return 0, true
	}
}

func moneyFromString(s string) (float64, bool) {
	trimmed := strings.TrimSpace(width.Narrow.String(s))
	if trimmed == "" {
		return 0, false
	}
	if isNullish(trimmed) {
		return 0, true
	}

	if d, err := decimal.NewFromString(trimmed); err == nil {
		return clampDecimal(d)
	}

	cleaned := moneyDecorations.Replace(trimmed)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, true
	}
	value, _ := clampDecimal(d)
	return value, true
}

func clampDecimal(d decimal.Decimal) (float64, bool) {
	d = d.Round(2)
	if d.IsNegative() || d.GreaterThan(maxAmount) {
		return 0, true
	}
	return d.InexactFloat64(), false
}

func clampFloat(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, true
	}
	return clampDecimal(decimal.NewFromFloat(f))
}

func isNullish(s string) bool {
	switch strings.ToLower(s) {
	case "nan", "none", "null", "nil", "n/a", "na", "-", "--", "#n/a":
		return true
	}
	return false
}
