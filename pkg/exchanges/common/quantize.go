package common

import (
	"math"
	"strconv"
)

// QuantizeToStep rounds value to the nearest multiple of step, truncated to
// 8 decimal digits of precision. A non-positive step returns value unchanged.
func QuantizeToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	q := math.Round(value/step) * step
	return math.Round(q*1e8) / 1e8
}

// FormatFloat renders a float the way Binance expects on the wire.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
