package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatRate formats an exchange rate with a fixed number of decimals.
// Non-finite values render as "-".
func FormatRate(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

// FormatOptional formats a possibly-missing quote, rendering nil as "-".
func FormatOptional(v *float64, decimals int) string {
	if v == nil {
		return "-"
	}
	return FormatRate(*v, decimals)
}

// FormatPoints formats forward points with an explicit sign, e.g. "+125.40".
func FormatPoints(v *float64) string {
	if v == nil {
		return "-"
	}
	if *v > 0 {
		return "+" + FormatRate(*v, 2)
	}
	return FormatRate(*v, 2)
}

// RateDecimals picks a display precision from the magnitude of the rates:
// JPY-style quotes near 100 get fewer decimals than EUR/USD near 1.
func RateDecimals(values []float64) int {
	var maxAbs float64
	for _, v := range values {
		if a := math.Abs(v); a > maxAbs && !math.IsInf(a, 0) {
			maxAbs = a
		}
	}
	switch {
	case maxAbs >= 100:
		return 3
	case maxAbs >= 10:
		return 4
	default:
		return 5
	}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
