package scrape

import (
	"math"
	"strconv"
	"strings"
)

var numberCleaner = strings.NewReplacer(
	",", "",
	"\u00a0", "",
	"\u2009", "", // thin space
	"\u202f", "",
	" ", "",
	"+", "",
	"\u2212", "-", // unicode minus
)

// cleanText trims a cell and folds non-breaking spaces into plain spaces.
func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

// ParseNumber parses a quoted rate such as "19,876.50", "+12.3" or "-0.45".
// Thousands separators, non-breaking spaces and a leading plus sign are
// stripped. Empty cells, dashes and "N/A" are rejected, as are NaN and Inf.
func ParseNumber(s string) (float64, bool) {
	v := numberCleaner.Replace(strings.TrimSpace(s))
	if v == "" || v == "-" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
