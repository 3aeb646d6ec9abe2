// Package utils provides small helpers shared by the CLI and the API.
package utils

import (
	"strings"
	"unicode"
)

// Common ways currency pairs are written, keyed by upper-cased compact form.
var pairAliases = map[string]string{
	"CABLE":  "GBPUSD",
	"FIBER":  "EURUSD",
	"FIBRE":  "EURUSD",
	"AUSSIE": "AUDUSD",
	"GOPHER": "USDJPY",
	"NINJA":  "USDJPY",
	"PESO":   "USDMXN",
}

// NormalizePair reduces user input to a lower-case "<base>-<quote>" slug.
// It accepts "USD/MXN", "usd-mxn", "usd_mxn", "USDMXN", "$usdmxn", the
// Yahoo-style "USDMXN=X" and a few market nicknames. ok is false when the
// input does not contain two three-letter codes.
func NormalizePair(input string) (slug string, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "=X")

	compact := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
	if alias, found := pairAliases[compact]; found {
		compact = alias
	}
	if len(compact) != 6 {
		return "", false
	}
	for _, r := range compact {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return strings.ToLower(compact[:3] + "-" + compact[3:]), true
}

// PairName renders a slug as a display name, e.g. "usd-mxn" as "USD/MXN".
func PairName(slug string) string {
	return strings.ToUpper(strings.ReplaceAll(slug, "-", "/"))
}
