package models

import "strings"

// CurrencyPair represents a currency pair as it is addressed by a forward-rate source.
type CurrencyPair struct {
	Name          string `json:"name"`           // e.g., "USD/MXN"
	Slug          string `json:"slug"`           // e.g., "usd-mxn"
	BaseCurrency  string `json:"base_currency"`  // e.g., "USD"
	QuoteCurrency string `json:"quote_currency"` // e.g., "MXN"
}

// NewCurrencyPair builds a pair from its display name and URL slug.
// Base and quote are taken from the slug, which is always "<base>-<quote>".
func NewCurrencyPair(name, slug string) CurrencyPair {
	p := CurrencyPair{Name: name, Slug: slug}
	if base, quote, ok := strings.Cut(slug, "-"); ok {
		p.BaseCurrency = strings.ToUpper(base)
		p.QuoteCurrency = strings.ToUpper(quote)
	}
	return p
}

// Symbol returns the compact symbol, e.g. "USDMXN".
func (p CurrencyPair) Symbol() string {
	return p.BaseCurrency + p.QuoteCurrency
}
