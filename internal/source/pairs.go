package source

import (
	"fmt"

	"github.com/seenimoa/fxforward/pkg/models"
	"github.com/seenimoa/fxforward/pkg/utils"
)

// Pairs is the fixed set of currency pairs offered for selection.
var Pairs = []models.CurrencyPair{
	pair("usd-mxn"),
	pair("eur-rub"),
	pair("eur-usd"),
	pair("usd-jpy"),
	pair("gbp-usd"),
	pair("aud-usd"),
}

func pair(slug string) models.CurrencyPair {
	return models.NewCurrencyPair(utils.PairName(slug), slug)
}

// ErrUnknownPair is returned for a pair outside Pairs.
type ErrUnknownPair struct {
	Input string
}

func (e *ErrUnknownPair) Error() string {
	return fmt.Sprintf("unknown currency pair %q", e.Input)
}

// LookupPair resolves user input such as "USD/MXN", "usdmxn" or "usd-mxn"
// to one of Pairs.
func LookupPair(input string) (models.CurrencyPair, error) {
	slug, ok := utils.NormalizePair(input)
	if ok {
		for _, p := range Pairs {
			if p.Slug == slug {
				return p, nil
			}
		}
	}
	return models.CurrencyPair{}, &ErrUnknownPair{Input: input}
}
