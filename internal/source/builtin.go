package source

import "github.com/seenimoa/fxforward/internal/scrape"

// FXEmpire lists expiration, bid, ask, mid and forward points for each tenor.
func FXEmpire() *Source {
	return &Source{
		Name:        "fxempire",
		Host:        "www.fxempire.com",
		URLTemplate: "https://www.fxempire.com/currencies/%s/forward-rates",
		Matchers: []scrape.TableMatcher{
			scrape.ByHeaders{Required: []string{"expiration", "bid", "mid"}},
			scrape.ByHeaders{Required: []string{"bid", "ask", "mid"}},
			scrape.ByHeaders{Required: []string{"bid", "ask"}},
		},
		Layout: scrape.Layout{MinCells: 5, Tenor: 0, Bid: 1, Ask: 2, Mid: 3, Points: 4},
	}
}

// Investing puts the tenor name in the second cell behind a flag icon and
// quotes only bid and ask.
func Investing() *Source {
	return &Source{
		Name:        "investing",
		Host:        "www.investing.com",
		URLTemplate: "https://www.investing.com/currencies/%s-forward-rates",
		Matchers: []scrape.TableMatcher{
			scrape.ByID{ID: "curr_table"},
			scrape.ByClass{Class: "genTbl", Required: []string{"bid", "ask"}},
			scrape.ByHeaders{Required: []string{"bid", "ask"}},
		},
		Layout: scrape.Layout{
			MinCells: 4,
			Tenor:    1,
			Bid:      2,
			Ask:      3,
			Mid:      scrape.Absent,
			Points:   scrape.Absent,
		},
	}
}

// Builtin returns fresh copies of every built-in source.
func Builtin() []*Source {
	return []*Source{FXEmpire(), Investing()}
}
