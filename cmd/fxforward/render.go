package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/seenimoa/fxforward/internal/forecast"
	"github.com/seenimoa/fxforward/internal/pipeline"
	"github.com/seenimoa/fxforward/internal/source"
	"github.com/seenimoa/fxforward/pkg/models"
	"github.com/seenimoa/fxforward/pkg/utils"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderPairs(w io.Writer, pairs []models.CurrencyPair) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Pair", "Symbol", "Slug", "Base", "Quote"})
	for _, p := range pairs {
		t.AppendRow(table.Row{p.Name, p.Symbol(), p.Slug, p.BaseCurrency, p.QuoteCurrency})
	}
	t.Render()
}

func renderSources(w io.Writer, infos []source.Info) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Source", "Default", "URL", "Table Matchers"})
	for _, s := range infos {
		def := ""
		if s.Default {
			def = "*"
		}
		t.AppendRow(table.Row{s.Name, def, s.URLTemplate, strings.Join(s.Matchers, "\n")})
	}
	t.Render()
}

func renderModels(w io.Writer, def forecast.Kind) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Model", "Default", "Description"})
	for _, k := range forecast.Kinds {
		mark := ""
		if k == def {
			mark = "*"
		}
		t.AppendRow(table.Row{k, mark, k.Describe()})
	}
	t.Render()
}

// renderResult prints the curve and its forecast, or why either is missing.
func renderResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "%s forward curve from %s\n", res.Pair.Name, res.Source)

	if res.Status == pipeline.StatusNoData {
		fmt.Fprintf(w, "No data: %s\n", orDash(res.ExtractError))
		return
	}

	mids := res.Series.Mids()
	dec := utils.RateDecimals(mids)

	t := newTable(w)
	t.AppendHeader(table.Row{"Tenor", "Label", "Bid", "Ask", "Mid", "Points"})
	for _, p := range res.Series.Points {
		t.AppendRow(table.Row{
			p.Tenor,
			utils.Truncate(p.Label, 24),
			utils.FormatOptional(p.Bid, dec),
			utils.FormatOptional(p.Ask, dec),
			utils.FormatRate(p.Mid, dec),
			utils.FormatPoints(p.Points),
		})
	}
	caption := fmt.Sprintf("%d points", res.Series.Len())
	if res.DroppedRows > 0 {
		caption += fmt.Sprintf(", %d rows dropped", res.DroppedRows)
	}
	if res.Cached {
		caption += ", cached"
	}
	t.SetCaption(caption)
	t.Render()

	if res.Status == pipeline.StatusForecastFailed {
		fmt.Fprintf(w, "Forecast (%s) failed: %s\n", res.Model, orDash(res.ForecastError))
		return
	}
	if res.Forecast == nil || len(res.Forecast.Points) == 0 {
		return
	}

	ft := newTable(w)
	ft.AppendHeader(table.Row{"Step", "Forecast (" + string(res.Model) + ")"})
	for _, p := range res.Forecast.Points {
		ft.AppendRow(table.Row{p.Label, utils.FormatRate(p.Value, dec)})
	}
	ft.Render()
}

// renderScan prints one summary row per pair.
func renderScan(w io.Writer, results []*pipeline.Result) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Pair", "Status", "Points", "Last Tenor", "Last Mid", "Forecast", "Note"})
	for _, r := range results {
		if r == nil {
			continue
		}
		lastTenor, lastMid, fc := "-", "-", "-"
		dec := utils.RateDecimals(r.Series.Mids())
		if n := r.Series.Len(); n > 0 {
			last := r.Series.Points[n-1]
			lastTenor = last.Tenor
			lastMid = utils.FormatRate(last.Mid, dec)
		}
		if r.Forecast != nil && len(r.Forecast.Points) > 0 {
			vals := make([]string, len(r.Forecast.Points))
			for i, v := range r.Forecast.Values() {
				vals[i] = utils.FormatRate(v, dec)
			}
			fc = strings.Join(vals, " ")
		}
		note := r.ExtractError
		if note == "" {
			note = r.ForecastError
		}
		t.AppendRow(table.Row{r.Pair.Name, r.Status, r.Series.Len(), lastTenor, lastMid, fc, utils.Truncate(note, 48)})
	}
	t.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
