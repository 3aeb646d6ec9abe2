package scrape

import (
	"fmt"
	"math"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/fxforward/pkg/models"
)

// Absent marks a Layout column the source does not provide.
const Absent = -1

// Layout describes where a source puts each field within a body row.
// Column indices count <th> and <td> cells in document order.
type Layout struct {
	MinCells int
	Tenor    int
	Bid      int
	Ask      int
	Mid      int
	Points   int
}

func (l Layout) maxColumn() int {
	m := l.Tenor
	for _, c := range []int{l.Bid, l.Ask, l.Mid, l.Points} {
		if c > m {
			m = c
		}
	}
	return m
}

// RowsResult holds the surviving points in document order and the rows that
// were dropped on the way.
type RowsResult struct {
	Points  []models.ForwardRatePoint
	Dropped []*RowError
	Total   int
}

// ParseRows converts every body row of table into a forward-rate point.
// A malformed row is recorded in Dropped and never stops the remaining rows.
func ParseRows(table *CandidateTable, layout Layout) RowsResult {
	var res RowsResult
	if table == nil || table.Rows == nil {
		return res
	}

	table.Rows.Each(func(i int, tr *goquery.Selection) {
		res.Total++
		var cells []string
		tr.Children().Filter("th, td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, cleanText(td.Text()))
		})

		p, rerr := parseRow(i, cells, layout)
		if rerr != nil {
			res.Dropped = append(res.Dropped, rerr)
			return
		}
		res.Points = append(res.Points, p)
	})
	return res
}

func parseRow(i int, cells []string, layout Layout) (models.ForwardRatePoint, *RowError) {
	var p models.ForwardRatePoint

	need := layout.MinCells
	if mc := layout.maxColumn() + 1; mc > need {
		need = mc
	}
	if len(cells) < need {
		return p, &RowError{Row: i, Column: -1, Reason: fmt.Sprintf("expected at least %d cells, got %d", need, len(cells))}
	}

	label := cells[layout.Tenor]
	if label == "" {
		return p, &RowError{Row: i, Column: layout.Tenor, Reason: "empty tenor"}
	}
	p.Tenor = label
	p.Label = label

	for _, col := range []struct {
		idx int
		dst **float64
	}{{layout.Bid, &p.Bid}, {layout.Ask, &p.Ask}} {
		if col.idx == Absent {
			continue
		}
		v, ok := ParseNumber(cells[col.idx])
		if !ok {
			return p, &RowError{Row: i, Column: col.idx, Value: cells[col.idx], Reason: "not a number"}
		}
		*col.dst = models.Float(v)
	}

	// A quoted mid must parse; only a source without a mid column gets the
	// bid/ask average.
	switch {
	case layout.Mid != Absent:
		v, ok := ParseNumber(cells[layout.Mid])
		if !ok {
			return p, &RowError{Row: i, Column: layout.Mid, Value: cells[layout.Mid], Reason: "not a number"}
		}
		p.Mid = v
	case p.Bid != nil && p.Ask != nil:
		p.Mid = (*p.Bid + *p.Ask) / 2
	default:
		return p, &RowError{Row: i, Column: -1, Reason: "no derivable mid"}
	}
	if math.IsNaN(p.Mid) || math.IsInf(p.Mid, 0) {
		return p, &RowError{Row: i, Column: layout.Mid, Reason: "mid is not finite"}
	}

	if layout.Points != Absent {
		if v, ok := ParseNumber(cells[layout.Points]); ok {
			p.Points = models.Float(v)
		}
	}
	return p, nil
}
