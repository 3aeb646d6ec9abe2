package models

import "time"

// ForwardRatePoint is one tenor of a forward-rate term structure.
// Mid is always present and finite; Bid, Ask and Points are nil when the
// source did not quote them or the cell could not be parsed.
type ForwardRatePoint struct {
	Tenor  string   `json:"tenor"` // canonical code (e.g. "1M") or the trimmed raw label
	Label  string   `json:"label"` // cell text as scraped
	Bid    *float64 `json:"bid,omitempty"`
	Ask    *float64 `json:"ask,omitempty"`
	Mid    float64  `json:"mid"`
	Points *float64 `json:"points,omitempty"` // forward points, informational only
}

// TimeSeries is a forward curve ordered by canonical tenor rank.
type TimeSeries struct {
	Pair      CurrencyPair       `json:"pair"`
	Source    string             `json:"source"`
	Points    []ForwardRatePoint `json:"points"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Len returns the number of points in the series.
func (ts TimeSeries) Len() int { return len(ts.Points) }

// Empty reports whether the series holds no points.
func (ts TimeSeries) Empty() bool { return len(ts.Points) == 0 }

// Clone returns a deep copy of the series, optional quote fields included.
func (ts TimeSeries) Clone() TimeSeries {
	if ts.Points == nil {
		return ts
	}
	points := make([]ForwardRatePoint, len(ts.Points))
	for i, p := range ts.Points {
		p.Bid = cloneFloat(p.Bid)
		p.Ask = cloneFloat(p.Ask)
		p.Points = cloneFloat(p.Points)
		points[i] = p
	}
	ts.Points = points
	return ts
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

// Mids returns the mid rates in series order.
func (ts TimeSeries) Mids() []float64 {
	mids := make([]float64, len(ts.Points))
	for i, p := range ts.Points {
		mids[i] = p.Mid
	}
	return mids
}

// Tenors returns the tenor labels in series order.
func (ts TimeSeries) Tenors() []string {
	tenors := make([]string, len(ts.Points))
	for i, p := range ts.Points {
		tenors[i] = p.Tenor
	}
	return tenors
}

// ForecastPoint is one projected value following the last observed tenor.
type ForecastPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ForecastResult is the ordered continuation of a mid-rate curve.
type ForecastResult struct {
	Model  string          `json:"model"`
	Steps  int             `json:"steps"`
	Points []ForecastPoint `json:"points"`
}

// Values returns the forecast values in order.
func (fr ForecastResult) Values() []float64 {
	vals := make([]float64, len(fr.Points))
	for i, p := range fr.Points {
		vals[i] = p.Value
	}
	return vals
}

// Float returns a pointer to v, for populating optional quote fields.
func Float(v float64) *float64 { return &v }
