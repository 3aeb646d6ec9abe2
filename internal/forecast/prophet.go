package forecast

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/seenimoa/fxforward/pkg/models"
)

const (
	prophetMaxChangepoints  = 25
	prophetChangepointRange = 0.8
	// prophetPenalty is the ridge weight on changepoint slope adjustments.
	prophetPenalty    = 0.1
	prophetDateLayout = "2006-01-02"
)

// Prophet treats observation i as the pseudo-date Origin + i months and fits
// a piecewise-linear trend
//
//	y(t) = m + k·t + Σ delta_j·max(0, t - s_j)
//
// with changepoints s_j spread uniformly over the first 80% of history.
// Future points continue the final slope and are labelled with their
// pseudo-dates.
type Prophet struct {
	Origin time.Time
}

func (Prophet) Kind() Kind { return KindProphet }

func (m Prophet) Forecast(series []float64, steps int) (models.ForecastResult, error) {
	res, done, err := check(KindProphet, series, steps)
	if done {
		return res, err
	}

	n := len(series)
	span := float64(n - 1)
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i) / span
	}
	cps := changepoints(ts)

	yScale := 0.0
	for _, v := range series {
		yScale = math.Max(yScale, math.Abs(v))
	}
	if yScale == 0 {
		yScale = 1
	}

	p := 2 + len(cps)
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, t := range ts {
		fillTrendRow(x, i, t, cps)
		y.SetVec(i, series[i]/yScale)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 2; j < p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+prophetPenalty)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if serr := beta.SolveVec(&xtx, &xty); serr != nil {
		var cond mat.Condition
		if !errors.As(serr, &cond) {
			return res, &ModelError{Model: KindProphet, Reason: "trend fit failed: " + serr.Error()}
		}
	}

	origin := m.Origin
	if origin.IsZero() {
		origin = DefaultProphetOrigin
	}
	row := mat.NewDense(1, p, nil)
	for k := 1; k <= steps; k++ {
		idx := n - 1 + k
		fillTrendRow(row, 0, float64(idx)/span, cps)
		v := mat.Dot(row.RowView(0), &beta) * yScale
		if !finite(v) {
			return res, &ModelError{Model: KindProphet, Reason: "trend projection is not finite"}
		}
		res.Points = append(res.Points, models.ForecastPoint{
			Label: origin.AddDate(0, idx, 0).Format(prophetDateLayout),
			Value: v,
		})
	}
	return res, nil
}

// changepoints picks up to prophetMaxChangepoints positions evenly spaced
// over the first prophetChangepointRange of the scaled time axis, excluding
// the first observation.
func changepoints(ts []float64) []float64 {
	hist := int(math.Floor(float64(len(ts)) * prophetChangepointRange))
	count := prophetMaxChangepoints
	if count+1 > hist {
		count = hist - 1
	}
	if count <= 0 {
		return nil
	}
	out := make([]float64, 0, count)
	for j := 1; j <= count; j++ {
		idx := int(math.Round(float64(j) * float64(hist-1) / float64(count)))
		out = append(out, ts[idx])
	}
	return out
}

func fillTrendRow(x *mat.Dense, i int, t float64, cps []float64) {
	x.Set(i, 0, 1)
	x.Set(i, 1, t)
	for j, s := range cps {
		x.Set(i, 2+j, math.Max(0, t-s))
	}
}
