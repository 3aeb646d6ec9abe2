package forecast

import (
	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/fxforward/pkg/models"
)

// Linear fits mid = a + b·i over positions 0..n-1 and extrapolates
// positions n..n+steps-1.
type Linear struct{}

func (Linear) Kind() Kind { return KindLinear }

func (m Linear) Forecast(series []float64, steps int) (models.ForecastResult, error) {
	res, done, err := check(KindLinear, series, steps)
	if done {
		return res, err
	}

	n := len(series)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, series, nil, false)
	if !finite(alpha, beta) {
		return res, &ModelError{Model: KindLinear, Reason: "regression produced non-finite coefficients"}
	}

	for k := 1; k <= steps; k++ {
		x := float64(n - 1 + k)
		res.Points = append(res.Points, models.ForecastPoint{
			Label: stepLabel(k),
			Value: alpha + beta*x,
		})
	}
	return res, nil
}
