package forecast

import (
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/fxforward/pkg/models"
)

// Holt is exponential smoothing with an additive trend and no seasonal
// component. Smoothing weights and the initial level and trend are estimated
// by minimising the one-step-ahead squared error.
type Holt struct{}

func (Holt) Kind() Kind { return KindHolt }

// holtFit holds estimated parameters on the standardised scale.
type holtFit struct {
	alpha, beta  float64
	level, trend float64 // state after the last observation
}

func (m Holt) Forecast(series []float64, steps int) (models.ForecastResult, error) {
	res, done, err := check(KindHolt, series, steps)
	if done {
		return res, err
	}

	mean, sd := stat.MeanStdDev(series, nil)
	if sd == 0 || sd < 1e-12*math.Max(1, math.Abs(mean)) {
		// Flat curve: level stays put and the trend is zero.
		for k := 1; k <= steps; k++ {
			res.Points = append(res.Points, models.ForecastPoint{Label: stepLabel(k), Value: series[len(series)-1]})
		}
		return res, nil
	}

	z := make([]float64, len(series))
	for i, v := range series {
		z[i] = (v - mean) / sd
	}

	fit, ferr := fitHolt(z)
	if ferr != nil {
		return res, ferr
	}

	for k := 1; k <= steps; k++ {
		v := fit.level + float64(k)*fit.trend
		res.Points = append(res.Points, models.ForecastPoint{
			Label: stepLabel(k),
			Value: v*sd + mean,
		})
	}
	return res, nil
}

// holtRun filters z with the given parameters, returning the SSE and the
// final state.
func holtRun(z []float64, alpha, beta, l0, b0 float64) (sse, level, trend float64) {
	level, trend = l0, b0
	for _, y := range z {
		e := y - (level + trend)
		sse += e * e
		next := alpha*y + (1-alpha)*(level+trend)
		trend = beta*(next-level) + (1-beta)*trend
		level = next
	}
	return sse, level, trend
}

func fitHolt(z []float64) (holtFit, error) {
	b0 := z[1] - z[0]
	init := []float64{logit(0.5), logit(0.1), z[0] - b0, b0}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sse, _, _ := holtRun(z, sigmoid(x[0]), sigmoid(x[1]), x[2], x[3])
			return sse
		},
	}
	result, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if result == nil || !finite(result.F) || !finite(result.X...) {
		reason := "optimiser returned no usable parameters"
		if err != nil {
			reason += ": " + err.Error()
		}
		return holtFit{}, &ModelError{Model: KindHolt, Reason: reason}
	}

	x := result.X
	fit := holtFit{alpha: sigmoid(x[0]), beta: sigmoid(x[1])}
	_, fit.level, fit.trend = holtRun(z, fit.alpha, fit.beta, x[2], x[3])
	if !finite(fit.level, fit.trend) {
		return holtFit{}, &ModelError{Model: KindHolt, Reason: "smoothing state diverged"}
	}
	return fit, nil
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }
