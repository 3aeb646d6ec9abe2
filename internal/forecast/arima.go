package forecast

import (
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/fxforward/pkg/models"
)

// arimaMinPoints is the shortest series ARIMA(1,1,1) is fitted on: two
// residuals after differencing, one per ARMA coefficient.
const arimaMinPoints = 4

// ARIMA is a fixed-order ARIMA(1,1,1) without constant:
//
//	d[t] = y[t] - y[t-1]
//	d[t] = phi·d[t-1] + e[t] + theta·e[t-1]
//
// phi and theta are estimated by conditional sum of squares and kept inside
// (-1, 1) through a tanh transform.
type ARIMA struct{}

func (ARIMA) Kind() Kind { return KindARIMA }

func (m ARIMA) Forecast(series []float64, steps int) (models.ForecastResult, error) {
	res, done, err := check(KindARIMA, series, steps)
	if done {
		return res, err
	}
	if len(series) < arimaMinPoints {
		return res, &ModelError{Model: KindARIMA, Reason: "series too short to fit ARIMA(1,1,1)"}
	}

	d := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		d[i-1] = series[i] - series[i-1]
	}

	scale := rms(d)
	if scale < 1e-12*math.Max(1, math.Abs(series[len(series)-1])) {
		return res, &ModelError{Model: KindARIMA, Reason: "degenerate series: differences are all zero"}
	}
	for i := range d {
		d[i] /= scale
	}

	phi, theta, ferr := fitARMA11(d)
	if ferr != nil {
		return res, ferr
	}

	_, lastErr := css(d, phi, theta)
	prevD := d[len(d)-1]
	level := series[len(series)-1]
	for k := 1; k <= steps; k++ {
		next := phi * prevD
		if k == 1 {
			next += theta * lastErr
		}
		level += next * scale
		prevD = next
		res.Points = append(res.Points, models.ForecastPoint{Label: stepLabel(k), Value: level})
	}
	return res, nil
}

// css returns the conditional sum of squared residuals and the last residual,
// with the pre-sample residual taken as zero.
func css(d []float64, phi, theta float64) (sse, last float64) {
	for t := 1; t < len(d); t++ {
		e := d[t] - phi*d[t-1] - theta*last
		sse += e * e
		last = e
	}
	return sse, last
}

func fitARMA11(d []float64) (phi, theta float64, err error) {
	r1 := 0.0
	if len(d) > 2 {
		r1 = stat.Correlation(d[:len(d)-1], d[1:], nil)
	}
	if !finite(r1) {
		r1 = 0
	}
	r1 = math.Max(-0.9, math.Min(0.9, r1))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sse, _ := css(d, math.Tanh(x[0]), math.Tanh(x[1]))
			return sse
		},
	}
	result, merr := optimize.Minimize(problem, []float64{math.Atanh(r1), 0}, nil, &optimize.NelderMead{})
	if result == nil || !finite(result.F) || !finite(result.X...) {
		reason := "optimiser did not converge"
		if merr != nil {
			reason += ": " + merr.Error()
		}
		return 0, 0, &ModelError{Model: KindARIMA, Reason: reason}
	}
	return math.Tanh(result.X[0]), math.Tanh(result.X[1]), nil
}

func rms(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x * x
	}
	return math.Sqrt(s / float64(len(xs)))
}
