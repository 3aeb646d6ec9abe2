// Package forecast extends a mid-rate curve with one of several
// interchangeable models. Every model implements Model; New builds one from
// its Kind tag.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/seenimoa/fxforward/pkg/models"
)

// Kind tags a forecast model variant.
type Kind string

const (
	KindLinear  Kind = "linear"
	KindHolt    Kind = "holt"
	KindARIMA   Kind = "arima"
	KindProphet Kind = "prophet"
)

// Kinds lists every model variant in display order.
var Kinds = []Kind{KindLinear, KindHolt, KindARIMA, KindProphet}

// Describe returns a one-line description of the model variant.
func (k Kind) Describe() string {
	switch k {
	case KindLinear:
		return "ordinary least-squares trend against tenor position"
	case KindHolt:
		return "exponential smoothing with additive trend, no seasonality"
	case KindARIMA:
		return "ARIMA(1,1,1) fitted by conditional sum of squares"
	case KindProphet:
		return "piecewise-linear trend with changepoints on monthly pseudo-dates"
	}
	return "unknown"
}

// ParseKind maps a user-supplied model name to its Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "ols", "linear-regression":
		return KindLinear, nil
	case "holt", "ets", "exponential-smoothing", "exponentialsmoothing":
		return KindHolt, nil
	case "arima":
		return KindARIMA, nil
	case "prophet", "prophet-style":
		return KindProphet, nil
	}
	return "", fmt.Errorf("unknown forecast model %q", s)
}

// --- Errors ---

// ErrInsufficientData is returned when the series is too short to fit.
var ErrInsufficientData = errors.New("insufficient data: at least 2 points required")

// ErrInvalidHorizon is returned for a negative number of steps.
var ErrInvalidHorizon = errors.New("forecast horizon must not be negative")

// ErrModel is wrapped by ModelError.
var ErrModel = errors.New("model error")

// ModelError reports a fit that failed or did not converge.
type ModelError struct {
	Model  Kind
	Reason string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %s", e.Model, e.Reason)
}

func (e *ModelError) Unwrap() error { return ErrModel }

// Model is the forecasting strategy.
type Model interface {
	Kind() Kind
	// Forecast projects steps values past the end of series. steps == 0
	// always yields an empty result.
	Forecast(series []float64, steps int) (models.ForecastResult, error)
}

// Options tunes model construction.
type Options struct {
	// ProphetOrigin is the pseudo-date of the first observation for the
	// Prophet-style model. Zero means DefaultProphetOrigin.
	ProphetOrigin time.Time
}

// DefaultProphetOrigin anchors the Prophet-style pseudo-date axis.
var DefaultProphetOrigin = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// New constructs the model for kind.
func New(kind Kind, opts Options) (Model, error) {
	switch kind {
	case KindLinear:
		return Linear{}, nil
	case KindHolt:
		return Holt{}, nil
	case KindARIMA:
		return ARIMA{}, nil
	case KindProphet:
		origin := opts.ProphetOrigin
		if origin.IsZero() {
			origin = DefaultProphetOrigin
		}
		return Prophet{Origin: origin}, nil
	}
	return nil, fmt.Errorf("unknown forecast model %q", kind)
}

// check enforces the preconditions shared by every model. done is true when
// the caller should return the (empty) result immediately.
func check(kind Kind, series []float64, steps int) (res models.ForecastResult, done bool, err error) {
	res = models.ForecastResult{Model: string(kind), Steps: steps, Points: []models.ForecastPoint{}}
	if steps < 0 {
		return res, true, ErrInvalidHorizon
	}
	if steps == 0 {
		return res, true, nil
	}
	if len(series) < 2 {
		return res, true, fmt.Errorf("%s: %w (got %d)", kind, ErrInsufficientData, len(series))
	}
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return res, true, &ModelError{Model: kind, Reason: fmt.Sprintf("non-finite observation at %d", i)}
		}
	}
	return res, false, nil
}

// stepLabel names the k-th projected step.
func stepLabel(k int) string {
	return fmt.Sprintf("Forecast +%d", k)
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
