// Package metrics exposes pipeline counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeNotFound = "table_not_found"
	OutcomeEmpty    = "empty"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics holds the pipeline counters on a private registry, so several
// instances (one per test, say) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal       *prometheus.CounterVec
	RowsDropped      *prometheus.CounterVec
	ForecastTotal    *prometheus.CounterVec
	CacheLookupTotal *prometheus.CounterVec
}

// New creates and registers the counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fxforward",
			Name:      "fetch_total",
			Help:      "Forward-rate page extractions by source and outcome.",
		}, []string{"source", "outcome"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fxforward",
			Name:      "rows_dropped_total",
			Help:      "Table rows skipped because they could not be parsed.",
		}, []string{"source"}),
		ForecastTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fxforward",
			Name:      "forecast_total",
			Help:      "Forecast runs by model and outcome.",
		}, []string{"model", "outcome"}),
		CacheLookupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fxforward",
			Name:      "cache_lookups_total",
			Help:      "Series cache lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.FetchTotal, m.RowsDropped, m.ForecastTotal, m.CacheLookupTotal)
	return m
}

// Registry returns the private registry, e.g. for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Fetch counts one extraction attempt.
func (m *Metrics) Fetch(source, outcome string) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(source, outcome).Inc()
}

// Dropped adds n skipped rows for source.
func (m *Metrics) Dropped(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsDropped.WithLabelValues(source).Add(float64(n))
}

// Forecast counts one forecast run.
func (m *Metrics) Forecast(model, outcome string) {
	if m == nil {
		return
	}
	m.ForecastTotal.WithLabelValues(model, outcome).Inc()
}

// CacheLookup counts one series cache lookup.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.CacheLookupTotal.WithLabelValues(result).Inc()
}
