// Package pipeline runs one forward-curve extraction end to end: fetch the
// source page, locate the rate table, parse its rows, order the tenors and
// forecast the mid curve. Failures never escape as Go errors; they degrade
// into a Result status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/fxforward/internal/forecast"
	"github.com/seenimoa/fxforward/internal/infra"
	"github.com/seenimoa/fxforward/internal/metrics"
	"github.com/seenimoa/fxforward/internal/scrape"
	"github.com/seenimoa/fxforward/internal/source"
	"github.com/seenimoa/fxforward/internal/tenor"
	"github.com/seenimoa/fxforward/pkg/models"
)

// ErrNoRows is returned when a table was found but every row was dropped.
var ErrNoRows = errors.New("no usable rows in forward rate table")

// Fetcher retrieves a page body. *scrape.Fetcher is the production
// implementation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Status summarises how far a run got.
type Status string

const (
	StatusOK             Status = "ok"
	StatusNoData         Status = "no_data"
	StatusForecastFailed Status = "forecast_failed"
)

// Request selects what to extract and how to forecast it.
type Request struct {
	Source  string              // empty means the registry default
	Pair    models.CurrencyPair // must carry a slug
	Model   forecast.Kind       // empty means Options.DefaultModel
	Horizon int
}

// Extraction is the cached outcome of fetching and parsing one page.
// A failed extraction carries an empty series and the error.
type Extraction struct {
	Series  models.TimeSeries
	Table   string // matcher that selected the table
	Dropped int
	Total   int
	Err     error
	Cached  bool
}

// Result is the outcome of one pipeline run.
type Result struct {
	Source        string                 `json:"source"`
	Pair          models.CurrencyPair    `json:"pair"`
	Model         forecast.Kind          `json:"model"`
	Horizon       int                    `json:"horizon"`
	Status        Status                 `json:"status"`
	Series        models.TimeSeries      `json:"series"`
	Forecast      *models.ForecastResult `json:"forecast,omitempty"`
	Table         string                 `json:"table,omitempty"`
	DroppedRows   int                    `json:"dropped_rows"`
	TotalRows     int                    `json:"total_rows"`
	Cached        bool                   `json:"cached"`
	ExtractError  string                 `json:"extract_error,omitempty"`
	ForecastError string                 `json:"forecast_error,omitempty"`
}

// Options wires a Pipeline. Only Fetcher is required.
type Options struct {
	Registry          *source.Registry
	Fetcher           Fetcher
	Cache             *SeriesCache
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
	TenorPolicy       tenor.Policy
	DefaultModel      forecast.Kind
	Forecast          forecast.Options
	ConcurrentFetches int
	Now               func() time.Time
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	registry    *source.Registry
	fetcher     Fetcher
	cache       *SeriesCache
	metrics     *metrics.Metrics
	log         *slog.Logger
	policy      tenor.Policy
	model       forecast.Kind
	forecastOpt forecast.Options
	concurrency int
	now         func() time.Time
}

// New builds a pipeline, filling unset options with defaults.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		registry:    opts.Registry,
		fetcher:     opts.Fetcher,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		policy:      opts.TenorPolicy,
		model:       opts.DefaultModel,
		forecastOpt: opts.Forecast,
		concurrency: opts.ConcurrentFetches,
		now:         opts.Now,
	}
	if p.registry == nil {
		p.registry = source.NewDefaultRegistry()
	}
	if p.cache == nil {
		p.cache = NewSeriesCache(p.metrics)
	}
	if p.log == nil {
		p.log = infra.DiscardLogger()
	}
	if p.model == "" {
		p.model = forecast.KindLinear
	}
	if p.concurrency <= 0 {
		p.concurrency = 3
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.log = p.log.With(slog.String("component", "pipeline"))
	return p
}

// Registry returns the source registry in use.
func (p *Pipeline) Registry() *source.Registry { return p.registry }

// Cache returns the series cache in use.
func (p *Pipeline) Cache() *SeriesCache { return p.cache }

// Extract returns the normalised series for pair from the named source,
// memoised per source and pair. On failure the series is empty and the
// error says why; the failure itself is memoised too.
func (p *Pipeline) Extract(ctx context.Context, sourceName string, pair models.CurrencyPair) (models.TimeSeries, error) {
	ex := p.extract(ctx, sourceName, pair)
	return ex.Series, ex.Err
}

func (p *Pipeline) extract(ctx context.Context, sourceName string, pair models.CurrencyPair) Extraction {
	src, err := p.registry.Get(sourceName)
	if err != nil {
		return Extraction{Series: emptySeries(sourceName, pair), Err: err}
	}
	key := CacheKey(src.Name, pair.Slug)
	ex, err := p.cache.GetOrLoad(ctx, key, func(ctx context.Context) Extraction {
		return p.load(ctx, src, pair)
	})
	if err != nil {
		return Extraction{Series: emptySeries(src.Name, pair), Err: fmt.Errorf("%w: %w", scrape.ErrNetwork, err)}
	}
	return ex
}

// load runs Fetch, Locate, Parse and Normalize once.
func (p *Pipeline) load(ctx context.Context, src *source.Source, pair models.CurrencyPair) Extraction {
	ex := Extraction{Series: emptySeries(src.Name, pair)}
	url := src.URL(pair)
	log := p.log.With(slog.String("source", src.Name), slog.String("pair", pair.Name))

	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Warn("fetch failed", slog.String("url", url), slog.Any("error", err))
		p.metrics.Fetch(src.Name, metrics.OutcomeError)
		ex.Err = err
		return ex
	}

	table, err := scrape.LocateHTML(body, src.Matchers)
	if err != nil {
		log.Warn("forward rate table not found", slog.String("url", url), slog.Any("error", err))
		p.metrics.Fetch(src.Name, metrics.OutcomeNotFound)
		ex.Err = err
		return ex
	}
	ex.Table = table.Matcher

	rows := scrape.ParseRows(table, src.Layout)
	ex.Dropped, ex.Total = len(rows.Dropped), rows.Total
	p.metrics.Dropped(src.Name, ex.Dropped)
	for _, rerr := range rows.Dropped {
		log.Debug("row dropped", slog.Int("row", rerr.Row), slog.Int("column", rerr.Column),
			slog.String("value", rerr.Value), slog.String("reason", rerr.Reason))
	}
	if len(rows.Points) == 0 {
		log.Warn("all rows dropped", slog.Int("rows", rows.Total))
		p.metrics.Fetch(src.Name, metrics.OutcomeEmpty)
		ex.Err = fmt.Errorf("%w (%d rows, table %s)", ErrNoRows, rows.Total, table.Matcher)
		return ex
	}

	points, err := tenor.Normalize(rows.Points, p.policy)
	if err != nil {
		log.Warn("tenor normalisation failed", slog.Any("error", err))
		p.metrics.Fetch(src.Name, metrics.OutcomeError)
		ex.Err = err
		return ex
	}

	ex.Series.Points = points
	ex.Series.FetchedAt = p.now()
	p.metrics.Fetch(src.Name, metrics.OutcomeOK)
	log.Info("curve extracted", slog.Int("points", len(points)), slog.Int("dropped", ex.Dropped),
		slog.String("table", ex.Table))
	return ex
}

// Run extracts the series and forecasts its mid curve. It never fails: the
// returned Result's Status reports what went wrong.
func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	kind := req.Model
	if kind == "" {
		kind = p.model
	}
	res := &Result{
		Source:  req.Source,
		Pair:    req.Pair,
		Model:   kind,
		Horizon: req.Horizon,
	}
	if res.Source == "" {
		res.Source = p.registry.DefaultName()
	}

	ex := p.extract(ctx, res.Source, req.Pair)
	res.Series = ex.Series
	res.Table = ex.Table
	res.DroppedRows = ex.Dropped
	res.TotalRows = ex.Total
	res.Cached = ex.Cached
	if ex.Err != nil || ex.Series.Empty() {
		res.Status = StatusNoData
		if ex.Err != nil {
			res.ExtractError = ex.Err.Error()
		}
		return res
	}

	fc, err := p.forecast(kind, ex.Series.Mids(), req.Horizon)
	if err != nil {
		p.log.Warn("forecast failed", slog.String("model", string(kind)), slog.String("pair", req.Pair.Name),
			slog.Int("points", ex.Series.Len()), slog.Any("error", err))
		p.metrics.Forecast(string(kind), metrics.OutcomeError)
		res.Status = StatusForecastFailed
		res.ForecastError = err.Error()
		return res
	}
	p.metrics.Forecast(string(kind), metrics.OutcomeOK)
	res.Forecast = &fc
	res.Status = StatusOK
	return res
}

func (p *Pipeline) forecast(kind forecast.Kind, mids []float64, horizon int) (models.ForecastResult, error) {
	model, err := forecast.New(kind, p.forecastOpt)
	if err != nil {
		return models.ForecastResult{}, err
	}
	return model.Forecast(mids, horizon)
}

// RunAll runs every pair concurrently, at most ConcurrentFetches at a time.
// Results come back in the order of pairs.
func (p *Pipeline) RunAll(ctx context.Context, sourceName string, pairs []models.CurrencyPair, model forecast.Kind, horizon int) []*Result {
	results := make([]*Result, len(pairs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, pair := range pairs {
		g.Go(func() error {
			r := p.Run(gctx, Request{Source: sourceName, Pair: pair, Model: model, Horizon: horizon})
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil // failures live in the Result
		})
	}
	_ = g.Wait()
	return results
}

// Invalidate drops the cached series for one source and pair.
func (p *Pipeline) Invalidate(sourceName string, pair models.CurrencyPair) bool {
	if sourceName == "" {
		sourceName = p.registry.DefaultName()
	}
	return p.cache.Invalidate(CacheKey(sourceName, pair.Slug))
}

func emptySeries(sourceName string, pair models.CurrencyPair) models.TimeSeries {
	return models.TimeSeries{Pair: pair, Source: sourceName, Points: []models.ForwardRatePoint{}}
}
