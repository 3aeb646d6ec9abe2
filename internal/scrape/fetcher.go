package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when no header store is configured.
const DefaultUserAgent = "Mozilla/5.0"

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 10 * time.Second

// FetcherConfig configures the page fetcher.
type FetcherConfig struct {
	Timeout       time.Duration // zero means DefaultTimeout
	UserAgent     string        // empty means DefaultUserAgent
	RatePerSecond float64       // spacing between requests; <= 0 disables limiting
}

// Fetcher issues one timed GET per call. It never retries and keeps no
// cookies or session state between calls.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewFetcher creates a fetcher from the given config.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")
	client.SetRetryCount(0)

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Fetch downloads url and returns the raw document. Non-2xx responses,
// timeouts and transport failures all come back wrapping ErrNetwork.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: wait for %s: %v", ErrNetwork, url, err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrNetwork, url, err)
	}

	if !resp.IsSuccess() {
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			URL:        url,
		}
	}

	return resp.Body(), nil
}
