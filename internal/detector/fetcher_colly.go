package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// FetcherConfig controls the content fetcher.
type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
	MaxBody   int
}

// CollyFetcher fetches page content for fingerprinting using a Colly
// collector.
type CollyFetcher struct {
	cfg  FetcherConfig
	base *colly.Collector
}

// NewCollyFetcher builds a CollyFetcher.
func NewCollyFetcher(cfg FetcherConfig) *CollyFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = 2 << 20
	}
	c := colly.NewCollector(
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(cfg.MaxBody),
	)
	return &CollyFetcher{cfg: cfg, base: c}
}

// Fetch executes a single GET and returns the body.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch canceled: %w", err)
	}

	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(url); err != nil {
		return nil, fmt.Errorf("visit %s: %w", url, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	if body == nil {
		return nil, errors.New("empty response body")
	}
	return body, nil
}
