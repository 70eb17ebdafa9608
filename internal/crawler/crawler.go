// Package crawler drives one crawl request from a seed URL to a product list:
// it launches the browser, retries failed attempts with backoff and hands the
// rendered page to the extractor.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/storefront-crawler/internal/dom"
	"github.com/maltedev/storefront-crawler/internal/extract"
	"github.com/maltedev/storefront-crawler/internal/urlnorm"
)

const (
	DefaultLimit = extract.DefaultLimit
	MaxLimit     = 100
)

// Browser is a launched browser process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is an isolated tab. Closing it releases its browser context.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Document() dom.Document
	Close() error
}

// LaunchFunc starts a browser for one request.
type LaunchFunc func(ctx context.Context) (Browser, error)

// ResultCache stores finished crawls keyed by the whole validated request.
type ResultCache interface {
	Get(ctx context.Context, req Request) (*extract.Result, bool)
	Set(ctx context.Context, req Request, result *extract.Result)
}

// Recorder receives crawl measurements.
type Recorder interface {
	CrawlFinished(outcome string, duration time.Duration)
	AttemptFailed(kind string)
	ProductsExtracted(mode string, count int)
	CacheLookup(hit bool)
}

type Request struct {
	URL     string `json:"url"`
	BaseURL string `json:"baseUrl"`
	Limit   int    `json:"limit,omitempty"`
}

type Crawler struct {
	launch       LaunchFunc
	extractor    *extract.Extractor
	policy       RetryPolicy
	defaultLimit int
	maxLimit     int
	cache        ResultCache
	metrics      Recorder
	logger       *slog.Logger
}

type Option func(*Crawler)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Crawler) { c.policy = p }
}

// WithLimits sets the limit used when a request has none and the cap applied
// to every request.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(c *Crawler) {
		if defaultLimit > 0 {
			c.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			c.maxLimit = maxLimit
		}
	}
}

func WithCache(cache ResultCache) Option {
	return func(c *Crawler) { c.cache = cache }
}

func WithMetrics(r Recorder) Option {
	return func(c *Crawler) {
		if r != nil {
			c.metrics = r
		}
	}
}

func WithExtractor(e *extract.Extractor) Option {
	return func(c *Crawler) { c.extractor = e }
}

func New(launch LaunchFunc, logger *slog.Logger, opts ...Option) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "crawler")

	c := &Crawler{
		launch:       launch,
		policy:       DefaultRetryPolicy(),
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		metrics:      noopRecorder{},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extractor == nil {
		c.extractor = extract.New(nil, logger)
	}
	return c
}

// Validate checks the request and fills in the limit.
func (c *Crawler) Validate(req Request) (Request, error) {
	if req.URL == "" || req.BaseURL == "" {
		return req, &Error{Kind: KindInvalidInput, URL: req.URL, Err: ErrMissingURL}
	}
	if _, err := urlnorm.ParseAbsolute(req.URL); err != nil {
		return req, &Error{Kind: KindInvalidInput, URL: req.URL, Err: fmt.Errorf("%w: %q", errInvalidURL, req.URL)}
	}
	if _, err := urlnorm.ParseAbsolute(req.BaseURL); err != nil {
		return req, &Error{Kind: KindInvalidInput, URL: req.URL, Err: fmt.Errorf("%w: %q", errInvalidBase, req.BaseURL)}
	}

	switch {
	case req.Limit <= 0:
		req.Limit = c.defaultLimit
	case req.Limit > c.maxLimit:
		req.Limit = c.maxLimit
	}
	return req, nil
}

// Crawl renders req.URL and returns up to req.Limit products. Failures are
// *Error values; a page without products fails with KindNoProductsFound.
func (c *Crawler) Crawl(ctx context.Context, req Request) (*extract.Result, error) {
	start := time.Now()

	req, err := c.Validate(req)
	if err != nil {
		c.metrics.CrawlFinished(KindInvalidInput.String(), time.Since(start))
		return nil, err
	}

	if c.cache != nil {
		if result, ok := c.cache.Get(ctx, req); ok {
			c.metrics.CacheLookup(true)
			c.logger.Debug("serving cached result", "url", req.URL, "products", len(result.Products))
			return result, nil
		}
		c.metrics.CacheLookup(false)
	}

	c.logger.Info("starting crawl", "url", req.URL, "limit", req.Limit)

	var browser Browser
	defer func() {
		if browser == nil {
			return
		}
		if err := browser.Close(); err != nil {
			c.logger.Warn("failed to close browser", "error", err)
		}
	}()

	result, err := Retry(ctx, c.policy, req.URL, c.logger, func(ctx context.Context, attempt int) (*extract.Result, error) {
		if browser == nil {
			b, err := c.launch(ctx)
			if err != nil {
				c.metrics.AttemptFailed(Classify(err, req.URL).Kind.String())
				return nil, fmt.Errorf("failed to launch browser: %w", err)
			}
			browser = b
		}

		res, err := c.attempt(ctx, browser, req)
		if err != nil {
			c.metrics.AttemptFailed(Classify(err, req.URL).Kind.String())
		}
		return res, err
	})
	if err != nil {
		kind := KindOf(err)
		c.metrics.CrawlFinished(kind.String(), time.Since(start))
		c.logger.Error("crawl failed", "url", req.URL, "kind", kind.String(), "error", err)
		return nil, err
	}

	c.metrics.CrawlFinished("success", time.Since(start))
	c.metrics.ProductsExtracted(string(result.Mode), len(result.Products))
	c.logger.Info("crawl finished",
		"url", req.URL,
		"products", len(result.Products),
		"mode", result.Mode,
		"rule", result.Diagnostics.MatchedRule,
		"duration", time.Since(start),
	)

	if c.cache != nil {
		c.cache.Set(ctx, req, result)
	}
	return result, nil
}

func (c *Crawler) attempt(ctx context.Context, browser Browser, req Request) (*extract.Result, error) {
	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			c.logger.Warn("failed to close page", "error", err)
		}
	}()

	if err := page.Navigate(ctx, req.URL); err != nil {
		return nil, err
	}

	doc := page.Document()
	target, found, err := extract.ResolveListingURL(doc, req.URL, req.BaseURL)
	if err != nil {
		return nil, err
	}
	if found {
		c.logger.Info("following listing link", "from", req.URL, "to", target)
		if err := page.Navigate(ctx, target); err != nil {
			return nil, err
		}
		doc = page.Document()
	}

	result, err := c.extractor.Extract(doc, req.BaseURL, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to extract products: %w", err)
	}
	if len(result.Products) == 0 {
		c.logger.Info("no products on page",
			"url", doc.URL(),
			"title", result.Diagnostics.Title,
			"bodyClasses", result.Diagnostics.BodyClassNames,
			"counts", result.Diagnostics.PerSelectorElementCounts,
		)
		return nil, &Error{Kind: KindNoProductsFound, URL: req.URL, Err: ErrNoProducts}
	}
	return result, nil
}

// Outcome is the result of one site in a batch.
type Outcome struct {
	Request Request
	Result  *extract.Result
	Err     error
}

// CrawlAll crawls requests one after another. A failing site does not stop
// the batch.
func (c *Crawler) CrawlAll(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, 0, len(reqs))
	for _, req := range reqs {
		result, err := c.Crawl(ctx, req)
		outcomes = append(outcomes, Outcome{Request: req, Result: result, Err: err})
	}
	return outcomes
}

type noopRecorder struct{}

func (noopRecorder) CrawlFinished(string, time.Duration) {}
func (noopRecorder) AttemptFailed(string)                {}
func (noopRecorder) ProductsExtracted(string, int)       {}
func (noopRecorder) CacheLookup(bool)                    {}
