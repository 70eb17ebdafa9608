package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/storefront-crawler/internal/api"
	"github.com/maltedev/storefront-crawler/internal/browser"
	"github.com/maltedev/storefront-crawler/internal/config"
	"github.com/maltedev/storefront-crawler/internal/crawler"
	"github.com/maltedev/storefront-crawler/internal/dom"
	"github.com/maltedev/storefront-crawler/internal/extract"
	"github.com/maltedev/storefront-crawler/internal/urlnorm"
)

func main() {
	var (
		pageURL  = flag.String("url", "", "Listing page URL to crawl")
		baseURL  = flag.String("base", "", "Site base URL used to resolve relative links")
		limit    = flag.Int("limit", extract.DefaultLimit, "Maximum number of products")
		htmlFile = flag.String("html", "", "Extract from a saved HTML file instead of launching a browser")
		headless = flag.Bool("headless", true, "Run browser in headless mode")
		verbose  = flag.Bool("v", false, "Include extraction diagnostics in the output")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	base := *baseURL
	if base == "" && *pageURL != "" {
		if origin, err := urlnorm.Origin(*pageURL); err == nil {
			base = origin
		}
	}

	var result *extract.Result
	if *htmlFile != "" {
		result, err = extractFile(*htmlFile, *pageURL, base, *limit, logger)
	} else {
		result, err = crawl(cfg, *pageURL, base, *limit, *headless, logger)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err != nil {
		msg := crawler.Classify(err, *pageURL).Message()
		_ = enc.Encode(api.ErrorResponse{Message: msg})
		os.Exit(1)
	}

	if *verbose {
		_ = enc.Encode(result)
		return
	}
	_ = enc.Encode(api.CrawlResponse{Products: result.Products})
}

func crawl(cfg *config.Config, pageURL, base string, limit int, headless bool, logger *slog.Logger) (*extract.Result, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := browser.DefaultOptions()
	opts.Headless = headless
	opts.Timeout = cfg.Browser.Timeout
	opts.SettleDelay = cfg.Browser.SettleDelay
	opts.UserAgent = cfg.Browser.UserAgent
	opts.ProxyServer = cfg.Browser.ProxyServer
	opts.BlockedResourceTypes = cfg.Browser.BlockedResourceTypes()

	c := crawler.New(browser.Launcher(opts, logger), logger,
		crawler.WithRetryPolicy(crawler.RetryPolicy{
			MaxRetries: cfg.Crawler.MaxRetries,
			BaseDelay:  cfg.Crawler.BackoffBase,
		}),
		crawler.WithLimits(cfg.Crawler.DefaultLimit, cfg.Crawler.MaxLimit),
	)

	return c.Crawl(ctx, crawler.Request{URL: pageURL, BaseURL: base, Limit: limit})
}

// extractFile runs the extractor over a saved page. No listing link is
// followed and nothing is retried.
func extractFile(path, pageURL, base string, limit int, logger *slog.Logger) (*extract.Result, error) {
	if base == "" {
		return nil, &crawler.Error{Kind: crawler.KindInvalidInput, URL: pageURL, Err: crawler.ErrMissingURL}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &crawler.Error{Kind: crawler.KindInvalidInput, URL: path, Err: err}
	}
	defer f.Close()

	if pageURL == "" {
		pageURL = base
	}
	doc, err := dom.Parse(f, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result, err := extract.New(nil, logger).Extract(doc, base, limit)
	if err != nil {
		return nil, &crawler.Error{Kind: crawler.KindInvalidInput, URL: pageURL, Err: err}
	}
	if len(result.Products) == 0 {
		return nil, &crawler.Error{Kind: crawler.KindNoProductsFound, URL: pageURL, Err: crawler.ErrNoProducts}
	}
	return result, nil
}
