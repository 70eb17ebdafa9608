package browser

import (
	"context"
	"log/slog"

	"github.com/maltedev/storefront-crawler/internal/crawler"
)

// Launcher returns a crawler.LaunchFunc that starts a Chromium instance
// with opts for every crawl request.
func Launcher(opts *Options, logger *slog.Logger) crawler.LaunchFunc {
	return func(ctx context.Context) (crawler.Browser, error) {
		b, err := Launch(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		return crawlerBrowser{b}, nil
	}
}

type crawlerBrowser struct {
	*Browser
}

func (b crawlerBrowser) NewPage(ctx context.Context) (crawler.Page, error) {
	p, err := b.Browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}
