package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/storefront-crawler/internal/dom"
	"github.com/playwright-community/playwright-go"
)

// Page is one tab in its own browser context.
type Page struct {
	context playwright.BrowserContext
	page    playwright.Page
	opts    *Options
	blocked resourceFilter
	logger  *slog.Logger
}

// Navigate loads url, waits for the network to go idle and then for the
// settle delay so late scripts can render the listing.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(p.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if resp != nil {
		p.logger.Debug("page loaded", "url", url, "status", resp.Status())
	}

	if p.opts.SettleDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(p.opts.SettleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Document exposes the live page to the extractors.
func (p *Page) Document() dom.Document {
	return &pageDocument{page: p.page}
}

func (p *Page) Close() error {
	var errs []error

	if p.page != nil {
		if err := p.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}

	if p.context != nil {
		if err := p.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (p *Page) route(route playwright.Route) {
	if p.blocked.blocks(route.Request().ResourceType()) {
		if err := route.Abort(); err != nil {
			p.logger.Debug("failed to abort request", "url", route.Request().URL(), "error", err)
		}
		return
	}
	if err := route.Continue(); err != nil {
		p.logger.Debug("failed to continue request", "url", route.Request().URL(), "error", err)
	}
}

type resourceFilter map[string]bool

func newResourceFilter(types []string) resourceFilter {
	f := make(resourceFilter, len(types))
	for _, t := range types {
		f[t] = true
	}
	return f
}

func (f resourceFilter) blocks(resourceType string) bool {
	return f[resourceType]
}
