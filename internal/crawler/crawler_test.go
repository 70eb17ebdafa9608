package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/maltedev/storefront-crawler/internal/dom"
	"github.com/maltedev/storefront-crawler/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seedURL = "https://shop.example.com/product/list.html?cate_no=24"
	baseURL = "https://shop.example.com"
)

const listingHTML = `<html><head><title>Shop</title></head><body>
<ul class="prdList">
  <li><a href="/product/a/1/"><img src="/web/product/1.jpg"></a><span class="price">19,800원</span></li>
  <li><a href="/product/b/2/"><img src="/web/product/2.jpg"></a><span class="price">29,800원</span></li>
</ul></body></html>`

const emptyHTML = `<html><body><p>nothing here</p></body></html>`

// fakeSite serves canned pages and records every browser interaction.
type fakeSite struct {
	pages      map[string]string
	navErrs    []error
	launchErrs []error

	launches     int
	browserClose int
	pagesOpened  int
	pagesClosed  int
	navigations  []string
	onNavigate   func()
}

func (s *fakeSite) launch(ctx context.Context) (Browser, error) {
	s.launches++
	if len(s.launchErrs) > 0 {
		err := s.launchErrs[0]
		s.launchErrs = s.launchErrs[1:]
		return nil, err
	}
	return &fakeBrowser{site: s}, nil
}

type fakeBrowser struct {
	site *fakeSite
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	b.site.pagesOpened++
	return &fakePage{site: b.site}, nil
}

func (b *fakeBrowser) Close() error {
	b.site.browserClose++
	return nil
}

type fakePage struct {
	site *fakeSite
	url  string
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.site.navigations = append(p.site.navigations, url)
	if p.site.onNavigate != nil {
		p.site.onNavigate()
	}
	if len(p.site.navErrs) > 0 {
		err := p.site.navErrs[0]
		p.site.navErrs = p.site.navErrs[1:]
		if err != nil {
			return err
		}
	}
	p.url = url
	return nil
}

func (p *fakePage) Document() dom.Document {
	html, ok := p.site.pages[p.url]
	if !ok {
		html = emptyHTML
	}
	doc, err := dom.ParseString(html, p.url)
	if err != nil {
		panic(err)
	}
	return doc
}

func (p *fakePage) Close() error {
	p.site.pagesClosed++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCrawler(site *fakeSite, opts ...Option) *Crawler {
	opts = append([]Option{WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond})}, opts...)
	return New(site.launch, discardLogger(), opts...)
}

func TestCrawlSuccess(t *testing.T) {
	site := &fakeSite{pages: map[string]string{seedURL: listingHTML}}

	result, err := newTestCrawler(site).Crawl(context.Background(), Request{URL: seedURL, BaseURL: baseURL})
	require.NoError(t, err)

	require.Len(t, result.Products, 2)
	assert.Equal(t, "https://shop.example.com/product/a/1/", result.Products[0].URL)
	assert.Equal(t, 1, site.launches)
	assert.Equal(t, 1, site.browserClose)
	assert.Equal(t, site.pagesOpened, site.pagesClosed)
	assert.Equal(t, []string{seedURL}, site.navigations)
}

func TestCrawlRetryBound(t *testing.T) {
	refused := errors.New("page.goto: net::ERR_CONNECTION_REFUSED at https://shop.example.com/")
	site := &fakeSite{navErrs: []error{refused, refused, refused, refused, refused, refused}}

	_, err := newTestCrawler(site).Crawl(context.Background(), Request{URL: seedURL, BaseURL: baseURL})
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindConnectionRefused, ce.Kind)
	assert.Len(t, site.navigations, 4)
	assert.Equal(t, 1, site.launches)
	assert.Equal(t, 1, site.browserClose)
	assert.Equal(t, 4, site.pagesOpened)
	assert.Equal(t, 4, site.pagesClosed)
}

func TestCrawlSucceedsAfterRetries(t *testing.T) {
	timeout := errors.New("Timeout 30000ms exceeded.")
	site := &fakeSite{
		pages:   map[string]string{seedURL: listingHTML},
		navErrs: []error{timeout, timeout},
	}

	result, err := newTestCrawler(site).Crawl(context.Background(), Request{URL: seedURL, BaseURL: baseURL})
	require.NoError(t, err)

	assert.Len(t, result.Products, 2)
	assert.Len(t, site.navigations, 3)
	assert.Equal(t, 1, site.browserClose)
	assert.Equal(t, 3, site.pagesClosed)
}

func TestCrawlNoProductsIsNotRetried(t *testing.T) {
	site := &fakeSite{pages: map[string]string{seedURL: emptyHTML}}

	_, err := newTestCrawler(site).Crawl(context.Background(), Request{URL: seedURL, BaseURL: baseURL})
	require.Error(t, err)

	assert.Equal(t, KindNoProductsFound, KindOf(err))
	assert.ErrorIs(t, err, ErrNoProducts)
	assert.Len(t, site.navigations, 1)
	assert.Equal(t, 1, site.browserClose)
}

func TestCrawlLaunchFailureRetriesLaunch(t *testing.T) {
	site := &fakeSite{
		pages:      map[string]string{seedURL: listingHTML},
		launchErrs: []error{errors.New("browser crashed")},
	}

	_, err := newTestCrawler(site).Crawl(context.Background(), Request{URL: seedURL, BaseURL: baseURL})
	require.NoError(t, err)

	assert.Equal(t, 2, site.launches)
	assert.Equal(t, 1, site.browserClose)
}

func TestCrawlInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"Missing url", Request{BaseURL: baseURL}},
		{"Missing base", Request{URL: seedURL}},
		{"Relative url", Request{URL: "/product/list.html", BaseURL: baseURL}},
		{"Bad base", Request{URL: seedURL, BaseURL: "shop.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := &fakeSite{}

			_, err := newTestCrawler(site).Crawl(context.Background(), tt.req)
			assert.Equal(t, KindInvalidInput, KindOf(err))
			assert.Zero(t, site.launches)
		})
	}
}

func TestCrawlHonorsCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	site := &fakeSite{
		navErrs:    []error{errors.New("net::ERR_ABORTED")},
		onNavigate: cancel,
	}
	c := New(site.launch, discardLogger(), WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour}))

	done := make(chan error, 1)
	go func() {
		_, err := c.Crawl(ctx, Request{URL: seedURL, BaseURL: baseURL})
		done <- err
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("crawl did not stop after cancellation")
	}
	assert.Len(t, site.navigations, 1)
	assert.Equal(t, 1, site.browserClose)
}

func TestCrawlFollowsListingLink(t *testing.T) {
	home := "https://shop.example.com/"
	listing := "https://shop.example.com/product/list.html?cate_no=42"
	site := &fakeSite{pages: map[string]string{
		home:    `<html><body><a href="/product/list.html?cate_no=42">Shop all</a></body></html>`,
		listing: listingHTML,
	}}

	result, err := newTestCrawler(site).Crawl(context.Background(), Request{URL: home, BaseURL: baseURL})
	require.NoError(t, err)

	assert.Equal(t, []string{home, listing}, site.navigations)
	assert.Equal(t, listing, result.Diagnostics.ResolvedURL)
	assert.Len(t, result.Products, 2)
}

func TestCrawlLimit(t *testing.T) {
	site := &fakeSite{pages: map[string]string{seedURL: listingHTML}}

	result, err := newTestCrawler(site).Crawl(context.Background(), Request{URL: seedURL, BaseURL: baseURL, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, result.Products, 1)
}

func TestValidateLimits(t *testing.T) {
	c := New(nil, discardLogger(), WithLimits(10, 50))

	req, err := c.Validate(Request{URL: seedURL, BaseURL: baseURL})
	require.NoError(t, err)
	assert.Equal(t, 10, req.Limit)

	req, err = c.Validate(Request{URL: seedURL, BaseURL: baseURL, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, req.Limit)

	req, err = c.Validate(Request{URL: seedURL, BaseURL: baseURL, Limit: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, req.Limit)
}

type memoryCache struct {
	results map[Request]*extract.Result
	sets    int
}

func (m *memoryCache) Get(ctx context.Context, req Request) (*extract.Result, bool) {
	r, ok := m.results[req]
	return r, ok
}

func (m *memoryCache) Set(ctx context.Context, req Request, result *extract.Result) {
	m.sets++
	m.results[req] = result
}

func TestCrawlUsesCache(t *testing.T) {
	site := &fakeSite{pages: map[string]string{seedURL: listingHTML}}
	cache := &memoryCache{results: map[Request]*extract.Result{}}
	c := newTestCrawler(site, WithCache(cache))

	first, err := c.Crawl(context.Background(), Request{URL: seedURL, BaseURL: baseURL})
	require.NoError(t, err)
	second, err := c.Crawl(context.Background(), Request{URL: seedURL, BaseURL: baseURL})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, site.launches)
	assert.Equal(t, 1, cache.sets)

	third, err := c.Crawl(context.Background(), Request{URL: seedURL, BaseURL: "https://www.shop.example.com"})
	require.NoError(t, err)

	assert.NotSame(t, first, third)
	assert.Equal(t, 2, site.launches)
	assert.Equal(t, 2, cache.sets)
}

func TestCrawlAllIsolatesFailures(t *testing.T) {
	other := "https://other.example.com/product/list.html"
	site := &fakeSite{pages: map[string]string{seedURL: listingHTML, other: emptyHTML}}

	outcomes := newTestCrawler(site).CrawlAll(context.Background(), []Request{
		{URL: other, BaseURL: "https://other.example.com"},
		{URL: seedURL, BaseURL: baseURL},
		{URL: "", BaseURL: baseURL},
	})

	require.Len(t, outcomes, 3)
	assert.Equal(t, KindNoProductsFound, KindOf(outcomes[0].Err))
	require.NoError(t, outcomes[1].Err)
	assert.Len(t, outcomes[1].Result.Products, 2)
	assert.Equal(t, KindInvalidInput, KindOf(outcomes[2].Err))
	assert.Equal(t, 2, site.launches)
	assert.Equal(t, 2, site.browserClose)
}
