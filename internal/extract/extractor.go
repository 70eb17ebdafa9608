// Package extract turns a rendered storefront listing page into products.
//
// Items are located by a cascade of selector rules. When no rule matches,
// the extractor falls back to scanning list items and then bare anchors,
// choosing each product's thumbnail by image size instead of markup.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maltedev/storefront-crawler/internal/dom"
	"github.com/maltedev/storefront-crawler/internal/urlnorm"
)

const DefaultLimit = 20

// Product is one storefront listing entry. Price is nil when no price was
// found or the item is sold out; SoldOut tells the two apart.
type Product struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Price     *int   `json:"price"`
	Name      string `json:"name,omitempty"`
	SoldOut   bool   `json:"soldOut,omitempty"`
}

type Diagnostics struct {
	Title                    string         `json:"title"`
	ResolvedURL              string         `json:"resolvedUrl"`
	BodyClassNames           []string       `json:"bodyClassNames"`
	PerSelectorElementCounts map[string]int `json:"perSelectorElementCounts"`
	MatchedRule              string         `json:"matchedRule,omitempty"`
	SkippedItems             int            `json:"skippedItems"`
}

type Result struct {
	Products    []Product   `json:"products"`
	Mode        Mode        `json:"mode"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// ItemError reports an item that could not be turned into a product. It
// never fails the page; the extractor logs it and moves on.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

var (
	errNoLink      = errors.New("no link")
	errNoThumbnail = errors.New("no thumbnail")
	errOffSite     = errors.New("link leaves the site")
)

type Extractor struct {
	rules  []SelectorRule
	logger *slog.Logger
}

// New creates an extractor. A nil rules slice selects DefaultRules.
func New(rules []SelectorRule, logger *slog.Logger) *Extractor {
	if rules == nil {
		rules = DefaultRules
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		rules:  rules,
		logger: logger.With("component", "extractor"),
	}
}

// itemPlan describes how items from one cascade stage are read.
type itemPlan struct {
	mode     Mode
	band     *Band
	sameSite bool
}

// Extract reads up to limit products from doc in document order. Relative
// URLs resolve against baseURL. Products are deduplicated by URL.
func (e *Extractor) Extract(doc dom.Document, baseURL string, limit int) (*Result, error) {
	base, err := urlnorm.ParseAbsolute(baseURL)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	result := &Result{
		Products:    []Product{},
		Mode:        ModeNone,
		Diagnostics: e.diagnose(doc),
	}

	items, matched, counts, err := LocateItems(doc, e.rules)
	if err != nil {
		return nil, err
	}
	result.Diagnostics.PerSelectorElementCounts = counts
	result.Diagnostics.MatchedRule = matched

	if len(items) > 0 {
		e.collect(result, items, itemPlan{mode: ModeStructured}, baseURL, base.Host, limit)
		if len(result.Products) > 0 {
			return result, nil
		}
		e.logger.Info("matched rule yielded no products", "rule", matched, "items", len(items))
	}

	items, err = listItemCandidates(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to scan list items: %w", err)
	}
	e.collect(result, items, itemPlan{mode: ModeListItems, band: &Loose, sameSite: true}, baseURL, base.Host, limit)
	if len(result.Products) > 0 {
		return result, nil
	}

	items, err = anchorCandidates(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to scan anchors: %w", err)
	}
	e.collect(result, items, itemPlan{mode: ModeAnchors, band: &NearSquare, sameSite: true}, baseURL, base.Host, limit)

	return result, nil
}

func (e *Extractor) collect(result *Result, items []dom.Node, plan itemPlan, baseURL, baseHost string, limit int) {
	seen := make(map[string]bool)
	for i, item := range items {
		if len(result.Products) >= limit {
			break
		}

		p, err := e.safeExtract(i, item, plan, baseURL, baseHost)
		if err != nil {
			var itemErr *ItemError
			if errors.As(err, &itemErr) {
				result.Diagnostics.SkippedItems++
				e.logger.Warn("skipping item", "index", i, "mode", plan.mode, "error", err)
			}
			continue
		}
		if seen[p.URL] {
			continue
		}
		seen[p.URL] = true
		result.Products = append(result.Products, p)
	}

	if len(result.Products) > 0 {
		result.Mode = plan.mode
	}
}

// safeExtract isolates one item. Missing link or thumbnail drops the item
// quietly; anything else, including a panic, comes back as *ItemError.
func (e *Extractor) safeExtract(index int, item dom.Node, plan itemPlan, baseURL, baseHost string) (p Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ItemError{Index: index, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	p, err = extractItem(item, plan, baseURL, baseHost)
	if err == nil || errors.Is(err, errNoLink) || errors.Is(err, errNoThumbnail) || errors.Is(err, errOffSite) {
		return p, err
	}
	return p, &ItemError{Index: index, Err: err}
}

func extractItem(item dom.Node, plan itemPlan, baseURL, baseHost string) (Product, error) {
	var (
		rawLink string
		err     error
	)
	// Images are scored only under the product link itself.
	imageScope := item
	if plan.mode == ModeListItems {
		var anchor dom.Node
		anchor, rawLink, err = productAnchor(item)
		if anchor != nil {
			imageScope = anchor
		}
	} else {
		rawLink, err = extractLink(item)
	}
	if err != nil {
		return Product{}, fmt.Errorf("failed to read link: %w", err)
	}
	if rawLink == "" {
		return Product{}, errNoLink
	}

	link, err := urlnorm.Normalize(rawLink, baseURL)
	if err != nil {
		return Product{}, errNoLink
	}
	if plan.sameSite && !sameSite(link, baseHost) {
		return Product{}, errOffSite
	}

	var rawThumb string
	if plan.band != nil {
		candidates, err := imageCandidates(imageScope)
		if err != nil {
			return Product{}, fmt.Errorf("failed to read images: %w", err)
		}
		if best, ok := PickBestImage(candidates, *plan.band); ok {
			rawThumb = best.Thumbnail()
		}
	} else {
		rawThumb, err = extractThumbnail(item)
		if err != nil {
			return Product{}, fmt.Errorf("failed to read thumbnail: %w", err)
		}
	}
	if rawThumb == "" {
		return Product{}, errNoThumbnail
	}

	thumb, err := urlnorm.Normalize(rawThumb, baseURL)
	if err != nil {
		return Product{}, errNoThumbnail
	}

	name, err := extractName(item)
	if err != nil {
		return Product{}, fmt.Errorf("failed to read name: %w", err)
	}

	p := Product{URL: link, Thumbnail: thumb, Name: name}

	soldOut, err := isSoldOut(item)
	if err != nil {
		return Product{}, fmt.Errorf("failed to read sold-out marker: %w", err)
	}
	if soldOut {
		p.SoldOut = true
		return p, nil
	}

	p.Price, err = extractPrice(item)
	if err != nil {
		return Product{}, fmt.Errorf("failed to read price: %w", err)
	}
	return p, nil
}

func (e *Extractor) diagnose(doc dom.Document) Diagnostics {
	d := Diagnostics{ResolvedURL: doc.URL(), BodyClassNames: []string{}}

	if title, err := doc.Title(); err == nil {
		d.Title = title
	}

	if bodies, err := doc.QueryAll("body"); err == nil && len(bodies) > 0 {
		if class, err := bodies[0].Attr("class"); err == nil {
			d.BodyClassNames = strings.Fields(class)
		}
	}
	return d
}

func sameSite(rawURL, host string) bool {
	u, err := urlnorm.ParseAbsolute(rawURL)
	if err != nil {
		return false
	}
	return urlnorm.SameSite(u.Hostname(), hostname(host))
}

func hostname(host string) string {
	if h, _, ok := strings.Cut(host, ":"); ok {
		return h
	}
	return host
}
