package extract

import (
	"strings"

	"github.com/maltedev/storefront-crawler/internal/dom"
)

// FieldSelector reads Attr from the first element matching Selector. An
// empty Attr reads the element's text.
type FieldSelector struct {
	Selector string
	Attr     string
}

var ThumbnailSelectors = []FieldSelector{
	{Selector: "img[data-original]", Attr: "data-original"},
	{Selector: "img[ec-data-src]", Attr: "ec-data-src"},
	{Selector: "img[data-src]", Attr: "data-src"},
	{Selector: "img[data-lazy]", Attr: "data-lazy"},
	{Selector: "img[src]", Attr: "src"},
}

var NameSelectors = []FieldSelector{
	{Selector: ".name"},
	{Selector: `[class*="name"]`},
	{Selector: `[class*="title"]`},
	{Selector: ".prdName"},
	{Selector: "img[alt]", Attr: "alt"},
}

var PriceSelectors = []string{
	`[class*="price"]`,
	`[class*="Price"]`,
	`[class*="cost"]`,
	`[class*="Cost"]`,
	`[class*="won"]`,
	`[class*="Won"]`,
}

var LinkSelectors = []FieldSelector{
	{Selector: `a[href*="product"]`, Attr: "href"},
	{Selector: `a[href*="goods"]`, Attr: "href"},
	{Selector: "a[href]", Attr: "href"},
}

var SoldOutClassSelectors = []string{
	`[class*="soldout"]`,
	`[class*="sold-out"]`,
	`[class*="sold_out"]`,
}

// SoldOutAltMarkers are matched case-insensitively against image alt text.
var SoldOutAltMarkers = []string{"품절", "sold out"}

// firstValue walks selectors in order and returns the first value accepted
// by accept. Errors on one selector do not stop the walk; the last one is
// returned only when nothing matched.
func firstValue(n dom.Node, selectors []FieldSelector, accept func(string) bool) (string, error) {
	var lastErr error
	for _, fs := range selectors {
		nodes, err := n.QueryAll(fs.Selector)
		if err != nil {
			lastErr = err
			continue
		}
		for _, node := range nodes {
			v, err := readField(node, fs.Attr)
			if err != nil {
				lastErr = err
				continue
			}
			v = strings.TrimSpace(v)
			if accept(v) {
				return v, nil
			}
		}
	}
	return "", lastErr
}

func readField(n dom.Node, attr string) (string, error) {
	if attr == "" {
		text, err := n.Text()
		return cleanText(text), err
	}
	return n.Attr(attr)
}

func nonEmpty(v string) bool { return v != "" }

func usableImage(v string) bool {
	return v != "" && !strings.HasPrefix(strings.ToLower(v), "data:")
}

func usableHref(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "#") {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(v), "javascript:")
}

// extractLink returns the item's own href when it is an anchor, else the
// first link found by LinkSelectors.
func extractLink(item dom.Node) (string, error) {
	tag, err := item.Tag()
	if err != nil {
		return "", err
	}
	if tag == "a" {
		href, err := item.Attr("href")
		if err != nil {
			return "", err
		}
		if usableHref(href) {
			return strings.TrimSpace(href), nil
		}
	}
	return firstValue(item, LinkSelectors, usableHref)
}

func extractThumbnail(item dom.Node) (string, error) {
	return firstValue(item, ThumbnailSelectors, usableImage)
}

func extractName(item dom.Node) (string, error) {
	return firstValue(item, NameSelectors, nonEmpty)
}

// extractPrice returns the first price element whose text carries digits.
func extractPrice(item dom.Node) (*int, error) {
	for _, sel := range PriceSelectors {
		nodes, err := item.QueryAll(sel)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			text, err := n.Text()
			if err != nil {
				return nil, err
			}
			if price, ok := ParsePrice(text); ok {
				return &price, nil
			}
		}
	}
	return nil, nil
}

func isSoldOut(item dom.Node) (bool, error) {
	for _, sel := range SoldOutClassSelectors {
		nodes, err := item.QueryAll(sel)
		if err != nil {
			return false, err
		}
		if len(nodes) > 0 {
			return true, nil
		}
	}

	imgs, err := item.QueryAll("img[alt]")
	if err != nil {
		return false, err
	}
	for _, img := range imgs {
		alt, err := img.Attr("alt")
		if err != nil {
			return false, err
		}
		if containsAny(strings.ToLower(alt), SoldOutAltMarkers) {
			return true, nil
		}
	}
	return false, nil
}
