package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/maltedev/storefront-crawler/internal/dom"
	"github.com/maltedev/storefront-crawler/internal/urlnorm"
)

// IsListingURL reports whether rawURL already points at a product list.
func IsListingURL(rawURL string) bool {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	return containsAny(strings.ToLower(path), ListingPathMarkers)
}

// ResolveListingURL looks for a link from a landing page to a product list.
// It is a no-op for seeds that are already listings. Candidates are anchors
// whose href mentions a category or list page; the first category link wins,
// otherwise the longest href. found is false when nothing qualifies.
func ResolveListingURL(doc dom.Node, seedURL, baseURL string) (target string, found bool, err error) {
	if IsListingURL(seedURL) {
		return "", false, nil
	}

	anchors, err := doc.QueryAll("a[href]")
	if err != nil {
		return "", false, fmt.Errorf("failed to query links: %w", err)
	}

	var longest string
	for _, a := range anchors {
		href, err := a.Attr("href")
		if err != nil {
			continue
		}
		href = strings.TrimSpace(href)
		if !usableHref(href) || strings.Contains(href, "#") {
			continue
		}
		if !containsAny(href, listingLinkMarkers) {
			continue
		}
		if containsAny(href, CategoryMarkers) {
			return normalizeTarget(href, baseURL)
		}
		if len(href) > len(longest) {
			longest = href
		}
	}

	if longest == "" {
		return "", false, nil
	}
	return normalizeTarget(longest, baseURL)
}

func normalizeTarget(href, baseURL string) (string, bool, error) {
	target, err := urlnorm.Normalize(href, baseURL)
	if err != nil {
		return "", false, nil
	}
	return target, true, nil
}
