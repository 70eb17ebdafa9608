// Package urlnorm rewrites the URL shapes found on storefront pages into one
// absolute canonical form.
package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL          = errors.New("empty url")
	ErrInvalidBase       = errors.New("base url must be absolute")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// maxUnwrap bounds how many nested image-proxy wrappers are peeled off.
const maxUnwrap = 3

// Normalize turns rawURL into an absolute http(s) URL relative to base.
//
// Proxy-wrapped image URLs (a "url" query parameter carrying the real asset,
// as image optimizers emit) are unwrapped first. Protocol-relative URLs get
// https. Everything else that is not absolute is resolved against base.
// Duplicate path separators are collapsed and a leading path segment that
// repeats the URL's own host is removed. Normalize is idempotent.
func Normalize(rawURL, base string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrEmptyURL
	}

	baseURL, err := ParseAbsolute(base)
	if err != nil {
		return "", err
	}

	for i := 0; i < maxUnwrap; i++ {
		inner, ok := unwrapProxy(rawURL)
		if !ok {
			break
		}
		rawURL = inner
	}

	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", rawURL, err)
	}
	if !u.IsAbs() {
		u = baseURL.ResolveReference(u)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	escaped := stripHostSegments(collapseSlashes(u.EscapedPath()), u.Host)
	if escaped == "" && (u.RawQuery != "" || u.Fragment != "") {
		escaped = "/"
	}
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("failed to unescape path %q: %w", escaped, err)
	}
	u.Path = path
	u.RawPath = escaped

	return u.String(), nil
}

// ParseAbsolute parses raw and requires an http(s) scheme and a host.
func ParseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBase, raw)
	}
	return u, nil
}

// Origin returns scheme://host of an absolute URL.
func Origin(raw string) (string, error) {
	u, err := ParseAbsolute(raw)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}

// SameSite reports whether two hosts name the same site, ignoring a "www."
// prefix and letter case.
func SameSite(a, b string) bool {
	return trimWWW(a) == trimWWW(b)
}

func trimWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// unwrapProxy returns the decoded "url" query parameter when it carries
// something that looks like a URL.
func unwrapProxy(raw string) (string, bool) {
	if !strings.Contains(raw, "url=") {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	inner := strings.TrimSpace(u.Query().Get("url"))
	if inner == "" {
		return "", false
	}
	if strings.HasPrefix(inner, "http://") || strings.HasPrefix(inner, "https://") || strings.HasPrefix(inner, "/") {
		return inner, true
	}
	return "", false
}

func collapseSlashes(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// stripHostSegments removes leading path segments equal to host, which some
// misconfigured shops emit as https://host/host/img/a.jpg.
func stripHostSegments(path, host string) string {
	for {
		rest := strings.TrimPrefix(path, "/")
		segment, tail, _ := strings.Cut(rest, "/")
		if segment == "" || !SameSite(segment, host) {
			return path
		}
		path = "/" + tail
	}
}
