package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/maltedev/storefront-crawler/internal/extract"
	"github.com/playwright-community/playwright-go"
)

// Kind classifies why a crawl failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindTimeout
	KindConnectionRefused
	KindNameNotResolved
	KindNavigationAborted
	KindNoProductsFound
	KindExtraction
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTimeout:
		return "timeout"
	case KindConnectionRefused:
		return "connection_refused"
	case KindNameNotResolved:
		return "name_not_resolved"
	case KindNavigationAborted:
		return "navigation_aborted"
	case KindNoProductsFound:
		return "no_products_found"
	case KindExtraction:
		return "extraction"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt could succeed. Per-item
// extraction faults are handled inside the extractor and never retried.
func (k Kind) Retryable() bool {
	switch k {
	case KindInvalidInput, KindNoProductsFound, KindExtraction:
		return false
	default:
		return true
	}
}

// Error is a classified crawl failure.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the one-line text shown to users.
func (e *Error) Message() string {
	switch e.Kind {
	case KindInvalidInput:
		if e.Err != nil {
			return fmt.Sprintf("Invalid request: %v", e.Err)
		}
		return "Invalid request."
	case KindTimeout:
		return "The page took too long to load. Please try again later."
	case KindConnectionRefused:
		return "The site refused the connection. Check that the URL is correct."
	case KindNameNotResolved:
		return "The site address could not be resolved. Check that the URL is correct."
	case KindNavigationAborted:
		return "Loading the page was aborted. Please try again."
	case KindNoProductsFound:
		return "No products were found on the page."
	case KindExtraction:
		return "A product could not be read from the page."
	default:
		if e.Err != nil {
			return fmt.Sprintf("Crawling failed: %v", e.Err)
		}
		return "Crawling failed."
	}
}

var (
	ErrMissingURL  = errors.New("url and baseUrl are required")
	ErrNoProducts  = errors.New("no products found")
	errInvalidURL  = errors.New("invalid url")
	errInvalidBase = errors.New("invalid baseUrl")
)

// Classify wraps err into an *Error, keeping an existing classification.
func Classify(err error, url string) *Error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	var itemErr *extract.ItemError
	switch {
	case errors.As(err, &itemErr):
		return &Error{Kind: KindExtraction, URL: url, Err: err}
	case errors.Is(err, playwright.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "ERR_CONNECTION_TIMED_OUT"), strings.Contains(msg, "TimeoutError"), strings.Contains(msg, "Timeout "):
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	case strings.Contains(msg, "ERR_CONNECTION_REFUSED"):
		return &Error{Kind: KindConnectionRefused, URL: url, Err: err}
	case strings.Contains(msg, "ERR_NAME_NOT_RESOLVED"):
		return &Error{Kind: KindNameNotResolved, URL: url, Err: err}
	case strings.Contains(msg, "ERR_ABORTED"):
		return &Error{Kind: KindNavigationAborted, URL: url, Err: err}
	}

	return &Error{Kind: KindUnknown, URL: url, Err: err}
}

// KindOf returns the kind of err, or KindUnknown when it is not classified.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
