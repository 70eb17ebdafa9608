package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maltedev/storefront-crawler/internal/extract"
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"Driver timeout", fmt.Errorf("goto: %w", playwright.ErrTimeout), KindTimeout},
		{"Deadline", context.DeadlineExceeded, KindTimeout},
		{"Timeout text", errors.New("Timeout 30000ms exceeded."), KindTimeout},
		{"Connection timed out", errors.New("net::ERR_CONNECTION_TIMED_OUT at https://x"), KindTimeout},
		{"Refused", errors.New("net::ERR_CONNECTION_REFUSED at https://x"), KindConnectionRefused},
		{"DNS", errors.New("net::ERR_NAME_NOT_RESOLVED at https://x"), KindNameNotResolved},
		{"Aborted", errors.New("net::ERR_ABORTED at https://x"), KindNavigationAborted},
		{"Item", &extract.ItemError{Index: 2, Err: errors.New("boom")}, KindExtraction},
		{"Other", errors.New("target closed"), KindUnknown},
		{"Already classified", &Error{Kind: KindNoProductsFound}, KindNoProductsFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err, "https://shop.example.com")
			assert.Equal(t, tt.kind, ce.Kind)
		})
	}

	assert.Nil(t, Classify(nil, ""))
}

func TestKindRetryable(t *testing.T) {
	assert.False(t, KindInvalidInput.Retryable())
	assert.False(t, KindNoProductsFound.Retryable())
	assert.False(t, KindExtraction.Retryable())
	assert.True(t, KindTimeout.Retryable())
	assert.True(t, KindConnectionRefused.Retryable())
	assert.True(t, KindNameNotResolved.Retryable())
	assert.True(t, KindNavigationAborted.Retryable())
	assert.True(t, KindUnknown.Retryable())
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Kind: KindUnknown, Err: errors.New("target closed")}
	assert.Contains(t, e.Message(), "target closed")

	e = &Error{Kind: KindNoProductsFound, Err: ErrNoProducts}
	assert.Equal(t, "No products were found on the page.", e.Message())
	assert.ErrorIs(t, e, ErrNoProducts)
}

func TestBackoff(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 4, p.Attempts())
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
}

func TestRetryStopsOnTerminalError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		expKind Kind
	}{
		{"Invalid input", &Error{Kind: KindInvalidInput}, KindInvalidInput},
		{"No products", &Error{Kind: KindNoProductsFound, Err: ErrNoProducts}, KindNoProductsFound},
		{"Item fault", &extract.ItemError{Index: 0, Err: errors.New("detached")}, KindExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Retry(context.Background(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, "u", discardLogger(),
				func(ctx context.Context, attempt int) (int, error) {
					calls++
					return 0, tt.err
				})

			assert.Equal(t, tt.expKind, KindOf(err))
			assert.Equal(t, 1, calls)
		})
	}
}

func TestRetryReturnsValue(t *testing.T) {
	got, err := Retry(context.Background(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, "u", discardLogger(),
		func(ctx context.Context, attempt int) (int, error) {
			if attempt < 2 {
				return 0, errors.New("net::ERR_ABORTED")
			}
			return attempt, nil
		})

	assert.NoError(t, err)
	assert.Equal(t, 2, got)
}
