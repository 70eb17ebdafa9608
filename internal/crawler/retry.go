package crawler

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds the attempts of one crawl. Attempt n (starting at 0)
// that fails with a retryable error waits Backoff(n) before attempt n+1,
// up to MaxRetries extra attempts.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

// Backoff returns 2^attempt * BaseDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// Attempts is the total number of tries the policy allows.
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

type state int

const (
	stateAttempting state = iota
	stateSuccess
	stateFailed
)

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are used up. The returned error is always an *Error.
func Retry[T any](ctx context.Context, policy RetryPolicy, url string, logger *slog.Logger, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var (
		result  T
		lastErr *Error
		attempt int
		st      = stateAttempting
	)

	for st == stateAttempting {
		if err := ctx.Err(); err != nil {
			return result, Classify(err, url)
		}

		out, err := fn(ctx, attempt)
		if err == nil {
			result = out
			st = stateSuccess
			break
		}

		lastErr = Classify(err, url)
		if !lastErr.Kind.Retryable() || attempt >= policy.MaxRetries {
			st = stateFailed
			break
		}

		delay := policy.Backoff(attempt)
		logger.Warn("crawl attempt failed, retrying",
			"url", url,
			"attempt", attempt+1,
			"kind", lastErr.Kind.String(),
			"delay", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, Classify(ctx.Err(), url)
		case <-timer.C:
		}
		attempt++
	}

	if st == stateFailed {
		return result, lastErr
	}
	return result, nil
}
