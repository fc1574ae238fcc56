package apperr

import (
	"context"
	"slices"
	"time"
)

// RetryOptions configures WithRetry. Zero values take the defaults.
type RetryOptions struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	RetryableCodes []Code

	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
	// Sleep replaces the timer-based wait. It must return ctx.Err() when
	// the context ends first.
	Sleep func(ctx context.Context, d time.Duration) error
}

const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = time.Second
)

// DefaultRetryableCodes are the transient hosting-provider failures.
var DefaultRetryableCodes = []Code{GHRateLimit, GHNetwork}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	if o.RetryableCodes == nil {
		o.RetryableCodes = DefaultRetryableCodes
	}
	if o.Sleep == nil {
		o.Sleep = sleep
	}
	return o
}

// Delay returns the wait before the retry that follows the given 1-based
// attempt: BackoffBase * 2^(attempt-1).
func (o RetryOptions) Delay(attempt int) time.Duration {
	o = o.withDefaults()
	return o.BackoffBase * time.Duration(1<<uint(attempt-1))
}

// WithRetry wraps fn so that transient failures are retried with
// exponential backoff. Errors outside the taxonomy, codes not listed as
// retryable, and errors marked non-recoverable are returned immediately.
// After MaxAttempts tries the last error is returned.
func WithRetry[T any](opts RetryOptions, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	opts = opts.withDefaults()

	return func(ctx context.Context) (T, error) {
		var zero T
		for attempt := 1; ; attempt++ {
			v, err := fn(ctx)
			if err == nil {
				return v, nil
			}

			e, ok := As(err)
			if !ok || !e.Recoverable || !slices.Contains(opts.RetryableCodes, e.Code) {
				return zero, err
			}
			if attempt >= opts.MaxAttempts {
				return zero, err
			}

			delay := opts.Delay(attempt)
			if opts.OnRetry != nil {
				opts.OnRetry(attempt, delay, err)
			}
			if serr := opts.Sleep(ctx, delay); serr != nil {
				return zero, serr
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
