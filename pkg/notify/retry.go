package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// BackoffFunc returns a fresh backoff for each publish attempt sequence.
// go-retry backoffs are stateful and must not be shared between calls.
type BackoffFunc func() retry.Backoff

// ExponentialBackoff retries up to maxRetries times starting at base,
// capped at maxDelay when it is positive.
func ExponentialBackoff(base time.Duration, maxRetries int, maxDelay time.Duration) BackoffFunc {
	return func() retry.Backoff {
		b := retry.NewExponential(max(base, time.Millisecond))
		if maxDelay > 0 {
			b = retry.WithCappedDuration(maxDelay, b)
		}
		return retry.WithMaxRetries(uint64(max(maxRetries, 0)), b)
	}
}

// NoRetry performs a single attempt.
func NoRetry() BackoffFunc {
	return func() retry.Backoff {
		return retry.WithMaxRetries(0, retry.NewConstant(time.Millisecond))
	}
}

// WithRetry wraps next so transient failures are retried before Publish
// returns. Errors marked Permanent are returned immediately.
func WithRetry(next Publisher, backoff BackoffFunc) Publisher {
	if next == nil {
		panic("notify: nil publisher")
	}
	if backoff == nil {
		backoff = NoRetry()
	}
	return PublisherFunc(func(ctx context.Context, n Notification) error {
		return doWithRetry(ctx, backoff, func(ctx context.Context) error {
			return next.Publish(ctx, n)
		})
	})
}

func doWithRetry(ctx context.Context, backoff BackoffFunc, fn func(context.Context) error) error {
	err := retry.Do(ctx, backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || IsPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil && !errors.Is(err, ErrPublishFailed) {
		return errors.Join(ErrPublishFailed, err)
	}
	return err
}
