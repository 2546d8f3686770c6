package retry

import (
	"context"
	"time"
)

// Backoff returns how long to wait before the n-th retry (n starts at 1).
type Backoff func(n int) time.Duration

// Linear waits n*base before the n-th retry.
func Linear(base time.Duration) Backoff {
	return func(n int) time.Duration {
		return time.Duration(n) * base
	}
}

// Static waits the same interval before every retry.
func Static(interval time.Duration) Backoff {
	return func(int) time.Duration { return interval }
}

// Policy decides which errors are retried, how often, and how long to wait.
//
// MaxRetries counts retries after the first call, so f runs at most
// MaxRetries+1 times.
type Policy struct {
	MaxRetries int
	Backoff    Backoff
	Retryable  func(error) bool

	// OnRetry, when set, is called before each wait.
	OnRetry func(n int, wait time.Duration, err error)
}

// Do calls f until it succeeds, returns an error the policy does not retry,
// or the retry budget is spent. In the last case the last error is returned.
// Waiting honours ctx; a cancelled context ends the loop with ctx.Err().
func Do[T any](ctx context.Context, p Policy, f func(context.Context) (T, error)) (T, error) {
	var zero T
	for n := 0; ; n++ {
		v, err := f(ctx)
		if err == nil {
			return v, nil
		}
		if n >= p.MaxRetries || p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}

		wait := time.Duration(0)
		if p.Backoff != nil {
			wait = p.Backoff(n + 1)
		}
		if p.OnRetry != nil {
			p.OnRetry(n+1, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
