package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errThrottled = errors.New("throttled")

func isThrottled(err error) bool { return errors.Is(err, errThrottled) }

func TestLinear(t *testing.T) {
	b := Linear(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, b(1))
	assert.Equal(t, 200*time.Millisecond, b(2))
	assert.Equal(t, 300*time.Millisecond, b(3))
}

func TestDo(t *testing.T) {
	policy := Policy{MaxRetries: 3, Backoff: Static(time.Millisecond), Retryable: isThrottled}

	t.Run("succeeds after retryable failures within budget", func(t *testing.T) {
		calls := 0
		got, err := Do(context.Background(), policy, func(context.Context) (string, error) {
			calls++
			if calls <= 3 {
				return "", errThrottled
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 4, calls)
	})

	t.Run("non-retryable error is returned at once", func(t *testing.T) {
		boom := errors.New("bad request")
		calls := 0
		_, err := Do(context.Background(), policy, func(context.Context) (int, error) {
			calls++
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted budget returns the last error", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), policy, func(context.Context) (int, error) {
			calls++
			return 0, errThrottled
		})
		assert.ErrorIs(t, err, errThrottled)
		assert.Equal(t, 4, calls)
	})

	t.Run("reports each wait", func(t *testing.T) {
		var waits []time.Duration
		p := Policy{
			MaxRetries: 2,
			Backoff:    Linear(time.Millisecond),
			Retryable:  isThrottled,
			OnRetry:    func(n int, wait time.Duration, err error) { waits = append(waits, wait) },
		}
		_, _ = Do(context.Background(), p, func(context.Context) (int, error) { return 0, errThrottled })
		assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := Policy{MaxRetries: 5, Backoff: Static(time.Hour), Retryable: isThrottled}
		calls := 0
		_, err := Do(ctx, p, func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, errThrottled
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
