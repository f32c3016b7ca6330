package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-showroom/internal/resilience"
)

func TestCallRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	got, err := resilience.Call(context.Background(), resilience.Policy{
		BaseBackoff: time.Millisecond,
		MaxAttempts: 3,
	}, func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 3, attempts)
}

func TestCallReturnsLastError(t *testing.T) {
	boom := errors.New("boom")
	_, err := resilience.Call(context.Background(), resilience.Policy{
		BaseBackoff: time.Millisecond,
		MaxAttempts: 2,
	}, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestCallShortCircuitsWhenOpen(t *testing.T) {
	breaker := resilience.NewBreaker(1, 0.5, time.Minute).WithTarget("catalog-test")
	ctx := context.Background()
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	called := false
	_, err := resilience.Call(ctx, resilience.Policy{Breaker: breaker}, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.False(t, called)
}

func TestCallAppliesAttemptTimeout(t *testing.T) {
	_, err := resilience.Call(context.Background(), resilience.Policy{Timeout: 5 * time.Millisecond}, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
