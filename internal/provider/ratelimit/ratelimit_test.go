package ratelimit_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketbridge/internal/provider"
	"marketbridge/internal/provider/ratelimit"
	"marketbridge/internal/series"
)

type countingProvider struct{ calls atomic.Int32 }

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) Fetch(_ context.Context, req provider.Request) provider.Result {
	c.calls.Add(1)
	return provider.Success(req, series.Empty(req.Symbol))
}

func TestTokenBucket_BurstThenBlock(t *testing.T) {
	t.Parallel()

	// Arrange: two tokens, effectively no refill
	tb := ratelimit.NewTokenBucket(0.001, 2)

	// Act + Assert: the burst passes immediately
	require.NoError(t, tb.Wait(t.Context()))
	require.NoError(t, tb.Wait(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, tb.Wait(ctx), context.DeadlineExceeded)
}

func TestTokenBucket_AbandonedWaitReturnsToken(t *testing.T) {
	t.Parallel()

	// Arrange: ten tokens a second, the single burst token spent
	tb := ratelimit.NewTokenBucket(10, 1)
	require.NoError(t, tb.Wait(t.Context()))

	canceled, cancel := context.WithCancel(t.Context())
	cancel()
	for range 5 {
		require.ErrorIs(t, tb.Wait(canceled), context.Canceled)
	}

	// Act
	start := time.Now()
	require.NoError(t, tb.Wait(t.Context()))

	// Assert: only one refill interval, not six
	require.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestMinInterval_SpacesCalls(t *testing.T) {
	t.Parallel()

	m := &ratelimit.MinInterval{Interval: 30 * time.Millisecond}

	start := time.Now()
	require.NoError(t, m.Wait(t.Context()))
	require.NoError(t, m.Wait(t.Context()))
	require.NoError(t, m.Wait(t.Context()))

	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestProvider_CanceledWaitIsTransient(t *testing.T) {
	t.Parallel()

	// Arrange: the only token is spent up front
	inner := &countingProvider{}
	tb := ratelimit.NewTokenBucket(0.001, 1)
	require.NoError(t, tb.Wait(t.Context()))
	p := ratelimit.Wrap(inner, tb)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	// Act
	res := p.Fetch(ctx, provider.Request{Provider: "counting", Symbol: "X"})

	// Assert
	require.False(t, res.OK())
	require.Equal(t, provider.Transient, res.Err.Kind)
	require.Equal(t, "X", res.Err.Symbol)
	require.Zero(t, inner.calls.Load())
	require.Equal(t, "counting", p.Name())
}

func TestProvider_PassesThrough(t *testing.T) {
	t.Parallel()

	inner := &countingProvider{}
	p := ratelimit.Wrap(inner, ratelimit.FromConfig(0, 600, 5))

	for range 3 {
		require.True(t, p.Fetch(t.Context(), provider.Request{Provider: "counting", Symbol: "X"}).OK())
	}
	require.EqualValues(t, 3, inner.calls.Load())
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	require.Nil(t, ratelimit.FromConfig(0, 0, 0))
	require.IsType(t, &ratelimit.MinInterval{}, ratelimit.FromConfig(1, 0, 0))
	require.IsType(t, &ratelimit.TokenBucket{}, ratelimit.FromConfig(0, 60, 1))
	require.IsType(t, ratelimit.Chain{}, ratelimit.FromConfig(1, 60, 1))

	inner := &countingProvider{}
	require.Same(t, provider.Provider(inner), ratelimit.Wrap(inner, nil))
}
