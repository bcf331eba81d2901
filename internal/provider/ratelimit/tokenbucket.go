package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket spends a requests-per-minute budget with bursts. Each Wait
// reserves a token up front, letting the balance go negative; the caller then
// sleeps until its token has been refilled. A caller that gives up returns
// its token.
type TokenBucket struct {
	rate     float64 // tokens per second
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewTokenBucket starts full so the first burst calls pass immediately.
func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 1e-7
	}
	burst = max(burst, 1)
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// reserve takes one token and returns how long until it is backed by refill.
func (tb *TokenBucket) reserve() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens = min(tb.capacity, tb.tokens+now.Sub(tb.last).Seconds()*tb.rate)
	tb.last = now
	tb.tokens--
	if tb.tokens >= 0 {
		return 0
	}
	return time.Duration(-tb.tokens / tb.rate * float64(time.Second))
}

func (tb *TokenBucket) cancel() {
	tb.mu.Lock()
	tb.tokens = min(tb.capacity, tb.tokens+1)
	tb.mu.Unlock()
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	wait := tb.reserve()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		tb.cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
