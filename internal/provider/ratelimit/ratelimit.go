// Package ratelimit gates calls to a provider. A canceled wait is reported as
// a Transient failure result, not an error.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"marketbridge/internal/provider"
)

// Limiter blocks until the next call may proceed.
type Limiter interface {
	Wait(ctx context.Context) error
}

// MinInterval enforces a minimum time between call starts. Concurrent callers
// are queued one Interval apart, or return early if the context is canceled.
type MinInterval struct {
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	now := time.Now()
	slot := m.next
	if slot.Before(now) {
		slot = now
	}
	m.next = slot.Add(m.Interval)
	m.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Provider wraps a provider and gates every Fetch through L. One Limiter may be
// shared by several wrapped providers that hit the same upstream.
type Provider struct {
	P provider.Provider
	L Limiter
}

// Wrap returns p gated by l, or p itself when l is nil.
func Wrap(p provider.Provider, l Limiter) provider.Provider {
	if l == nil {
		return p
	}
	return &Provider{P: p, L: l}
}

func (p *Provider) Name() string { return p.P.Name() }

func (p *Provider) Fetch(ctx context.Context, req provider.Request) provider.Result {
	if p.L != nil {
		if err := p.L.Wait(ctx); err != nil {
			return provider.Failure(req, err)
		}
	}
	return p.P.Fetch(ctx, req)
}

// Chain waits on every limiter in order.
type Chain []Limiter

func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// FromConfig builds the limiter for a provider configured with a minimum
// interval and/or a requests-per-minute budget. It returns nil when neither is set.
func FromConfig(minIntervalSec, maxRequestsPerMinute, burst int) Limiter {
	var chain Chain
	if minIntervalSec > 0 {
		chain = append(chain, &MinInterval{Interval: time.Duration(minIntervalSec) * time.Second})
	}
	if maxRequestsPerMinute > 0 {
		chain = append(chain, NewTokenBucket(float64(maxRequestsPerMinute)/60.0, burst))
	}
	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	default:
		return chain
	}
}
