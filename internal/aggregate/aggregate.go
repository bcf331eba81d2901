// Package aggregate fans series requests out to providers and collects the
// results in request order. One failing symbol never affects another.
package aggregate

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"marketbridge/internal/analytics"
	"marketbridge/internal/provider"
	"marketbridge/internal/provider/cache"
)

// Aggregator routes requests to providers by name. Retries of transient
// failures happen here, never inside a provider.
type Aggregator struct {
	Providers map[string]provider.Provider
	// Cache is optional; only successful results are stored.
	Cache cache.Cache
	// MaxConcurrency bounds in-flight fetches in FetchMany. 0 means unbounded.
	MaxConcurrency int
	// Attempts is the total number of tries for a Transient failure (min 1).
	Attempts int
	// Backoff is the wait before the second attempt; it doubles afterwards.
	Backoff time.Duration
	// Timeout bounds each attempt. 0 means only the caller's context applies.
	Timeout time.Duration
	// Summaries adds a performance summary to every successful entry.
	Summaries bool

	sf singleflight.Group
}

// New returns an Aggregator with providers registered under their names.
func New(providers ...provider.Provider) *Aggregator {
	a := &Aggregator{Providers: make(map[string]provider.Provider, len(providers))}
	for _, p := range providers {
		a.Register(p)
	}
	return a
}

// Register adds p under p.Name(), replacing any provider of the same name.
func (a *Aggregator) Register(p provider.Provider) {
	if a.Providers == nil {
		a.Providers = make(map[string]provider.Provider)
	}
	a.Providers[p.Name()] = p
}

// Fetch runs one request through cache, coalescing and retry.
func (a *Aggregator) Fetch(ctx context.Context, req provider.Request) provider.Result {
	req.Symbol = strings.TrimSpace(req.Symbol)
	if err := req.Validate(); err != nil {
		return provider.Failure(req, err)
	}
	p, ok := a.Providers[req.Provider]
	if !ok {
		return provider.Failure(req, provider.Errorf(provider.Unknown, "unknown provider %q", req.Provider))
	}

	if err := ctx.Err(); err != nil {
		return provider.Failure(req, err)
	}

	key := req.Key()
	if a.Cache != nil {
		if res, ok := a.Cache.Get(key); ok {
			res.Request = req
			return res
		}
	}

	// The shared fetch outlives any single caller; each caller waits on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := a.sf.DoChan(key, func() (any, error) {
		res := a.fetchWithRetry(shared, p, req)
		if a.Cache != nil && res.OK() {
			a.Cache.Set(key, res)
		}
		return res, nil
	})
	select {
	case <-ctx.Done():
		return provider.Failure(req, ctx.Err())
	case r := <-ch:
		res := r.Val.(provider.Result)
		res.Request = req
		return res
	}
}

func (a *Aggregator) fetchWithRetry(ctx context.Context, p provider.Provider, req provider.Request) provider.Result {
	attempts := max(a.Attempts, 1)
	backoff := a.Backoff

	for attempt := 1; ; attempt++ {
		res := a.fetchOnce(ctx, p, req)
		if res.OK() || res.Err.Kind != provider.Transient || attempt >= attempts || ctx.Err() != nil {
			if !res.OK() {
				log.WithFields(log.Fields{
					"provider": req.Provider,
					"symbol":   req.Symbol,
					"kind":     res.Err.Kind,
					"attempt":  attempt,
				}).Warn(res.Err.Message)
			}
			return res
		}

		log.WithFields(log.Fields{
			"provider": req.Provider,
			"symbol":   req.Symbol,
			"attempt":  attempt,
			"backoff":  backoff,
		}).Debug("transient failure, retrying")

		if backoff > 0 {
			t := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return res
			case <-t.C:
			}
			backoff *= 2
		}
	}
}

func (a *Aggregator) fetchOnce(ctx context.Context, p provider.Provider, req provider.Request) provider.Result {
	if a.Timeout <= 0 {
		return p.Fetch(ctx, req)
	}
	cctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	res := p.Fetch(cctx, req)
	if !res.OK() && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.Err.Kind = provider.Transient
	}
	return res
}

// FetchMany fetches every request concurrently and returns the entries in
// request order. A request repeated in the list keeps its first position and
// is fetched once.
func (a *Aggregator) FetchMany(ctx context.Context, reqs []provider.Request) MultiResult {
	unique := make([]provider.Request, 0, len(reqs))
	seen := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		r.Symbol = strings.TrimSpace(r.Symbol)
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, r)
	}

	entries := make([]Entry, len(unique))
	var g errgroup.Group
	if a.MaxConcurrency > 0 {
		g.SetLimit(a.MaxConcurrency)
	}
	for i, r := range unique {
		g.Go(func() error {
			entries[i] = a.entry(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	out := MultiResult{Entries: entries}
	if failed := len(out.Failures()); failed > 0 {
		log.WithFields(log.Fields{"requested": len(reqs), "failed": failed}).Info("fetch completed with failures")
	}
	return out
}

func (a *Aggregator) entry(ctx context.Context, req provider.Request) Entry {
	res := a.Fetch(ctx, req)
	e := Entry{Symbol: req.Symbol, Result: res}
	if a.Summaries && res.OK() {
		perf := analytics.Summarize(res.Series)
		e.Summary = &perf
	}
	return e
}
