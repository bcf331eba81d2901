package yahoo

import (
	"context"

	"marketbridge/internal/provider"
)

// Names under which the table-shaped operations are registered, so they can be
// routed, rate limited and cached like any other provider.
const (
	OHLCName            = "yahoo.ohlc"
	RecommendationsName = "yahoo.recommendations"
	ProfileName         = "yahoo.profile"
)

type op struct {
	name  string
	fetch func(context.Context, provider.Request) provider.Result
}

func (o op) Name() string { return o.name }

func (o op) Fetch(ctx context.Context, req provider.Request) provider.Result {
	return o.fetch(ctx, req)
}

// OHLC exposes FetchOHLC as a provider.Provider.
func (p *Provider) OHLC() provider.Provider { return op{OHLCName, p.FetchOHLC} }

// Recommendations exposes FetchRecommendations as a provider.Provider.
func (p *Provider) Recommendations() provider.Provider {
	return op{RecommendationsName, p.FetchRecommendations}
}

// Profile exposes FetchProfile as a provider.Provider.
func (p *Provider) Profile() provider.Provider { return op{ProfileName, p.FetchProfile} }
