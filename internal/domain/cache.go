package domain

import (
	"context"
	"time"
)

// MarketSnapshot pairs a market's immutable params with its latest state.
type MarketSnapshot struct {
	Params MarketParams `json:"params"`
	State  MarketState  `json:"state"`
}

// MarketCache provides fast market snapshot lookups keyed by AA address.
type MarketCache interface {
	Set(ctx context.Context, snap MarketSnapshot) error
	Get(ctx context.Context, address string) (MarketSnapshot, error)
	SetState(ctx context.Context, address string, state MarketState) error
	Invalidate(ctx context.Context, address string) error
}

// RateLimiter provides distributed rate limiting, used to keep estimate
// traffic to the bridge collaborator within its quota.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
