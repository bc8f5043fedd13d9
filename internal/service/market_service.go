package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// MarketService resolves market snapshots, checking the cache first and
// falling back to the home-chain hub on a miss.
type MarketService struct {
	source domain.MarketSource
	cache  domain.MarketCache
	logger *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(source domain.MarketSource, cache domain.MarketCache, logger *slog.Logger) *MarketService {
	return &MarketService{
		source: source,
		cache:  cache,
		logger: logger.With(slog.String("component", "market_service")),
	}
}

// GetMarket retrieves the params and current state of a market AA.
func (s *MarketService) GetMarket(ctx context.Context, address string) (domain.MarketSnapshot, error) {
	snap, err := s.cache.Get(ctx, address)
	if err == nil {
		return snap, nil
	}

	// Cache miss or error -- fall through to the hub.
	params, err := s.source.MarketParams(ctx, address)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("market_service: params %q: %w", address, err)
	}
	state, err := s.source.MarketState(ctx, address)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("market_service: state %q: %w", address, err)
	}

	snap = domain.MarketSnapshot{Params: params, State: state}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, snap); cacheErr != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("market", address),
			slog.String("error", cacheErr.Error()),
		)
	}

	return snap, nil
}

// RefreshState overwrites the cached state of a market after a live
// state-var update. Missing cache entries are non-fatal; the next
// GetMarket fetches a full snapshot anyway.
func (s *MarketService) RefreshState(ctx context.Context, address string, state domain.MarketState) {
	if err := s.cache.SetState(ctx, address, state); err != nil {
		s.logger.DebugContext(ctx, "cache state refresh skipped",
			slog.String("market", address),
			slog.String("error", err.Error()),
		)
	}
}
