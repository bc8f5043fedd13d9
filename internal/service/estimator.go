package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// estimateLimitKey is the shared sliding-window key for all outbound
// estimate calls; the bridge quota is global, not per session.
const estimateLimitKey = "ratelimit:bridge:estimate"

// LimitedEstimator wraps a BridgeEstimator with a distributed rate
// limit so concurrent sessions cannot exhaust the bridge API quota.
type LimitedEstimator struct {
	inner   domain.BridgeEstimator
	limiter domain.RateLimiter
	limit   int
	window  time.Duration
	logger  *slog.Logger
}

// NewLimitedEstimator creates an estimator allowing at most limit calls
// per window across the whole deployment.
func NewLimitedEstimator(inner domain.BridgeEstimator, limiter domain.RateLimiter, limit int, window time.Duration, logger *slog.Logger) *LimitedEstimator {
	return &LimitedEstimator{
		inner:   inner,
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  logger.With(slog.String("component", "limited_estimator")),
	}
}

// EstimateOutput checks the sliding window before delegating. A limiter
// backend error fails open: an unavailable limiter must not take quote
// estimation down with it.
func (e *LimitedEstimator) EstimateOutput(ctx context.Context, req domain.EstimateRequest) (float64, error) {
	allowed, err := e.limiter.Allow(ctx, estimateLimitKey, e.limit, e.window)
	if err != nil {
		e.logger.WarnContext(ctx, "rate limiter unavailable, allowing request",
			slog.String("error", err.Error()),
		)
	} else if !allowed {
		return 0, domain.ErrRateLimited
	}

	return e.inner.EstimateOutput(ctx, req)
}

// Compile-time interface check.
var _ domain.BridgeEstimator = (*LimitedEstimator)(nil)
