package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prophetmarkets/liquidityd/internal/domain"
	"github.com/prophetmarkets/liquidityd/internal/retention"
	"github.com/prophetmarkets/liquidityd/internal/server"
	"github.com/prophetmarkets/liquidityd/internal/server/handler"
	"github.com/prophetmarkets/liquidityd/internal/server/ws"
	"github.com/prophetmarkets/liquidityd/internal/service"
)

// estimateWindow is the sliding window for the bridge estimate limit;
// the configured estimate_rate_limit is per minute.
const estimateWindow = time.Minute

// core bundles the long-lived service objects shared by all modes.
type core struct {
	markets *service.MarketService
	quotes  *service.QuoteService
	hub     *ws.Hub
}

// startCore builds the pricing services, connects the live state
// subscription, and starts the hub and session-eviction goroutines.
func (a *App) startCore(ctx context.Context, g *errgroup.Group, deps *Dependencies) *core {
	marketSvc := service.NewMarketService(deps.Hub, deps.MarketCache, a.logger)

	estimator := service.NewLimitedEstimator(
		deps.Bridge, deps.RateLimiter,
		a.cfg.Session.EstimateRateLimit, estimateWindow,
		a.logger,
	)

	quoteSvc := service.NewQuoteService(
		marketSvc, estimator, deps.Bridge,
		deps.QuoteStore, deps.AuditStore, deps.Notifier,
		a.cfg.Wallet.HomeAddress,
		a.cfg.Session.IdleTimeout.Duration,
		a.logger,
	)

	if deps.Sender != nil {
		quoteSvc.UseSender(deps.Sender)
	}

	hub := ws.NewHub(a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	quoteSvc.OnQuote(hub.BroadcastQuote)

	// Live state subscription: fan merged snapshots into the sessions
	// and out to WebSocket clients; retarget it as sessions are opened.
	deps.Subscriber.OnState(func(address string, state domain.MarketState) {
		quoteSvc.HandleStateUpdate(address, state)
		hub.BroadcastState(address, state)
	})
	quoteSvc.OnSessionCreated(deps.Subscriber.Track)

	if err := deps.Subscriber.Connect(ctx); err != nil {
		a.logger.WarnContext(ctx, "hub websocket unavailable, pricing from cached snapshots",
			slog.String("error", err.Error()),
		)
	}

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return quoteSvc.Run(ctx)
	})

	return &core{markets: marketSvc, quotes: quoteSvc, hub: hub}
}

// startHTTPServer adds the HTTP server goroutines to the given errgroup.
// The server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, c *core) {
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.cfg.Mode, time.Now().UTC()),
		Markets:  handler.NewMarketHandler(c.markets, c.quotes, a.logger),
		Sessions: handler.NewSessionHandler(c.quotes, a.logger),
		Tokens:   handler.NewTokenHandler(c.quotes, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.ApiKey,
	}, handlers, c.hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// ServerMode runs the pricing API: sessions, quotes, payload persistence,
// and the WebSocket push channel.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	c := a.startCore(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, c)

	return g.Wait()
}

// MonitorMode runs the read-only variant: live quotes and state pushes
// without quote persistence; payloads are produced but not recorded.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	c := a.startCore(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, c)

	return g.Wait()
}

// FullMode runs the pricing API plus the quote retention worker.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	c := a.startCore(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, c)

	if deps.Archiver != nil {
		worker := retention.NewWorker(deps.Archiver, a.cfg.Session.QuoteRetentionDays, a.logger)
		cron := a.cfg.Session.ArchiveCron
		g.Go(func() error {
			err := worker.RunCron(ctx, cron)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	} else {
		a.logger.WarnContext(ctx, "retention disabled: archiver not wired")
	}

	return g.Wait()
}
