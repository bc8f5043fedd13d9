package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prophetmarkets/liquidityd/internal/domain"
	"github.com/prophetmarkets/liquidityd/internal/server/handler"
	"github.com/prophetmarkets/liquidityd/internal/server/middleware"
	"github.com/prophetmarkets/liquidityd/internal/server/ws"
)

// apiRateLimit caps requests per client IP within apiRateWindow.
const (
	apiRateLimit  = 120
	apiRateWindow = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Markets  *handler.MarketHandler
	Sessions *handler.SessionHandler
	Tokens   *handler.TokenHandler
}

// Server is the headless HTTP + WebSocket API for the pricing engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the
// ServeMux. It wires up middleware (logging, CORS, auth, optional
// per-IP rate limiting) and attaches the WebSocket hub. limiter may be
// nil, in which case API rate limiting is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets/{address}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{address}/quotes", handlers.Markets.ListQuotes)

	// Funding token listing.
	mux.HandleFunc("GET /api/tokens", handlers.Tokens.ListTokens)

	// Pricing session endpoints.
	mux.HandleFunc("POST /api/sessions", handlers.Sessions.CreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", handlers.Sessions.CloseSession)
	mux.HandleFunc("PUT /api/sessions/{id}/amount", handlers.Sessions.SetAmount)
	mux.HandleFunc("PUT /api/sessions/{id}/funding", handlers.Sessions.SelectFunding)
	mux.HandleFunc("PUT /api/sessions/{id}/probability", handlers.Sessions.SetProbability)
	mux.HandleFunc("GET /api/sessions/{id}/quote", handlers.Sessions.GetQuote)
	mux.HandleFunc("POST /api/sessions/{id}/payload", handlers.Sessions.BuildPayload)
	mux.HandleFunc("GET /api/sessions/{id}/transfer", handlers.Sessions.ComposeTransfer)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)

	if limiter != nil {
		h = middleware.RateLimit(limiter, apiRateLimit, apiRateWindow)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
