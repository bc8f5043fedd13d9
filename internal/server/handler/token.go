package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// TokenService lists the bridged assets usable as funding sources.
type TokenService interface {
	Tokens(ctx context.Context) (map[string][]domain.BridgeToken, error)
}

// TokenHandler serves the funding-token listing endpoint.
type TokenHandler struct {
	tokens TokenService
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler with the given service and logger.
func NewTokenHandler(tokens TokenService, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		tokens: tokens,
		logger: logger,
	}
}

// ListTokens returns the bridged funding assets grouped by source network.
// GET /api/tokens
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokens.Tokens(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			writeError(w, http.StatusTooManyRequests, "bridge API rate limited")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: list tokens failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"networks": tokens})
}
