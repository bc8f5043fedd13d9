package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// QuoteService defines the session operations the handler requires from
// the service layer.
type QuoteService interface {
	CreateSession(ctx context.Context, market string) (domain.Quote, error)
	CloseSession(id string)
	SetAmount(ctx context.Context, id, raw string) (domain.Quote, error)
	SelectFunding(ctx context.Context, id string, sel domain.FundingSelection) (domain.Quote, error)
	SetProbability(id string, outcome domain.Outcome, raw string) (domain.Quote, error)
	Quote(id string) (domain.Quote, error)
	BuildPayload(ctx context.Context, id string) (domain.LiquidityPayload, string, error)
	ComposeTransfer(ctx context.Context, id string) (domain.BridgeTransfer, error)
}

// SessionHandler serves the pricing-session HTTP endpoints.
type SessionHandler struct {
	quotes QuoteService
	logger *slog.Logger
}

// NewSessionHandler creates a SessionHandler with the given service and logger.
func NewSessionHandler(quotes QuoteService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		quotes: quotes,
		logger: logger,
	}
}

// createSessionRequest is the body of POST /api/sessions.
type createSessionRequest struct {
	Market string `json:"market"`
}

// CreateSession opens a new pricing session against a market.
// POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Market == "" {
		writeError(w, http.StatusBadRequest, "missing market")
		return
	}

	q, err := h.quotes.CreateSession(r.Context(), req.Market)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create session failed",
			slog.String("market", req.Market),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, q)
}

// CloseSession removes a pricing session.
// DELETE /api/sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	h.quotes.CloseSession(id)
	w.WriteHeader(http.StatusNoContent)
}

// setAmountRequest is the body of PUT /api/sessions/{id}/amount.
type setAmountRequest struct {
	Amount string `json:"amount"`
}

// SetAmount applies a funding-amount edit and returns the fresh quote.
// PUT /api/sessions/{id}/amount
func (h *SessionHandler) SetAmount(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req setAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := h.quotes.SetAmount(r.Context(), id, req.Amount)
	if err != nil {
		h.writeSessionError(w, r, id, "set amount", err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// selectFundingRequest is the body of PUT /api/sessions/{id}/funding.
type selectFundingRequest struct {
	Network      string `json:"network"`
	Asset        string `json:"asset"`
	Decimals     int    `json:"decimals"`
	Symbol       string `json:"symbol"`
	ForeignAsset string `json:"foreign_asset"`
}

// SelectFunding switches the funding asset and returns the fresh quote.
// PUT /api/sessions/{id}/funding
func (h *SessionHandler) SelectFunding(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req selectFundingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Network == "" || req.Asset == "" {
		writeError(w, http.StatusBadRequest, "missing funding network or asset")
		return
	}

	q, err := h.quotes.SelectFunding(r.Context(), id, domain.FundingSelection{
		Network:      req.Network,
		Asset:        req.Asset,
		Decimals:     req.Decimals,
		Symbol:       req.Symbol,
		ForeignAsset: req.ForeignAsset,
	})
	if err != nil {
		h.writeSessionError(w, r, id, "select funding", err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// setProbabilityRequest is the body of PUT /api/sessions/{id}/probability.
type setProbabilityRequest struct {
	Outcome string `json:"outcome"` // "yes" or "no"
	Value   string `json:"value"`   // percentage text as typed
}

// SetProbability applies a probability edit and returns the fresh quote.
// PUT /api/sessions/{id}/probability
func (h *SessionHandler) SetProbability(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req setProbabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome := domain.Outcome(req.Outcome)
	if outcome != domain.OutcomeYes && outcome != domain.OutcomeNo {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	q, err := h.quotes.SetProbability(id, outcome, req.Value)
	if err != nil {
		h.writeSessionError(w, r, id, "set probability", err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// GetQuote returns the session's current quote.
// GET /api/sessions/{id}/quote
func (h *SessionHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	q, err := h.quotes.Quote(id)
	if err != nil {
		h.writeSessionError(w, r, id, "get quote", err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// payloadResponse is the body returned by POST /api/sessions/{id}/payload.
type payloadResponse struct {
	Payload    domain.LiquidityPayload `json:"payload"`
	PaymentURI string                  `json:"payment_uri"`
}

// BuildPayload produces the on-chain payload for a submittable session.
// POST /api/sessions/{id}/payload
func (h *SessionHandler) BuildPayload(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	payload, uri, err := h.quotes.BuildPayload(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotSubmittable) {
			writeError(w, http.StatusConflict, "quote not submittable")
			return
		}
		h.writeSessionError(w, r, id, "build payload", err)
		return
	}

	writeJSON(w, http.StatusOK, payloadResponse{Payload: payload, PaymentURI: uri})
}

// ComposeTransfer returns the source-chain wallet transaction bridging
// the session's funding amount. Only valid for foreign EVM funding.
// GET /api/sessions/{id}/transfer
func (h *SessionHandler) ComposeTransfer(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	t, err := h.quotes.ComposeTransfer(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoBridge):
			writeError(w, http.StatusBadRequest, "funding needs no bridge transfer")
		case errors.Is(err, domain.ErrWalletNotSet):
			writeError(w, http.StatusServiceUnavailable, "funding wallet not configured")
		case errors.Is(err, domain.ErrNotSubmittable):
			writeError(w, http.StatusConflict, "no valid funding amount")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		default:
			h.writeSessionError(w, r, id, "compose transfer", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// writeSessionError maps service errors to HTTP responses for the
// session routes.
func (h *SessionHandler) writeSessionError(w http.ResponseWriter, r *http.Request, id, op string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	h.logger.ErrorContext(r.Context(), "handler: "+op+" failed",
		slog.String("session_id", id),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to "+op)
}
