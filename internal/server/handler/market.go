package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// MarketService defines the methods the market handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type MarketService interface {
	GetMarket(ctx context.Context, address string) (domain.MarketSnapshot, error)
}

// QuoteLister lists persisted quote records for a market.
type QuoteLister interface {
	ListQuotes(ctx context.Context, market string, opts domain.ListOpts) ([]domain.QuoteRecord, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	quotes  QuoteLister
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given services and logger.
func NewMarketHandler(markets MarketService, quotes QuoteLister, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		quotes:  quotes,
		logger:  logger,
	}
}

// GetMarket returns the params and current state of a market AA.
// GET /api/markets/{address}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing market address")
		return
	}

	snap, err := h.markets.GetMarket(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("market", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// listQuotesResponse wraps the quote-list endpoint output with metadata.
type listQuotesResponse struct {
	Quotes []quoteRecordJSON `json:"quotes"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// quoteRecordJSON is the wire shape of one persisted quote record.
type quoteRecordJSON struct {
	ID             int64                   `json:"id"`
	SessionID      string                  `json:"session_id"`
	MarketAddress  string                  `json:"market_address"`
	FundingNetwork string                  `json:"funding_network"`
	FundingAsset   string                  `json:"funding_asset"`
	GrossAmount    int64                   `json:"gross_amount"`
	NetAmount      int64                   `json:"net_amount"`
	YesAmount      int64                   `json:"yes_amount"`
	NoAmount       int64                   `json:"no_amount"`
	DrawAmount     int64                   `json:"draw_amount"`
	Payload        domain.LiquidityPayload `json:"payload"`
	CreatedAt      string                  `json:"created_at"`
}

// ListQuotes returns the persisted quotes of a market with pagination.
// GET /api/markets/{address}/quotes?limit=50&offset=0&since=...&until=...
func (h *MarketHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing market address")
		return
	}

	opts := parseListOpts(r)

	records, err := h.quotes.ListQuotes(r.Context(), address, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list quotes failed",
			slog.String("market", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list quotes")
		return
	}

	out := make([]quoteRecordJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, quoteRecordJSON{
			ID:             rec.ID,
			SessionID:      rec.SessionID,
			MarketAddress:  rec.MarketAddress,
			FundingNetwork: rec.FundingNetwork,
			FundingAsset:   rec.FundingAsset,
			GrossAmount:    rec.GrossAmount,
			NetAmount:      rec.NetAmount,
			YesAmount:      rec.YesAmount,
			NoAmount:       rec.NoAmount,
			DrawAmount:     rec.DrawAmount,
			Payload:        rec.Payload,
			CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, listQuotesResponse{
		Quotes: out,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}
