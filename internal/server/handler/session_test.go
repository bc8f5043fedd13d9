package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

type fakeQuoteService struct {
	quote       domain.Quote
	payload     domain.LiquidityPayload
	uri         string
	transfer    domain.BridgeTransfer
	err         error
	lastAmount  string
	lastFunding domain.FundingSelection
	closed      []string
}

func (f *fakeQuoteService) CreateSession(_ context.Context, market string) (domain.Quote, error) {
	q := f.quote
	q.Market = market
	return q, f.err
}

func (f *fakeQuoteService) CloseSession(id string) { f.closed = append(f.closed, id) }

func (f *fakeQuoteService) SetAmount(_ context.Context, _, raw string) (domain.Quote, error) {
	f.lastAmount = raw
	return f.quote, f.err
}

func (f *fakeQuoteService) SelectFunding(_ context.Context, _ string, sel domain.FundingSelection) (domain.Quote, error) {
	f.lastFunding = sel
	return f.quote, f.err
}

func (f *fakeQuoteService) SetProbability(string, domain.Outcome, string) (domain.Quote, error) {
	return f.quote, f.err
}

func (f *fakeQuoteService) Quote(string) (domain.Quote, error) {
	return f.quote, f.err
}

func (f *fakeQuoteService) BuildPayload(context.Context, string) (domain.LiquidityPayload, string, error) {
	return f.payload, f.uri, f.err
}

func (f *fakeQuoteService) ComposeTransfer(context.Context, string) (domain.BridgeTransfer, error) {
	return f.transfer, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSessionMux(svc QuoteService) *http.ServeMux {
	h := NewSessionHandler(svc, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", h.CreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.CloseSession)
	mux.HandleFunc("PUT /api/sessions/{id}/amount", h.SetAmount)
	mux.HandleFunc("PUT /api/sessions/{id}/funding", h.SelectFunding)
	mux.HandleFunc("PUT /api/sessions/{id}/probability", h.SetProbability)
	mux.HandleFunc("GET /api/sessions/{id}/quote", h.GetQuote)
	mux.HandleFunc("POST /api/sessions/{id}/payload", h.BuildPayload)
	mux.HandleFunc("GET /api/sessions/{id}/transfer", h.ComposeTransfer)
	return mux
}

func TestCreateSession(t *testing.T) {
	svc := &fakeQuoteService{quote: domain.Quote{SessionID: "s1"}}
	mux := newSessionMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions",
		strings.NewReader(`{"market":"MARKET"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session_id":"s1"`)
	assert.Contains(t, rec.Body.String(), `"market":"MARKET"`)
}

func TestCreateSession_MissingMarket(t *testing.T) {
	mux := newSessionMux(&fakeQuoteService{})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSession_UnknownMarket(t *testing.T) {
	mux := newSessionMux(&fakeQuoteService{err: domain.ErrNotFound})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions",
		strings.NewReader(`{"market":"NOPE"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetAmount(t *testing.T) {
	svc := &fakeQuoteService{quote: domain.Quote{SessionID: "s1", Submittable: true}}
	mux := newSessionMux(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/sessions/s1/amount",
		strings.NewReader(`{"amount":"1000"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000", svc.lastAmount)
	assert.Contains(t, rec.Body.String(), `"submittable":true`)
}

func TestSelectFunding(t *testing.T) {
	svc := &fakeQuoteService{}
	mux := newSessionMux(svc)

	body := `{"network":"Ethereum","asset":"usdc-contract","decimals":6,"symbol":"USDC","foreign_asset":"usdc-on-home"}`
	req := httptest.NewRequest(http.MethodPut, "/api/sessions/s1/funding",
		strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ethereum", svc.lastFunding.Network)
	assert.Equal(t, 6, svc.lastFunding.Decimals)
}

func TestSetProbability_RejectsDraw(t *testing.T) {
	mux := newSessionMux(&fakeQuoteService{})

	req := httptest.NewRequest(http.MethodPut, "/api/sessions/s1/probability",
		strings.NewReader(`{"outcome":"draw","value":"10"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQuote_UnknownSession(t *testing.T) {
	mux := newSessionMux(&fakeQuoteService{err: domain.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing/quote", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildPayload(t *testing.T) {
	svc := &fakeQuoteService{
		payload: domain.LiquidityPayload{MarketAddress: "MARKET", Amount: 1000},
		uri:     "obyte:MARKET?amount=1000",
	}
	mux := newSessionMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/payload", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payment_uri":"obyte:MARKET?amount=1000"`)
}

func TestBuildPayload_NotSubmittable(t *testing.T) {
	mux := newSessionMux(&fakeQuoteService{err: domain.ErrNotSubmittable})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/payload", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestComposeTransfer(t *testing.T) {
	svc := &fakeQuoteService{
		transfer: domain.BridgeTransfer{
			Network:  "Ethereum",
			To:       "0x1111111111111111111111111111111111111111",
			Value:    "0",
			Calldata: "0xdeadbeef",
		},
	}
	mux := newSessionMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/transfer", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"calldata":"0xdeadbeef"`)
}

func TestComposeTransfer_HomeFunding(t *testing.T) {
	mux := newSessionMux(&fakeQuoteService{err: domain.ErrNoBridge})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/transfer", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComposeTransfer_NoWallet(t *testing.T) {
	mux := newSessionMux(&fakeQuoteService{err: domain.ErrWalletNotSet})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/transfer", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCloseSession(t *testing.T) {
	svc := &fakeQuoteService{}
	mux := newSessionMux(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/s1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"s1"}, svc.closed)
}
