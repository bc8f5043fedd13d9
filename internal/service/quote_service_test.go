package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liqcrypto "github.com/prophetmarkets/liquidityd/internal/crypto"
	"github.com/prophetmarkets/liquidityd/internal/domain"
	"github.com/prophetmarkets/liquidityd/internal/platform/evm"
)

type fakeQuoteStore struct {
	mu      sync.Mutex
	records []domain.QuoteRecord
}

func (s *fakeQuoteStore) Insert(_ context.Context, rec domain.QuoteRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = int64(len(s.records) + 1)
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *fakeQuoteStore) List(context.Context, string, domain.ListOpts) ([]domain.QuoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.QuoteRecord(nil), s.records...), nil
}

func (s *fakeQuoteStore) ListBefore(context.Context, time.Time) ([]domain.QuoteRecord, error) {
	return nil, nil
}

func (s *fakeQuoteStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) seen(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type fakeTokens struct{}

func (fakeTokens) TokensByNetwork(context.Context) (map[string][]domain.BridgeToken, error) {
	return map[string][]domain.BridgeToken{
		"Ethereum": {{
			HomeNetwork:   "Ethereum",
			HomeAsset:     "usdc-contract",
			HomeSymbol:    "USDC",
			HomeDecimals:  2,
			ExportAddress: "0x2222222222222222222222222222222222222222",
		}},
	}, nil
}

func newTestQuoteService(t *testing.T, est domain.BridgeEstimator) (*QuoteService, *fakeQuoteStore, *fakeAudit, *fakeNotifier, *fakeCache) {
	t.Helper()
	cache := newFakeCache()
	require.NoError(t, cache.Set(context.Background(), domain.MarketSnapshot{
		Params: testParams(), State: poolState(),
	}))

	markets := NewMarketService(&fakeSource{}, cache, testLogger())
	store := &fakeQuoteStore{}
	audit := &fakeAudit{}
	notifier := &fakeNotifier{}

	svc := NewQuoteService(markets, est, fakeTokens{}, store, audit, notifier,
		"WALLET", 30*time.Minute, testLogger())
	return svc, store, audit, notifier, cache
}

func TestQuoteService_CreateSessionReturnsInitialQuote(t *testing.T) {
	svc, _, _, _, _ := newTestQuoteService(t, &staticEstimator{})

	q, err := svc.CreateSession(context.Background(), "MARKET")
	require.NoError(t, err)
	assert.NotEmpty(t, q.SessionID)
	assert.Equal(t, "MARKET", q.Market)
	assert.False(t, q.Submittable, "empty amount must not be submittable")
}

func TestQuoteService_UnknownSessionIsNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestQuoteService(t, &staticEstimator{})

	_, err := svc.SetAmount(context.Background(), "missing", "100")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteService_BuildPayloadPersistsAndNotifies(t *testing.T) {
	svc, store, audit, notifier, _ := newTestQuoteService(t, &staticEstimator{})

	q, err := svc.CreateSession(context.Background(), "MARKET")
	require.NoError(t, err)

	q, err = svc.SetAmount(context.Background(), q.SessionID, "1000")
	require.NoError(t, err)
	require.True(t, q.Submittable)

	payload, uri, err := svc.BuildPayload(context.Background(), q.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "MARKET", payload.MarketAddress)
	assert.Equal(t, int64(1000), payload.Amount)
	assert.Contains(t, uri, "obyte:MARKET?")

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, q.SessionID, rec.SessionID)
	assert.Equal(t, domain.HomeNetwork, rec.FundingNetwork)
	assert.Equal(t, int64(1000), rec.GrossAmount)

	assert.Contains(t, audit.events, "quote.payload_produced")
	assert.True(t, notifier.seen("payload_produced"))
}

func TestQuoteService_BuildPayloadRejectsUnsubmittable(t *testing.T) {
	svc, store, _, _, _ := newTestQuoteService(t, &staticEstimator{})

	q, err := svc.CreateSession(context.Background(), "MARKET")
	require.NoError(t, err)

	_, _, err = svc.BuildPayload(context.Background(), q.SessionID)
	require.ErrorIs(t, err, domain.ErrNotSubmittable)
	assert.Empty(t, store.records)
}

func TestQuoteService_StateUpdateFansOut(t *testing.T) {
	svc, _, _, _, cache := newTestQuoteService(t, &staticEstimator{})

	q, err := svc.CreateSession(context.Background(), "MARKET")
	require.NoError(t, err)
	q, err = svc.SetAmount(context.Background(), q.SessionID, "1000")
	require.NoError(t, err)
	require.Equal(t, int64(50), q.Pricing.YesAmount)

	var mu sync.Mutex
	var pushed []domain.Quote
	svc.OnQuote(func(_ string, q domain.Quote) {
		mu.Lock()
		pushed = append(pushed, q)
		mu.Unlock()
	})

	// Doubling the reserve halves the proportional issuance ratio.
	next := domain.MarketState{SupplyYes: 1000, SupplyNo: 1000, Reserve: 20_000}
	svc.HandleStateUpdate("MARKET", next)

	mu.Lock()
	require.Len(t, pushed, 1)
	assert.Equal(t, int64(25), pushed[0].Pricing.YesAmount)
	mu.Unlock()

	snap, err := cache.Get(context.Background(), "MARKET")
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), snap.State.Reserve)
}

func TestQuoteService_EstimateFailureRaisesAlert(t *testing.T) {
	est := &staticEstimator{err: assert.AnError}
	svc, _, _, notifier, _ := newTestQuoteService(t, est)

	q, err := svc.CreateSession(context.Background(), "MARKET")
	require.NoError(t, err)

	_, err = svc.SelectFunding(context.Background(), q.SessionID, domain.FundingSelection{
		Network: "Ethereum", Asset: "usdc-contract", Decimals: 2, Symbol: "USDC",
	})
	require.NoError(t, err)
	_, err = svc.SetAmount(context.Background(), q.SessionID, "5")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return notifier.seen("estimate_failed")
	}, time.Second, time.Millisecond)
}

func TestQuoteService_EvictIdle(t *testing.T) {
	svc, _, _, _, _ := newTestQuoteService(t, &staticEstimator{})
	svc.idle = 10 * time.Millisecond

	q, err := svc.CreateSession(context.Background(), "MARKET")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	svc.evictIdle(context.Background())

	_, err = svc.Quote(q.SessionID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteService_Tokens(t *testing.T) {
	svc, _, _, _, _ := newTestQuoteService(t, &staticEstimator{})

	tokens, err := svc.Tokens(context.Background())
	require.NoError(t, err)
	assert.Contains(t, tokens, "Ethereum")
}

func TestQuoteService_ComposeTransfer(t *testing.T) {
	svc, _, _, _, _ := newTestQuoteService(t, &staticEstimator{value: 4.95})

	sender, err := evm.NewSender(liqcrypto.KeySource{
		RawKey: "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	})
	require.NoError(t, err)
	svc.UseSender(sender)

	q, err := svc.CreateSession(context.Background(), "MARKET")
	require.NoError(t, err)

	_, err = svc.SelectFunding(context.Background(), q.SessionID, domain.FundingSelection{
		Network: "Ethereum", Asset: "usdc-contract", Decimals: 2, Symbol: "USDC",
	})
	require.NoError(t, err)
	_, err = svc.SetAmount(context.Background(), q.SessionID, "5")
	require.NoError(t, err)

	tr, err := svc.ComposeTransfer(context.Background(), q.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Ethereum", tr.Network)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", tr.From)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", tr.To)
	assert.Equal(t, "0", tr.Value)
	assert.True(t, strings.HasPrefix(tr.Calldata, "0x"))
	assert.Greater(t, len(tr.Calldata), 10)
}

func TestQuoteService_ComposeTransfer_HomeFunding(t *testing.T) {
	svc, _, _, _, _ := newTestQuoteService(t, &staticEstimator{})

	q, err := svc.CreateSession(context.Background(), "MARKET")
	require.NoError(t, err)

	_, err = svc.ComposeTransfer(context.Background(), q.SessionID)
	require.ErrorIs(t, err, domain.ErrNoBridge)
}

func TestQuoteService_ComposeTransfer_NoWallet(t *testing.T) {
	svc, _, _, _, _ := newTestQuoteService(t, &staticEstimator{value: 4.95})

	q, err := svc.CreateSession(context.Background(), "MARKET")
	require.NoError(t, err)

	_, err = svc.SelectFunding(context.Background(), q.SessionID, domain.FundingSelection{
		Network: "Ethereum", Asset: "usdc-contract", Decimals: 2, Symbol: "USDC",
	})
	require.NoError(t, err)
	_, err = svc.SetAmount(context.Background(), q.SessionID, "5")
	require.NoError(t, err)

	_, err = svc.ComposeTransfer(context.Background(), q.SessionID)
	require.ErrorIs(t, err, domain.ErrWalletNotSet)
}
