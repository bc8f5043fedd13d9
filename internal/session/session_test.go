package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

type resolution struct {
	value float64
	err   error
}

type estimateCall struct {
	req     domain.EstimateRequest
	resolve chan resolution
}

// fakeEstimator records every estimate request and blocks each one until
// the test resolves it, so out-of-order completion can be forced.
type fakeEstimator struct {
	mu    sync.Mutex
	calls []*estimateCall
}

func (f *fakeEstimator) EstimateOutput(ctx context.Context, req domain.EstimateRequest) (float64, error) {
	c := &estimateCall{req: req, resolve: make(chan resolution, 1)}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	r := <-c.resolve
	return r.value, r.err
}

func (f *fakeEstimator) call(t *testing.T, i int) *estimateCall {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.calls) > i
	}, time.Second, time.Millisecond, "estimate call %d never issued", i)

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() domain.MarketParams {
	return domain.MarketParams{
		Address:         "MARKET",
		ReserveAsset:    "reserve-asset-id",
		ReserveDecimals: 0,
		ReserveSymbol:   "RSV",
	}
}

func foreignUSDC() domain.FundingSelection {
	return domain.FundingSelection{
		Network:      "Ethereum",
		Asset:        "usdc-contract",
		Decimals:     2,
		Symbol:       "USDC",
		ForeignAsset: "usdc-on-home",
	}
}

func poolState() domain.MarketState {
	return domain.MarketState{SupplyYes: 500, SupplyNo: 500, Reserve: 10_000}
}

func TestSession_HomeFundingIsIdentity(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	q := s.SetAmount(context.Background(), "1000")

	assert.Equal(t, int64(1000), q.Pricing.GrossAmount)
	assert.Equal(t, int64(50), q.Pricing.YesAmount)
	assert.True(t, q.Submittable)
	assert.Empty(t, est.calls, "home funding must not hit the bridge")
}

func TestSession_PendingEstimateContributesNothing(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	s.SelectFunding(context.Background(), foreignUSDC())
	q := s.SetAmount(context.Background(), "5")

	assert.True(t, q.Estimate.Pending)
	assert.Equal(t, int64(0), q.Pricing.GrossAmount)
	assert.False(t, q.Submittable)
}

func TestSession_StaleEstimateIsDiscarded(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	s.SelectFunding(context.Background(), foreignUSDC())
	s.SetAmount(context.Background(), "5")
	s.SetAmount(context.Background(), "10")

	first, second := est.call(t, 0), est.call(t, 1)
	require.Equal(t, 5.0, first.req.Amount)
	require.Equal(t, 10.0, second.req.Amount)

	// The newer request resolves first.
	second.resolve <- resolution{value: 990}
	require.Eventually(t, func() bool {
		return !s.Quote().Estimate.Pending
	}, time.Second, time.Millisecond)

	// The slow superseded response must not overwrite it.
	first.resolve <- resolution{value: 495}
	time.Sleep(20 * time.Millisecond)

	q := s.Quote()
	assert.Equal(t, 990.0, q.Estimate.Value)
	assert.Equal(t, int64(990), q.Pricing.GrossAmount)
}

func TestSession_EditsDuringStaleCommit(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	s.SelectFunding(context.Background(), foreignUSDC())
	s.SetAmount(context.Background(), "5")
	first := est.call(t, 0)

	// Keep issuing fresh request IDs while the superseded response
	// resolves, so the stale-discard path runs concurrently with edits.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			s.SetAmount(context.Background(), "10")
			s.SetAmount(context.Background(), "5")
		}
	}()

	first.resolve <- resolution{value: 495}
	<-done

	est.mu.Lock()
	calls := append([]*estimateCall(nil), est.calls...)
	est.mu.Unlock()
	for _, c := range calls[1:] {
		c.resolve <- resolution{value: 1}
	}

	// Only the latest request may commit; the stale 495 must be gone.
	require.Eventually(t, func() bool {
		return s.Quote().Estimate.Value == 1.0
	}, time.Second, time.Millisecond)
}

func TestSession_SwitchingFundingRevalidatesAmount(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	s.SelectFunding(context.Background(), foreignUSDC())
	s.SetAmount(context.Background(), "1.23")
	require.True(t, s.Amount().Valid)
	est.call(t, 0).resolve <- resolution{value: 1}

	// Whole-unit asset: two decimal places no longer fit.
	q := s.SelectFunding(context.Background(), domain.FundingSelection{
		Network: "Ethereum", Asset: "wbtc-contract", Decimals: 0, Symbol: "WBTC",
	})

	amt := s.Amount()
	assert.Equal(t, "1.23", amt.Raw)
	assert.False(t, amt.Valid)
	assert.False(t, q.Submittable)
	assert.Equal(t, int64(0), q.Pricing.GrossAmount)
}

func TestSession_SwitchingFundingInvalidatesEstimate(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	s.SelectFunding(context.Background(), foreignUSDC())
	s.SetAmount(context.Background(), "5")
	call := est.call(t, 0)

	// Switching back to home funding supersedes the in-flight request.
	q := s.SelectFunding(context.Background(), domain.FundingSelection{
		Network: domain.HomeNetwork,
		Asset:   "reserve-asset-id",
		Symbol:  "RSV",
	})
	assert.False(t, q.Estimate.Pending)

	call.resolve <- resolution{value: 495}
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 0.0, s.Quote().Estimate.Value)
}

func TestSession_EstimateErrorIsNonFatal(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	s.SelectFunding(context.Background(), foreignUSDC())
	s.SetAmount(context.Background(), "5")
	est.call(t, 0).resolve <- resolution{err: errors.New("no assistant available")}

	require.Eventually(t, func() bool {
		return s.Quote().Estimate.Err != ""
	}, time.Second, time.Millisecond)

	q := s.Quote()
	assert.Equal(t, 0.0, q.Estimate.Value)
	assert.False(t, q.Submittable)
}

func TestSession_NonPositiveEstimateCommitsZero(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	s.SelectFunding(context.Background(), foreignUSDC())
	s.SetAmount(context.Background(), "5")
	est.call(t, 0).resolve <- resolution{value: -3}

	require.Eventually(t, func() bool {
		return !s.Quote().Estimate.Pending
	}, time.Second, time.Millisecond)

	q := s.Quote()
	assert.Equal(t, 0.0, q.Estimate.Value)
	assert.Empty(t, q.Estimate.Err)
	assert.False(t, q.Submittable)
}

func TestSession_OnUpdateFiresOnCommit(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	quotes := make(chan domain.Quote, 1)
	s.OnUpdate(func(q domain.Quote) { quotes <- q })

	s.SelectFunding(context.Background(), foreignUSDC())
	s.SetAmount(context.Background(), "5")
	est.call(t, 0).resolve <- resolution{value: 495}

	select {
	case q := <-quotes:
		assert.Equal(t, 495.0, q.Estimate.Value)
		assert.True(t, q.Submittable)
	case <-time.After(time.Second):
		t.Fatal("no update callback after estimate commit")
	}
}

func TestSession_FirstIssuancePayload(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), domain.MarketState{}, est, "WALLET", testLogger())

	s.SetAmount(context.Background(), "1000")
	s.SetProbability(domain.OutcomeYes, "60")
	q := s.Quote()
	require.True(t, q.Submittable, "reason: %s", q.Reason)

	payload, err := s.Payload()
	require.NoError(t, err)

	assert.Equal(t, "MARKET", payload.MarketAddress)
	assert.Equal(t, "reserve-asset-id", payload.Asset)
	assert.Equal(t, int64(1000), payload.Amount)
	assert.Equal(t, "WALLET", payload.FromAddress)
	assert.Equal(t, 1, payload.Data["add_liquidity"])
	assert.InDelta(t, 0.6, payload.Data["yes_amount_ratio"].(float64), 1e-9)
	assert.InDelta(t, 0.4, payload.Data["no_amount_ratio"].(float64), 1e-9)
}

func TestSession_PayloadBlockedUntilGatePasses(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), domain.MarketState{}, est, "WALLET", testLogger())

	s.SetAmount(context.Background(), "1000")
	// Probabilities untouched: first issuance gate must block.
	_, err := s.Payload()
	assert.ErrorIs(t, err, domain.ErrNotSubmittable)
}

func TestSession_UpdateStateReprices(t *testing.T) {
	est := &fakeEstimator{}
	s := New(testParams(), poolState(), est, "WALLET", testLogger())

	q := s.SetAmount(context.Background(), "1000")
	require.Equal(t, int64(50), q.Pricing.YesAmount)

	q = s.UpdateState(domain.MarketState{SupplyYes: 500, SupplyNo: 500, Reserve: 20_000})
	assert.Equal(t, int64(25), q.Pricing.YesAmount)
}
