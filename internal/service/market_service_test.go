package service

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

type fakeSource struct {
	params     domain.MarketParams
	state      domain.MarketState
	err        error
	paramCalls int
	stateCalls int
}

func (f *fakeSource) MarketParams(context.Context, string) (domain.MarketParams, error) {
	f.paramCalls++
	return f.params, f.err
}

func (f *fakeSource) MarketState(context.Context, string) (domain.MarketState, error) {
	f.stateCalls++
	return f.state, f.err
}

type fakeCache struct {
	mu    sync.Mutex
	snaps map[string]domain.MarketSnapshot
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: map[string]domain.MarketSnapshot{}}
}

func (c *fakeCache) Set(_ context.Context, snap domain.MarketSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[snap.Params.Address] = snap
	return nil
}

func (c *fakeCache) Get(_ context.Context, address string) (domain.MarketSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snaps[address]
	if !ok {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (c *fakeCache) SetState(_ context.Context, address string, state domain.MarketState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snaps[address]
	if !ok {
		return domain.ErrNotFound
	}
	snap.State = state
	c.snaps[address] = snap
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, address)
	return nil
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

func poolState() domain.MarketState {
	return domain.MarketState{SupplyYes: 500, SupplyNo: 500, Reserve: 10_000}
}

func TestMarketService_CacheHitSkipsSource(t *testing.T) {
	source := &fakeSource{}
	cache := newFakeCache()
	require.NoError(t, cache.Set(context.Background(), domain.MarketSnapshot{
		Params: testParams(), State: poolState(),
	}))

	svc := NewMarketService(source, cache, testLogger())

	snap, err := svc.GetMarket(context.Background(), "MARKET")
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), snap.State.Reserve)
	assert.Zero(t, source.paramCalls)
}

func TestMarketService_MissFetchesAndBackfills(t *testing.T) {
	source := &fakeSource{params: testParams(), state: poolState()}
	cache := newFakeCache()
	svc := NewMarketService(source, cache, testLogger())

	snap, err := svc.GetMarket(context.Background(), "MARKET")
	require.NoError(t, err)
	assert.Equal(t, "MARKET", snap.Params.Address)
	assert.Equal(t, 1, source.paramCalls)

	cached, err := cache.Get(context.Background(), "MARKET")
	require.NoError(t, err)
	assert.Equal(t, snap, cached)
}

func TestMarketService_SourceErrorPropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("hub down")}
	svc := NewMarketService(source, newFakeCache(), testLogger())

	_, err := svc.GetMarket(context.Background(), "MARKET")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hub down")
}

type fakeLimiter struct {
	allow bool
	err   error
	calls int
}

func (f *fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	f.calls++
	return f.allow, f.err
}

type staticEstimator struct {
	value float64
	err   error
	calls int
}

func (f *staticEstimator) EstimateOutput(context.Context, domain.EstimateRequest) (float64, error) {
	f.calls++
	return f.value, f.err
}

func TestLimitedEstimator_DeniedReturnsRateLimited(t *testing.T) {
	inner := &staticEstimator{value: 42}
	est := NewLimitedEstimator(inner, &fakeLimiter{allow: false}, 10, time.Minute, testLogger())

	_, err := est.EstimateOutput(context.Background(), domain.EstimateRequest{})
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Zero(t, inner.calls)
}

func TestLimitedEstimator_AllowedDelegates(t *testing.T) {
	inner := &staticEstimator{value: 42}
	est := NewLimitedEstimator(inner, &fakeLimiter{allow: true}, 10, time.Minute, testLogger())

	v, err := est.EstimateOutput(context.Background(), domain.EstimateRequest{})
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
}

func TestLimitedEstimator_LimiterErrorFailsOpen(t *testing.T) {
	inner := &staticEstimator{value: 42}
	est := NewLimitedEstimator(inner, &fakeLimiter{err: errors.New("redis down")}, 10, time.Minute, testLogger())

	v, err := est.EstimateOutput(context.Background(), domain.EstimateRequest{})
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	assert.Equal(t, 1, inner.calls)
}
