package domain

import "context"

// MarketSource supplies market parameters and live state snapshots for a
// given market address. The engine only reads; updates arrive as fresh
// snapshots, never as shared mutable memory.
type MarketSource interface {
	MarketParams(ctx context.Context, address string) (MarketParams, error)
	MarketState(ctx context.Context, address string) (MarketState, error)
}

// EstimateRequest describes one foreign-to-reserve conversion quote.
type EstimateRequest struct {
	Amount     float64 // source-asset display units
	SrcNetwork string
	SrcAsset   string
	DstAsset   string // the market's reserve asset
	Recipient  string // home-chain address receiving the bridged funds
}

// BridgeEstimator is the bridging collaborator. EstimateOutput returns
// the reserve-asset amount (display units) that the given foreign deposit
// would land as. The call is advisory pricing only and may fail or return
// a non-positive value; callers treat either as "no conversion available"
// rather than a hard fault.
type BridgeEstimator interface {
	EstimateOutput(ctx context.Context, req EstimateRequest) (float64, error)
}

// TokenRegistry lists the bridged assets usable as funding sources,
// grouped by their home network.
type TokenRegistry interface {
	TokensByNetwork(ctx context.Context) (map[string][]BridgeToken, error)
}

// StateHandler receives merged market state snapshots from a live
// subscription.
type StateHandler func(address string, state MarketState)
