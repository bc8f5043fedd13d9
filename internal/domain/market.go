package domain

import "math"

// Outcome identifies one side of a prediction market.
type Outcome string

const (
	OutcomeYes  Outcome = "yes"
	OutcomeNo   Outcome = "no"
	OutcomeDraw Outcome = "draw"
)

// BaseAsset is the asset ID of the DAG's native currency. Markets whose
// reserve is the base asset pay a fixed network fee on every issuance.
const BaseAsset = "base"

// MarketParams holds the immutable parameters of a prediction market AA.
// They are loaded from the market data source once and are read-only to
// the pricing engine.
type MarketParams struct {
	Address         string  // AA address of the market
	Event           string  // human-readable event description
	AllowDraw       bool    // three-outcome market (YES/NO/DRAW)
	ReserveAsset    string  // asset ID of the reserve currency
	ReserveDecimals int     // display decimals of the reserve asset
	ReserveSymbol   string  // display symbol of the reserve asset
	IssueFee        float64 // issuance fee rate in [0,1)
}

// MarketState is a read-only snapshot of the market's mutable state vars.
// All amounts are integers in reserve-asset base units. The engine never
// writes it; the market data collaborator replaces the snapshot on every
// on-chain update.
type MarketState struct {
	SupplyYes  int64
	SupplyNo   int64
	SupplyDraw int64
	Reserve    int64
}

// IsEmpty reports whether the pool has never been issued into. The AA
// guarantees that the reserve is zero exactly when all supplies are zero,
// so the total supply is the discriminator between the two issuance
// regimes.
func (s MarketState) IsEmpty() bool {
	return s.SupplyYes+s.SupplyNo+s.SupplyDraw == 0
}

// Supply returns the token supply of the given outcome.
func (s MarketState) Supply(o Outcome) int64 {
	switch o {
	case OutcomeYes:
		return s.SupplyYes
	case OutcomeNo:
		return s.SupplyNo
	case OutcomeDraw:
		return s.SupplyDraw
	default:
		return 0
	}
}

// OutcomePrice returns the implied reserve-asset price of one token of the
// given outcome under the market's quadratic bonding curve
// (reserve² = Σ supplyᵢ²), i.e. supplyᵢ / reserve. Every outcome of an
// empty pool prices at zero.
//
// This is the pricing primitive the valuation projector multiplies minted
// amounts by; it mirrors the market AA's own price calculation.
func (s MarketState) OutcomePrice(o Outcome) float64 {
	if s.Reserve == 0 {
		return 0
	}
	return float64(s.Supply(o)) / float64(s.Reserve)
}

// NetworkFee returns the fixed base-unit fee deducted from every issuance
// when the market's reserve is the base asset, and zero otherwise.
func (p MarketParams) NetworkFee() int64 {
	if p.ReserveAsset == BaseAsset {
		return 10_000
	}
	return 0
}

// MinAmount returns the smallest acceptable funding amount in display
// units: the network fee for base-asset markets, one base unit otherwise.
func (p MarketParams) MinAmount() float64 {
	if p.ReserveAsset == BaseAsset {
		return float64(p.NetworkFee()) / 1e9
	}
	return 1 / math.Pow10(p.ReserveDecimals)
}
