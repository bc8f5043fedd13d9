package pricing

import (
	"math"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// NetAmount deducts the issue fee and the fixed network fee from a gross
// base-unit deposit: floor(gross·(1−feeRate)) − networkFee. The result
// may be negative; callers treat anything ≤ 0 as an insufficient amount.
func NetAmount(gross int64, feeRate float64, networkFee int64) int64 {
	return int64(math.Floor(float64(gross)*(1-feeRate))) - networkFee
}

// IssueFee returns the base-unit fee retained by the market on a gross
// deposit.
func IssueFee(gross int64, feeRate float64) int64 {
	return gross - int64(math.Floor(float64(gross)*(1-feeRate)))
}

// Price runs one deterministic pricing pass: it converts a gross
// reserve-asset deposit plus the current market snapshot (and, on first
// issuance, the requested probabilities) into minted outcome-token
// amounts and their implied reserve values.
//
// Two mutually exclusive formulas apply, selected solely by whether the
// pool is empty:
//
//   - First issuance seeds the curve from the requested probabilities:
//     amountᵢ = floor(√(net² · pᵢ)). Each outcome is computed from its
//     own probability independently; percentSum == 100 is enforced by
//     the submit gate, not here.
//   - Proportional issuance grows every supply by the factor the reserve
//     grows: ratio = (net + reserve) / reserve,
//     amountᵢ = ceil(ratio·supplyᵢ − supplyᵢ). Rounding is deliberately
//     one-sided toward the depositor (ceiling), never round-half.
//
// If the net amount is not positive the result carries the gross amount
// and zeros everywhere else.
func Price(params domain.MarketParams, state domain.MarketState, gross int64, probs domain.ProbabilityInputs) domain.PricingResult {
	res := domain.PricingResult{GrossAmount: gross}
	if gross <= 0 {
		return res
	}

	net := NetAmount(gross, params.IssueFee, params.NetworkFee())
	if net <= 0 {
		return res
	}

	res.NetAmount = net
	res.IssueFee = IssueFee(gross, params.IssueFee)

	if state.IsEmpty() {
		netf := float64(net)
		res.YesAmount = seedAmount(netf, Value(probs.Yes)/100)
		res.NoAmount = seedAmount(netf, Value(probs.No)/100)
		if params.AllowDraw {
			res.DrawAmount = seedAmount(netf, DrawPercent(probs, true)/100)
		}
	} else {
		ratio := float64(net+state.Reserve) / float64(state.Reserve)
		res.YesAmount = proportionalAmount(ratio, state.SupplyYes)
		res.NoAmount = proportionalAmount(ratio, state.SupplyNo)
		res.DrawAmount = proportionalAmount(ratio, state.SupplyDraw)
	}

	res.YesReserveValue, res.NoReserveValue, res.DrawReserveValue =
		ReserveValues(state, res.YesAmount, res.NoAmount, res.DrawAmount)

	return res
}

// seedAmount is the empty-pool allocation floor(√(net²·p)). The exact
// √(net²·p) form (rather than the algebraically equal net·√p) is the
// market's inherited bonding-curve seeding convention and is kept
// verbatim.
func seedAmount(net float64, p float64) int64 {
	if p <= 0 {
		return 0
	}
	return int64(math.Floor(math.Sqrt(net * net * p)))
}

// proportionalAmount mints ceil(ratio·supply − supply) so the outcome's
// supply grows by exactly the reserve's growth factor, rounded up.
func proportionalAmount(ratio float64, supply int64) int64 {
	if supply == 0 {
		return 0
	}
	return int64(math.Ceil(ratio*float64(supply) - float64(supply)))
}
