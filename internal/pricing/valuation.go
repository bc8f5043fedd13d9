package pricing

import (
	"math"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// ReserveValues projects the reserve-asset value implied by each minted
// amount using the market's per-outcome unit price. The values are for
// display (fee summary, percentage breakdown) only; they are never fed
// back into the pricer.
func ReserveValues(state domain.MarketState, yes, no, draw int64) (int64, int64, int64) {
	return reserveValue(state, domain.OutcomeYes, yes),
		reserveValue(state, domain.OutcomeNo, no),
		reserveValue(state, domain.OutcomeDraw, draw)
}

func reserveValue(state domain.MarketState, o domain.Outcome, amount int64) int64 {
	if amount == 0 {
		return 0
	}
	return int64(math.Floor(float64(amount) * state.OutcomePrice(o)))
}

// Breakdown splits the net deposit across outcomes for display. On first
// issuance the split follows the requested probabilities (the pool has
// no prices yet); afterwards it follows the projected reserve values.
// Values are in reserve display units, rounded to the asset's precision.
func Breakdown(params domain.MarketParams, state domain.MarketState, res domain.PricingResult, probs domain.ProbabilityInputs) []domain.OutcomeShare {
	if res.NetAmount <= 0 {
		return nil
	}

	var shares []domain.OutcomeShare
	add := func(o domain.Outcome, valueBase float64) {
		value := roundTo(valueBase/math.Pow10(params.ReserveDecimals), params.ReserveDecimals)
		percent := valueBase / float64(res.NetAmount) * 100
		shares = append(shares, domain.OutcomeShare{Outcome: o, Value: value, Percent: percent})
	}

	if state.IsEmpty() {
		net := float64(res.NetAmount)
		add(domain.OutcomeYes, net*Value(probs.Yes)/100)
		add(domain.OutcomeNo, net*Value(probs.No)/100)
		if params.AllowDraw {
			add(domain.OutcomeDraw, net*DrawPercent(probs, true)/100)
		}
	} else {
		add(domain.OutcomeYes, float64(res.YesReserveValue))
		add(domain.OutcomeNo, float64(res.NoReserveValue))
		if params.AllowDraw {
			add(domain.OutcomeDraw, float64(res.DrawReserveValue))
		}
	}

	return shares
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
