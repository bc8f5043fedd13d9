package pricing

import (
	"math"
	"strconv"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// maxAmount is the hard ceiling on funding input in display units,
// keeping base-unit arithmetic clear of int64 overflow.
const maxAmount = 9e9

// ParseAmount applies one edit to the funding amount field. Edits that
// are not parseable, exceed the decimal precision of the selected asset,
// or exceed the overflow ceiling are rejected: the prior state is
// returned unchanged. An accepted edit is valid when the value exceeds
// the market's minimum funding threshold.
func ParseAmount(prior domain.AmountInput, raw string, maxDecimals int, minAmount float64) domain.AmountInput {
	if raw == "" {
		return domain.AmountInput{Raw: "", Value: 0, Valid: true}
	}

	if decimalPlaces(raw) > maxDecimals {
		return prior
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v > maxAmount {
		return prior
	}

	return domain.AmountInput{Raw: raw, Value: v, Valid: v > minAmount}
}

// BaseUnits converts a display-unit amount into integer base units,
// rounding up so the deposit always covers the displayed value.
func BaseUnits(value float64, decimals int) int64 {
	return int64(math.Ceil(value * math.Pow10(decimals)))
}

// DisplayUnits converts integer base units back into display units.
func DisplayUnits(amount int64, decimals int) float64 {
	return float64(amount) / math.Pow10(decimals)
}
