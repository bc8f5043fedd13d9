package pricing

import "github.com/prophetmarkets/liquidityd/internal/domain"

// Verdict is the submit gate: it folds the validity of every upstream
// piece into a single eligibility flag plus a user-facing reason when
// submission is blocked. Nothing here is fatal; every failure mode is an
// expected steady state of a partially filled form.
func Verdict(
	params domain.MarketParams,
	state domain.MarketState,
	amount domain.AmountInput,
	probs domain.ProbabilityInputs,
	net int64,
	percentSum float64,
) (bool, string) {
	if !amount.Valid {
		return false, "invalid amount"
	}
	if net <= 0 {
		return false, "insufficient amount"
	}

	if state.IsEmpty() {
		// Every required probability field must be filled in: a blank
		// field blocks submission even if default-zero treatment would
		// make the sum coincidentally reach 100.
		if probs.Yes.Raw == "" || (params.AllowDraw && probs.No.Raw == "") {
			return false, "outcome probabilities not set"
		}
		if !probs.Yes.Valid || !probs.No.Valid {
			return false, "invalid outcome probability"
		}
		if percentSum != 100 {
			return false, "the percentage sum must be equal to 100"
		}
	}

	return true, ""
}
