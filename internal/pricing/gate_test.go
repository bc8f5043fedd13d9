package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

func validAmount() domain.AmountInput {
	return domain.AmountInput{Raw: "10", Value: 10, Valid: true}
}

func TestVerdict_ProportionalNeedsNoProbabilities(t *testing.T) {
	state := domain.MarketState{SupplyYes: 500, SupplyNo: 500, Reserve: 10_000}

	ok, reason := Verdict(feeFreeParams(false), state, validAmount(), domain.ProbabilityInputs{}, 1000, 0)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestVerdict_FirstIssuanceRequiresSum100(t *testing.T) {
	p := probs("60", "30")

	ok, reason := Verdict(feeFreeParams(false), domain.MarketState{}, validAmount(), p, 1000, 90)
	assert.False(t, ok)
	assert.Equal(t, "the percentage sum must be equal to 100", reason)

	ok, _ = Verdict(feeFreeParams(false), domain.MarketState{}, validAmount(), probs("60", "40"), 1000, 100)
	assert.True(t, ok)
}

func TestVerdict_BlankRequiredFieldBlocks(t *testing.T) {
	// A blank yes field blocks first issuance even when the sum could
	// coincidentally reach 100 via default-zero treatment.
	p := domain.ProbabilityInputs{
		Yes: domain.ProbabilityInput{Raw: "", Valid: true},
		No:  domain.ProbabilityInput{Raw: "100", Valid: true},
	}

	ok, reason := Verdict(feeFreeParams(false), domain.MarketState{}, validAmount(), p, 1000, 100)
	assert.False(t, ok)
	assert.Equal(t, "outcome probabilities not set", reason)
}

func TestVerdict_DrawMarketRequiresNoField(t *testing.T) {
	p := domain.ProbabilityInputs{
		Yes: domain.ProbabilityInput{Raw: "100", Valid: true},
		No:  domain.ProbabilityInput{Raw: "", Valid: true},
	}

	ok, _ := Verdict(feeFreeParams(true), domain.MarketState{}, validAmount(), p, 1000, 100)
	assert.False(t, ok)

	// On a binary market the no field is derived, so yes alone suffices.
	ok, _ = Verdict(feeFreeParams(false), domain.MarketState{}, validAmount(), probs("100", "0"), 1000, 100)
	assert.True(t, ok)
}

func TestVerdict_InsufficientNet(t *testing.T) {
	ok, reason := Verdict(feeFreeParams(false), domain.MarketState{}, validAmount(), probs("50", "50"), 0, 100)
	assert.False(t, ok)
	assert.Equal(t, "insufficient amount", reason)
}

func TestVerdict_InvalidAmount(t *testing.T) {
	amount := domain.AmountInput{Raw: "0.0001", Value: 0.0001, Valid: false}
	ok, reason := Verdict(feeFreeParams(false), domain.MarketState{}, amount, probs("50", "50"), 1000, 100)
	assert.False(t, ok)
	assert.Equal(t, "invalid amount", reason)
}
