// Package pricing implements the outcome-token issuance pricing engine:
// probability input reduction, funding amount validation, the two
// bonding-curve issuance formulas, reserve valuation, and the submit
// gate. Everything here is pure computation over read-only market
// snapshots; the asynchronous estimate orchestration lives in the
// session package.
package pricing

import (
	"strconv"
	"strings"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// maxProbabilityDecimals caps probability inputs at two decimal places.
const maxProbabilityDecimals = 2

// decimalPlaces returns the number of digits after the decimal point in
// the given input text.
func decimalPlaces(raw string) int {
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		return len(raw) - i - 1
	}
	return 0
}

// parseValue parses a probability or amount field, returning 0 for empty
// or unparseable text, mirroring the default-zero treatment of blank
// form fields.
func parseValue(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// Value returns the numeric value of a probability field, treating empty
// and unparseable input as zero.
func Value(p domain.ProbabilityInput) float64 {
	return parseValue(p.Raw)
}

// ApplyProbability is the single reducer for the probability fields: it
// takes the current pair, the edited outcome, and the raw text, and
// returns the next pair. Edits with more than two decimal places are not
// applied. The draw outcome is never directly editable.
//
// On a binary market, editing one outcome rewrites its complement to
// 100 − value (floored at 0), so the pair always sums to 100 by
// construction. On a draw market each field is validated independently
// and the draw percentage stays derived (see DrawPercent).
func ApplyProbability(cur domain.ProbabilityInputs, outcome domain.Outcome, raw string, allowDraw bool) domain.ProbabilityInputs {
	if outcome != domain.OutcomeYes && outcome != domain.OutcomeNo {
		return cur
	}

	if raw == "" {
		next := cur
		setField(&next, outcome, domain.ProbabilityInput{Raw: "", Valid: true})
		return next
	}

	if decimalPlaces(raw) > maxProbabilityDecimals {
		return cur
	}

	v, err := strconv.ParseFloat(raw, 64)
	valid := err == nil && v >= 0 && v <= 100

	next := cur
	setField(&next, outcome, domain.ProbabilityInput{Raw: raw, Valid: valid})

	if !allowDraw {
		comp := 0.0
		if err == nil && v < 100 {
			comp = 100 - v
		}
		other := domain.OutcomeNo
		if outcome == domain.OutcomeNo {
			other = domain.OutcomeYes
		}
		setField(&next, other, domain.ProbabilityInput{
			Raw:   strconv.FormatFloat(comp, 'f', -1, 64),
			Valid: true,
		})
	}

	return next
}

func setField(p *domain.ProbabilityInputs, outcome domain.Outcome, in domain.ProbabilityInput) {
	if outcome == domain.OutcomeYes {
		p.Yes = in
	} else {
		p.No = in
	}
}

// DrawPercent derives the draw probability: the remainder to 100 when
// both edited fields are valid and sum below 100, otherwise 0. Markets
// without a draw outcome always report 0.
func DrawPercent(p domain.ProbabilityInputs, allowDraw bool) float64 {
	if !allowDraw {
		return 0
	}
	yes, no := Value(p.Yes), Value(p.No)
	if p.Yes.Valid && p.No.Valid && yes+no < 100 {
		return 100 - yes - no
	}
	return 0
}

// PercentSum is the total probability mass across all outcomes. First
// issuance requires it to equal exactly 100; a partial sum is a reported
// validation error, never silently normalized.
func PercentSum(p domain.ProbabilityInputs, allowDraw bool) float64 {
	return Value(p.Yes) + Value(p.No) + DrawPercent(p, allowDraw)
}
