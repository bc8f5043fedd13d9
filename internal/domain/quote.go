package domain

import "time"

// ProbabilityInput is one outcome-probability field as typed by the user.
// The value is a percentage in [0,100] with at most two decimal places;
// edits violating the decimal cap are not applied. An empty Raw is valid
// but counts as "not filled in" for the submit gate.
type ProbabilityInput struct {
	Raw   string
	Valid bool
}

// ProbabilityInputs holds the editable probability fields for a first
// issuance. Draw is never edited directly; it is derived from yes and no.
type ProbabilityInputs struct {
	Yes ProbabilityInput
	No  ProbabilityInput
}

// PricingResult is the output of one deterministic pricing pass. All
// amounts are integers in reserve-asset base units. A result is either
// fully populated or all-zero; it is never partially applied.
type PricingResult struct {
	GrossAmount      int64 // funding credited to the market, pre-fee
	NetAmount        int64 // gross after issue fee and network fee
	IssueFee         int64
	YesAmount        int64 // outcome tokens minted
	NoAmount         int64
	DrawAmount       int64
	YesReserveValue  int64 // reserve value implied by each minted amount
	NoReserveValue   int64
	DrawReserveValue int64
}

// Quote is a full snapshot of a pricing session: the derived pricing
// result, the submit verdict, and the display-oriented extras the form
// renders. Quotes are recomputed from scratch on every input change.
type Quote struct {
	SessionID     string         `json:"session_id"`
	Market        string         `json:"market"`
	FirstIssuance bool           `json:"first_issuance"`
	Pricing       PricingResult  `json:"pricing"`
	PercentSum    float64        `json:"percent_sum"`
	DrawPercent   float64        `json:"draw_percent"`
	Breakdown     []OutcomeShare `json:"breakdown,omitempty"`
	Estimate      EstimateState  `json:"estimate"`
	AssistantFee  float64        `json:"assistant_fee,omitempty"` // bridge assistant fee, source-asset display units
	SwapRate      float64        `json:"swap_rate,omitempty"`     // 1 source token ≈ SwapRate reserve tokens
	Submittable   bool           `json:"submittable"`
	Reason        string         `json:"reason,omitempty"` // why Submittable is false
	ComputedAt    time.Time      `json:"computed_at"`
}

// OutcomeShare is one slice of the invested-capital breakdown.
type OutcomeShare struct {
	Outcome Outcome `json:"outcome"`
	Value   float64 `json:"value"`   // reserve display units
	Percent float64 `json:"percent"` // share of the net amount
}
