// Package session owns one liquidity-quote form session: the funding
// selection, amount and probability inputs, and the state of the
// asynchronous bridge estimate. Every mutation recomputes the full quote
// deterministically from current inputs; the only suspension point is
// the estimate fetch, reconciled through monotonic request IDs so a slow
// superseded response can never overwrite a newer one.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prophetmarkets/liquidityd/internal/domain"
	"github.com/prophetmarkets/liquidityd/internal/pricing"
)

// AssistantRewardPercent is the bridge assistant's fee on foreign-asset
// deposits, in percent of the source amount.
const AssistantRewardPercent = 1.0

// Session is a single pricing session. All methods are safe for
// concurrent use; the mutex exists because estimate commits arrive from
// the estimator goroutine while HTTP handlers mutate inputs.
type Session struct {
	id        string
	params    domain.MarketParams
	estimator domain.BridgeEstimator
	recipient string
	logger    *slog.Logger

	mu       sync.Mutex
	state    domain.MarketState
	funding  domain.FundingSelection
	amount   domain.AmountInput
	probs    domain.ProbabilityInputs
	estimate domain.EstimateState
	reqSeq   uint64
	notify   func(domain.Quote)
}

// New creates a session for the given market snapshot. Funding starts on
// the market's own reserve asset; inputs start empty and valid.
func New(params domain.MarketParams, state domain.MarketState, estimator domain.BridgeEstimator, recipient string, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		params:    params,
		estimator: estimator,
		recipient: recipient,
		logger:    logger.With(slog.String("component", "session"), slog.String("session_id", id)),
		state:     state,
		funding: domain.FundingSelection{
			Network:  domain.HomeNetwork,
			Asset:    params.ReserveAsset,
			Decimals: params.ReserveDecimals,
			Symbol:   params.ReserveSymbol,
		},
		amount: domain.AmountInput{Valid: true},
		probs: domain.ProbabilityInputs{
			Yes: domain.ProbabilityInput{Valid: true},
			No:  domain.ProbabilityInput{Valid: true},
		},
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Market returns the address of the market this session prices against.
func (s *Session) Market() string { return s.params.Address }

// OnUpdate registers a callback invoked with a fresh quote whenever an
// asynchronous estimate commits. Synchronous mutations return the quote
// directly and do not trigger the callback.
func (s *Session) OnUpdate(fn func(domain.Quote)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// SetAmount applies one edit to the funding amount. A changed amount
// immediately invalidates any previous estimate and, for foreign
// funding, launches a fresh one.
func (s *Session) SetAmount(ctx context.Context, raw string) domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := pricing.ParseAmount(s.amount, raw, s.funding.Decimals, s.params.MinAmount())
	if next != s.amount {
		s.amount = next
		s.refreshEstimateLocked(ctx)
	}
	return s.quoteLocked()
}

// SelectFunding switches the funding asset. Any pending or committed
// estimate for the previous selection is discarded before the new
// request resolves, so pricing never reflects a stale conversion. The
// accepted amount is re-parsed against the new asset's precision; text
// that no longer fits keeps its raw form but turns invalid.
func (s *Session) SelectFunding(ctx context.Context, sel domain.FundingSelection) domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.funding = sel
	s.amount = pricing.ParseAmount(domain.AmountInput{Raw: s.amount.Raw},
		s.amount.Raw, sel.Decimals, s.params.MinAmount())
	s.refreshEstimateLocked(ctx)
	return s.quoteLocked()
}

// SetProbability applies one probability edit through the pure reducer.
func (s *Session) SetProbability(outcome domain.Outcome, raw string) domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.probs = pricing.ApplyProbability(s.probs, outcome, raw, s.params.AllowDraw)
	return s.quoteLocked()
}

// UpdateState injects a fresh read-only market snapshot and reprices.
func (s *Session) UpdateState(state domain.MarketState) domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	return s.quoteLocked()
}

// Quote recomputes and returns the current quote.
func (s *Session) Quote() domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteLocked()
}

// Funding returns the active funding selection.
func (s *Session) Funding() domain.FundingSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.funding
}

// Amount returns the current funding amount input.
func (s *Session) Amount() domain.AmountInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amount
}

// Payload produces the fully resolved on-chain payload. It fails with
// domain.ErrNotSubmittable unless the submit gate passes.
func (s *Session) Payload() (domain.LiquidityPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.quoteLocked()
	if !q.Submittable {
		return domain.LiquidityPayload{}, domain.ErrNotSubmittable
	}

	data := map[string]any{"add_liquidity": 1}
	if q.FirstIssuance {
		data["yes_amount_ratio"] = pricing.Value(s.probs.Yes) / 100
		data["no_amount_ratio"] = pricing.Value(s.probs.No) / 100
		// The draw ratio is derived on-chain from the other two.
	}

	return domain.LiquidityPayload{
		MarketAddress: s.params.Address,
		Asset:         s.params.ReserveAsset,
		Amount:        q.Pricing.GrossAmount,
		Data:          data,
		FromAddress:   s.recipient,
	}, nil
}

// refreshEstimateLocked resets the estimate for the current inputs and,
// when foreign funding with a usable amount is selected, issues a new
// request under a freshly incremented request ID.
func (s *Session) refreshEstimateLocked(ctx context.Context) {
	s.reqSeq++
	id := s.reqSeq

	if s.funding.IsHome() || !s.amount.Valid || s.amount.Value <= 0 {
		s.estimate = domain.EstimateState{RequestID: id}
		return
	}

	s.estimate = domain.EstimateState{Pending: true, RequestID: id}

	req := domain.EstimateRequest{
		Amount:     s.amount.Value,
		SrcNetwork: s.funding.Network,
		SrcAsset:   s.funding.Asset,
		DstAsset:   s.params.ReserveAsset,
		Recipient:  s.recipient,
	}

	go s.fetchEstimate(ctx, id, req)
}

func (s *Session) fetchEstimate(ctx context.Context, id uint64, req domain.EstimateRequest) {
	value, err := s.estimator.EstimateOutput(ctx, req)
	s.commitEstimate(ctx, id, value, err)
}

// commitEstimate applies an estimate response only while its request ID
// is still the latest issued one; responses to superseded requests are
// discarded. Failures and non-positive results commit as value 0.
func (s *Session) commitEstimate(ctx context.Context, id uint64, value float64, err error) {
	s.mu.Lock()

	if id != s.reqSeq {
		latest := s.reqSeq
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "discarding stale estimate",
			slog.Uint64("request_id", id),
			slog.Uint64("latest", latest),
		)
		return
	}

	next := domain.EstimateState{RequestID: id}
	switch {
	case err != nil:
		next.Err = err.Error()
		s.logger.WarnContext(ctx, "bridge estimate failed",
			slog.Uint64("request_id", id),
			slog.String("error", err.Error()),
		)
	case value > 0:
		next.Value = value
	}
	s.estimate = next

	notify := s.notify
	var q domain.Quote
	if notify != nil {
		q = s.quoteLocked()
	}
	s.mu.Unlock()

	if notify != nil {
		notify(q)
	}
}

// quoteLocked derives the full quote from current inputs. A pending
// estimate contributes no funding amount, so downstream pricing can
// never briefly reflect a previous amount as if it matched the current
// one.
func (s *Session) quoteLocked() domain.Quote {
	gross := s.grossLocked()
	res := pricing.Price(s.params, s.state, gross, s.probs)

	percentSum := pricing.PercentSum(s.probs, s.params.AllowDraw)
	ok, reason := pricing.Verdict(s.params, s.state, s.amount, s.probs, res.NetAmount, percentSum)

	if ok && !s.funding.IsHome() && s.estimate.Err != "" {
		ok, reason = false, "bridge estimate unavailable"
	}

	q := domain.Quote{
		SessionID:     s.id,
		Market:        s.params.Address,
		FirstIssuance: s.state.IsEmpty(),
		Pricing:       res,
		PercentSum:    percentSum,
		DrawPercent:   pricing.DrawPercent(s.probs, s.params.AllowDraw),
		Breakdown:     pricing.Breakdown(s.params, s.state, res, s.probs),
		Estimate:      s.estimate,
		Submittable:   ok,
		Reason:        reason,
		ComputedAt:    time.Now().UTC(),
	}

	if !s.funding.IsHome() && s.amount.Valid && s.amount.Value > 0 {
		q.AssistantFee = s.amount.Value * AssistantRewardPercent / 100
		if s.estimate.Value > 0 && s.funding.ForeignAsset != s.params.ReserveAsset {
			q.SwapRate = s.estimate.Value / (s.amount.Value * 0.99)
		}
	}

	return q
}

// grossLocked resolves the reserve-asset base units credited to the
// market: the typed amount for home funding, the committed estimate for
// foreign funding, zero while no usable figure exists.
func (s *Session) grossLocked() int64 {
	if !s.amount.Valid || s.amount.Value <= 0 {
		return 0
	}
	if s.funding.IsHome() {
		return pricing.BaseUnits(s.amount.Value, s.params.ReserveDecimals)
	}
	if s.estimate.Pending || s.estimate.Value <= 0 {
		return 0
	}
	return pricing.BaseUnits(s.estimate.Value, s.params.ReserveDecimals)
}
