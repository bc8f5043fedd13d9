package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/prophetmarkets/liquidityd/internal/domain"
	"github.com/prophetmarkets/liquidityd/internal/notify"
	"github.com/prophetmarkets/liquidityd/internal/platform/evm"
	"github.com/prophetmarkets/liquidityd/internal/platform/obyte"
	"github.com/prophetmarkets/liquidityd/internal/session"
)

// evmNativeAsset is the asset ID Counterstake uses for a chain's native
// coin.
const evmNativeAsset = "0x0000000000000000000000000000000000000000"

// Notifier is the slice of the notification dispatcher the quote service
// uses.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// sessionEntry tracks one live session and when it was last touched, for
// idle eviction.
type sessionEntry struct {
	sess      *session.Session
	lastTouch time.Time
}

// QuoteService owns the registry of live pricing sessions. It creates
// sessions against market snapshots, routes input edits to them, fans
// live market state into them, and turns submittable quotes into
// persisted payloads.
type QuoteService struct {
	markets   *MarketService
	estimator domain.BridgeEstimator
	tokens    domain.TokenRegistry
	quotes    domain.QuoteStore
	audit     domain.AuditStore
	notifier  Notifier
	sender    *evm.Sender
	recipient string
	idle      time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	sessions  map[string]*sessionEntry
	onQuote   func(sessionID string, q domain.Quote)
	onSession func(ctx context.Context, market string) error
}

// NewQuoteService creates a QuoteService with all required dependencies.
// recipient is the home-chain address bridged funds are sent to; idle is
// how long an untouched session survives before eviction.
func NewQuoteService(
	markets *MarketService,
	estimator domain.BridgeEstimator,
	tokens domain.TokenRegistry,
	quotes domain.QuoteStore,
	audit domain.AuditStore,
	notifier Notifier,
	recipient string,
	idle time.Duration,
	logger *slog.Logger,
) *QuoteService {
	return &QuoteService{
		markets:   markets,
		estimator: estimator,
		tokens:    tokens,
		quotes:    quotes,
		audit:     audit,
		notifier:  notifier,
		recipient: recipient,
		idle:      idle,
		logger:    logger.With(slog.String("component", "quote_service")),
		sessions:  make(map[string]*sessionEntry),
	}
}

// UseSender enables bridge-transfer composition with the given funding
// wallet. Without it ComposeTransfer reports ErrWalletNotSet.
func (s *QuoteService) UseSender(sender *evm.Sender) {
	s.sender = sender
}

// OnQuote registers a callback invoked whenever a session's quote
// changes asynchronously (estimate commits, live state updates). The
// server uses it to push quote frames over WebSocket.
func (s *QuoteService) OnQuote(fn func(sessionID string, q domain.Quote)) {
	s.mu.Lock()
	s.onQuote = fn
	s.mu.Unlock()
}

// OnSessionCreated registers a hook invoked with the market address of
// every newly created session. The app uses it to point the live
// state subscription at the market being priced. Hook errors are logged,
// not fatal; pricing falls back to the cached snapshot.
func (s *QuoteService) OnSessionCreated(fn func(ctx context.Context, market string) error) {
	s.mu.Lock()
	s.onSession = fn
	s.mu.Unlock()
}

// CreateSession opens a new pricing session against the given market and
// returns its initial quote.
func (s *QuoteService) CreateSession(ctx context.Context, market string) (domain.Quote, error) {
	snap, err := s.markets.GetMarket(ctx, market)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("quote_service: create session: %w", err)
	}

	sess := session.New(snap.Params, snap.State, s.estimator, s.recipient, s.logger)
	sess.OnUpdate(func(q domain.Quote) { s.handleAsyncQuote(sess, q) })

	s.mu.Lock()
	s.sessions[sess.ID()] = &sessionEntry{sess: sess, lastTouch: time.Now()}
	total := len(s.sessions)
	onSession := s.onSession
	s.mu.Unlock()

	if onSession != nil {
		if err := onSession(ctx, market); err != nil {
			s.logger.WarnContext(ctx, "state subscription switch failed",
				slog.String("market", market),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "session created",
		slog.String("session_id", sess.ID()),
		slog.String("market", market),
		slog.Int("live_sessions", total),
	)

	return sess.Quote(), nil
}

// CloseSession removes a session from the registry.
func (s *QuoteService) CloseSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// SetAmount applies an amount edit to a session.
func (s *QuoteService) SetAmount(ctx context.Context, id, raw string) (domain.Quote, error) {
	sess, err := s.get(id)
	if err != nil {
		return domain.Quote{}, err
	}
	return sess.SetAmount(ctx, raw), nil
}

// SelectFunding switches a session's funding asset.
func (s *QuoteService) SelectFunding(ctx context.Context, id string, sel domain.FundingSelection) (domain.Quote, error) {
	sess, err := s.get(id)
	if err != nil {
		return domain.Quote{}, err
	}
	return sess.SelectFunding(ctx, sel), nil
}

// SetProbability applies a probability edit to a session.
func (s *QuoteService) SetProbability(id string, outcome domain.Outcome, raw string) (domain.Quote, error) {
	sess, err := s.get(id)
	if err != nil {
		return domain.Quote{}, err
	}
	return sess.SetProbability(outcome, raw), nil
}

// Quote returns a session's current quote.
func (s *QuoteService) Quote(id string) (domain.Quote, error) {
	sess, err := s.get(id)
	if err != nil {
		return domain.Quote{}, err
	}
	return sess.Quote(), nil
}

// BuildPayload produces the on-chain payload for a submittable session,
// persists the quote record, and returns the payload together with its
// wallet payment URI.
func (s *QuoteService) BuildPayload(ctx context.Context, id string) (domain.LiquidityPayload, string, error) {
	sess, err := s.get(id)
	if err != nil {
		return domain.LiquidityPayload{}, "", err
	}

	payload, err := sess.Payload()
	if err != nil {
		return domain.LiquidityPayload{}, "", fmt.Errorf("quote_service: build payload: %w", err)
	}

	q := sess.Quote()
	funding := sess.Funding()

	rec := domain.QuoteRecord{
		SessionID:      id,
		MarketAddress:  payload.MarketAddress,
		FundingNetwork: funding.Network,
		FundingAsset:   funding.Asset,
		GrossAmount:    q.Pricing.GrossAmount,
		NetAmount:      q.Pricing.NetAmount,
		YesAmount:      q.Pricing.YesAmount,
		NoAmount:       q.Pricing.NoAmount,
		DrawAmount:     q.Pricing.DrawAmount,
		Payload:        payload,
	}

	// The store is nil in monitor mode; payloads are produced but not
	// recorded there.
	var recID int64
	if s.quotes != nil {
		recID, err = s.quotes.Insert(ctx, rec)
		if err != nil {
			return domain.LiquidityPayload{}, "", fmt.Errorf("quote_service: persist quote: %w", err)
		}
	}

	uri, err := obyte.PaymentURI(payload)
	if err != nil {
		return domain.LiquidityPayload{}, "", fmt.Errorf("quote_service: build payload: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.Log(ctx, "quote.payload_produced", map[string]any{
			"quote_id":   recID,
			"session_id": id,
			"market":     payload.MarketAddress,
			"gross":      q.Pricing.GrossAmount,
		}); err != nil {
			s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}

	title, message := notify.PayloadProducedMessage(payload.MarketAddress,
		q.Pricing.GrossAmount, q.Pricing.YesAmount, q.Pricing.NoAmount, q.Pricing.DrawAmount)
	if err := s.notifier.Notify(ctx, notify.EventPayloadProduced, title, message); err != nil {
		s.logger.WarnContext(ctx, "notification failed", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "payload produced",
		slog.String("session_id", id),
		slog.String("market", payload.MarketAddress),
		slog.Int64("quote_id", recID),
		slog.Int64("gross", q.Pricing.GrossAmount),
	)

	return payload, uri, nil
}

// ComposeTransfer builds the source-chain wallet transaction that
// bridges a session's funding amount to the home-chain recipient. It
// applies only to foreign EVM funding; home-chain deposits go through
// the payment URI instead.
func (s *QuoteService) ComposeTransfer(ctx context.Context, id string) (domain.BridgeTransfer, error) {
	sess, err := s.get(id)
	if err != nil {
		return domain.BridgeTransfer{}, err
	}

	funding := sess.Funding()
	if funding.IsHome() {
		return domain.BridgeTransfer{}, fmt.Errorf("quote_service: compose transfer: %w", domain.ErrNoBridge)
	}
	if s.sender == nil {
		return domain.BridgeTransfer{}, fmt.Errorf("quote_service: compose transfer: %w", domain.ErrWalletNotSet)
	}

	amount := sess.Amount()
	if !amount.Valid || amount.Value <= 0 {
		return domain.BridgeTransfer{}, fmt.Errorf("quote_service: compose transfer: %w", domain.ErrNotSubmittable)
	}

	token, err := s.findToken(ctx, funding)
	if err != nil {
		return domain.BridgeTransfer{}, fmt.Errorf("quote_service: compose transfer: %w", err)
	}
	if token.ExportAddress == "" {
		return domain.BridgeTransfer{}, fmt.Errorf("quote_service: compose transfer: bridge %d has no export contract", token.BridgeID)
	}

	units := baseUnits(amount.Value, funding.Decimals)
	reward := evm.AssistantReward(units, session.AssistantRewardPercent)
	native := funding.Asset == evmNativeAsset

	t, err := s.sender.ComposeTransfer(token.ExportAddress, s.recipient, "", units, reward, native)
	if err != nil {
		return domain.BridgeTransfer{}, fmt.Errorf("quote_service: compose transfer: %w", err)
	}

	s.logger.InfoContext(ctx, "bridge transfer composed",
		slog.String("session_id", id),
		slog.String("network", funding.Network),
		slog.String("bridge", token.ExportAddress),
		slog.String("amount", units.String()),
	)

	return domain.BridgeTransfer{
		Network:  funding.Network,
		From:     t.From.Hex(),
		To:       t.To.Hex(),
		Value:    t.Value.String(),
		Calldata: "0x" + hex.EncodeToString(t.Calldata),
	}, nil
}

// findToken resolves a funding selection against the bridge registry.
func (s *QuoteService) findToken(ctx context.Context, funding domain.FundingSelection) (domain.BridgeToken, error) {
	byNetwork, err := s.tokens.TokensByNetwork(ctx)
	if err != nil {
		return domain.BridgeToken{}, err
	}
	for _, t := range byNetwork[funding.Network] {
		if t.HomeAsset == funding.Asset {
			return t, nil
		}
	}
	return domain.BridgeToken{}, fmt.Errorf("bridge token %s on %s: %w", funding.Asset, funding.Network, domain.ErrNotFound)
}

// baseUnits converts a display-unit amount to source base units.
func baseUnits(value float64, decimals int) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(value), big.NewFloat(math.Pow10(decimals)))
	out, _ := scaled.Int(nil)
	return out
}

// ListQuotes returns persisted quote records for a market.
func (s *QuoteService) ListQuotes(ctx context.Context, market string, opts domain.ListOpts) ([]domain.QuoteRecord, error) {
	if s.quotes == nil {
		return nil, nil
	}
	return s.quotes.List(ctx, market, opts)
}

// Tokens lists the bridged funding assets grouped by source network.
func (s *QuoteService) Tokens(ctx context.Context) (map[string][]domain.BridgeToken, error) {
	return s.tokens.TokensByNetwork(ctx)
}

// HandleStateUpdate is the live-subscription sink. It refreshes the
// cached state and reprices every session tracking the updated market.
func (s *QuoteService) HandleStateUpdate(address string, state domain.MarketState) {
	ctx := context.Background()
	s.markets.RefreshState(ctx, address, state)

	s.mu.Lock()
	var affected []*session.Session
	for _, e := range s.sessions {
		if e.sess.Market() == address {
			affected = append(affected, e.sess)
		}
	}
	onQuote := s.onQuote
	s.mu.Unlock()

	for _, sess := range affected {
		q := sess.UpdateState(state)
		if onQuote != nil {
			onQuote(sess.ID(), q)
		}
	}

	if len(affected) > 0 {
		s.logger.Debug("state update fanned out",
			slog.String("market", address),
			slog.Int("sessions", len(affected)),
		)
	}
}

// Run evicts idle sessions until the context is cancelled.
func (s *QuoteService) Run(ctx context.Context) error {
	interval := s.idle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.evictIdle(ctx)
		}
	}
}

func (s *QuoteService) evictIdle(ctx context.Context) {
	cutoff := time.Now().Add(-s.idle)

	s.mu.Lock()
	var evicted []string
	for id, e := range s.sessions {
		if e.lastTouch.Before(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	for _, id := range evicted {
		s.logger.InfoContext(ctx, "session evicted",
			slog.String("session_id", id),
			slog.Int("live_sessions", remaining),
		)
	}
}

// handleAsyncQuote runs on estimate commits: it pushes the fresh quote
// to the registered sink and raises an alert when the estimate failed.
func (s *QuoteService) handleAsyncQuote(sess *session.Session, q domain.Quote) {
	s.mu.Lock()
	onQuote := s.onQuote
	s.mu.Unlock()

	if onQuote != nil {
		onQuote(sess.ID(), q)
	}

	if q.Estimate.Err == "" {
		return
	}

	ctx := context.Background()
	funding := sess.Funding()
	amount := sess.Amount()
	title, message := notify.EstimateFailedMessage(sess.Market(),
		funding.Network, funding.Symbol, amount.Value, q.Estimate.Err)
	if err := s.notifier.Notify(ctx, notify.EventEstimateFailed, title, message); err != nil {
		s.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}

// get looks up a live session and refreshes its idle timer.
func (s *QuoteService) get(id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("quote_service: session %q: %w", id, domain.ErrNotFound)
	}
	e.lastTouch = time.Now()
	return e.sess, nil
}
