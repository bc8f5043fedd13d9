package obyte

import (
	"encoding/json"
	"strconv"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// APIMarket is a market AA as returned by the hub's AA endpoint: the
// immutable definition params plus display metadata for the reserve
// asset resolved through the token registry.
type APIMarket struct {
	Address string          `json:"address"`
	Params  APIMarketParams `json:"definition_params"`
}

// APIMarketParams mirrors the params section of the market AA definition.
// allow_draw comes over the wire as 0/1 the way the AA stores flags.
type APIMarketParams struct {
	Event           string  `json:"event"`
	AllowDraw       int     `json:"allow_draw"`
	ReserveAsset    string  `json:"reserve_asset"`
	ReserveDecimals int     `json:"reserve_decimals"`
	ReserveSymbol   string  `json:"reserve_symbol"`
	IssueFee        float64 `json:"issue_fee"`
}

// StateVars is the raw AA state-var map. Values arrive as JSON numbers or
// numeric strings depending on magnitude, so they are kept raw and
// decoded per key.
type StateVars map[string]json.RawMessage

// ToDomainParams converts API market params to the engine's type.
func (m *APIMarket) ToDomainParams() domain.MarketParams {
	return domain.MarketParams{
		Address:         m.Address,
		Event:           m.Params.Event,
		AllowDraw:       m.Params.AllowDraw != 0,
		ReserveAsset:    m.Params.ReserveAsset,
		ReserveDecimals: m.Params.ReserveDecimals,
		ReserveSymbol:   m.Params.ReserveSymbol,
		IssueFee:        m.Params.IssueFee,
	}
}

// ToDomainState extracts the market state snapshot from AA state vars.
// Missing vars read as zero, which is exactly the empty-pool state.
func (v StateVars) ToDomainState() domain.MarketState {
	return domain.MarketState{
		SupplyYes:  v.int64Var("supply_yes"),
		SupplyNo:   v.int64Var("supply_no"),
		SupplyDraw: v.int64Var("supply_draw"),
		Reserve:    v.int64Var("reserve"),
	}
}

// Merge applies a state-var diff on top of the current vars and returns
// the merged copy. The receiver is not modified; snapshots stay
// read-only.
func (v StateVars) Merge(diff StateVars) StateVars {
	merged := make(StateVars, len(v)+len(diff))
	for k, raw := range v {
		merged[k] = raw
	}
	for k, raw := range diff {
		merged[k] = raw
	}
	return merged
}

func (v StateVars) int64Var(key string) int64 {
	raw, ok := v[key]
	if !ok {
		return 0
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	// Large AA numbers are serialized as strings.
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return i
}
