package domain

// HomeNetwork is the network name of the market's own chain. Funding
// selected on the home network is credited as-is; anything else must be
// bridged and therefore estimated first.
const HomeNetwork = "Obyte"

// FundingSelection identifies the asset a deposit is funded with. Exactly
// one selection is active per quote session; switching it invalidates any
// pending bridge estimate.
type FundingSelection struct {
	Network      string // source network, e.g. "Obyte", "Ethereum", "BSC"
	Asset        string // asset ID on the source network
	Decimals     int    // display decimals of the source asset
	Symbol       string // display symbol of the source asset
	ForeignAsset string // bridged counterpart asset ID on the home chain
}

// IsHome reports whether the selection is the market's own chain, in
// which case no bridge estimate is needed.
func (f FundingSelection) IsHome() bool {
	return f.Network == HomeNetwork
}

// AmountInput is the raw funding amount as the user typed it, together
// with its validity. Edits that violate hard constraints (too many
// decimal places, over the overflow ceiling) are never applied, so Raw
// always holds the last accepted text.
type AmountInput struct {
	Raw   string
	Value float64 // parsed display-unit value, 0 when Raw is empty
	Valid bool
}

// EstimateState tracks the outcome of the most recent bridge estimate
// request. RequestID is a session-monotonic counter: a response commits
// only while its ID is still the latest issued one, so out-of-order
// completions of superseded requests are discarded.
type EstimateState struct {
	Value     float64 // estimated reserve-asset amount in display units
	Pending   bool    // a request is in flight; Value is not usable yet
	Err       string  // non-fatal estimator error, empty when ok
	RequestID uint64
}

// BridgeToken describes one bridged asset available as a funding source,
// as advertised by the bridge collaborator.
type BridgeToken struct {
	HomeNetwork   string `json:"home_network"`
	HomeAsset     string `json:"home_asset"`
	HomeSymbol    string `json:"home_symbol"`
	HomeDecimals  int    `json:"home_asset_decimals"`
	ForeignAsset  string `json:"foreign_asset"`
	ExportAddress string `json:"export_address"` // bridge export contract on the source network
	BridgeID      int64  `json:"bridge_id"`
}

// BridgeTransfer is a composed source-chain bridge transaction: calling
// To with Calldata (and Value for native-coin bridges) moves the funding
// amount toward the home-chain recipient. The daemon never broadcasts
// it; the user's wallet does.
type BridgeTransfer struct {
	Network  string `json:"network"`
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`    // native-coin amount in base units, decimal
	Calldata string `json:"calldata"` // 0x-prefixed hex
}
