package domain

// LiquidityPayload is the fully resolved on-chain payload for an
// add-liquidity deposit. It is produced only when the submit gate passes;
// composing it is a thin serialization step outside the pricing core.
type LiquidityPayload struct {
	MarketAddress string         `json:"market_address"`
	Asset         string         `json:"asset"`
	Amount        int64          `json:"amount"` // base units credited to the market
	Data          map[string]any `json:"data"`   // AA trigger data
	FromAddress   string         `json:"from_address,omitempty"`
}
