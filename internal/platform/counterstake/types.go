package counterstake

import (
	"encoding/json"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// apiEnvelope is the common response wrapper of the bridge witness API.
// Data is left raw so each endpoint can decode its own payload shape.
type apiEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

// APIBridge is one bridge as returned by the /api/bridges endpoint.
type APIBridge struct {
	BridgeID          int64  `json:"bridge_id"`
	HomeNetwork       string `json:"home_network"`
	HomeAsset         string `json:"home_asset"`
	HomeSymbol        string `json:"home_symbol"`
	HomeAssetDecimals int    `json:"home_asset_decimals"`
	ForeignNetwork    string `json:"foreign_network"`
	ForeignAsset      string `json:"foreign_asset"`
	ForeignSymbol     string `json:"foreign_symbol"`
	ForeignDecimals   int    `json:"foreign_asset_decimals"`
	ExportAA          string `json:"export_aa"`
	StakeAsset        string `json:"stake_asset"`
}

// estimateRequest is the body of a POST /api/estimate call.
type estimateRequest struct {
	Amount           float64 `json:"amount"`
	SrcNetwork       string  `json:"src_network"`
	SrcAsset         string  `json:"src_asset"`
	DstNetwork       string  `json:"dst_network"`
	DstAsset         string  `json:"dst_asset"`
	RecipientAddress string  `json:"recipient_address,omitempty"`
}

// ToDomainToken converts an API bridge into the funding-source token the
// engine understands. Bridge naming is origin-oriented: the home side is
// the chain the asset is native to (what the user spends), the foreign
// side is its imported counterpart on the market's chain.
func (b *APIBridge) ToDomainToken() domain.BridgeToken {
	return domain.BridgeToken{
		HomeNetwork:   b.HomeNetwork,
		HomeAsset:     b.HomeAsset,
		HomeSymbol:    b.HomeSymbol,
		HomeDecimals:  b.HomeAssetDecimals,
		ForeignAsset:  b.ForeignAsset,
		ExportAddress: b.ExportAA,
		BridgeID:      b.BridgeID,
	}
}
