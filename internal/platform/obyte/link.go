package obyte

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// PaymentURI renders a liquidity payload as an obyte: payment link that
// any home-chain wallet can open. The trigger data travels base64-encoded
// in the base64data parameter.
func PaymentURI(p domain.LiquidityPayload) (string, error) {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return "", fmt.Errorf("obyte: marshal payment data: %w", err)
	}

	params := url.Values{}
	params.Set("amount", fmt.Sprintf("%d", p.Amount))
	params.Set("asset", p.Asset)
	params.Set("base64data", base64.StdEncoding.EncodeToString(data))
	if p.FromAddress != "" {
		params.Set("from_address", p.FromAddress)
	}

	return fmt.Sprintf("obyte:%s?%s", p.MarketAddress, params.Encode()), nil
}
