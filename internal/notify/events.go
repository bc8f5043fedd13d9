package notify

import "fmt"

// Operational event names. The config's notify.events list selects which
// of these reach the configured channels.
const (
	EventEstimateFailed  = "estimate_failed"
	EventPayloadProduced = "payload_produced"
	EventError           = "error"
)

// EstimateFailedMessage formats the alert for a failed bridge estimate.
func EstimateFailedMessage(market, network, asset string, amount float64, errMsg string) (title, message string) {
	title = "Bridge estimate failed"
	message = fmt.Sprintf("market %s\nfunding %s/%s amount %.6f\nerror: %s",
		market, network, asset, amount, errMsg)
	return title, message
}

// PayloadProducedMessage formats the alert for a produced liquidity payload.
func PayloadProducedMessage(market string, gross, yes, no, draw int64) (title, message string) {
	title = "Liquidity payload produced"
	message = fmt.Sprintf("market %s\ngross %d\nyes %d / no %d / draw %d",
		market, gross, yes, no, draw)
	return title, message
}
