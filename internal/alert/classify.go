package alert

import (
	"strings"

	"proudprofit/internal/models"
	"proudprofit/internal/timing"
)

// classifyUrgency maps a stored signal onto the gate's urgency scale.
// Liquidation-style events are critical and bypass every gate; higher
// timeframes carry more weight than intraday noise.
func classifyUrgency(sig models.Signal) string {
	strategy := strings.ToLower(sig.Strategy)
	message := strings.ToLower(sig.Message)
	for _, kw := range []string{"liquidation", "stop_loss", "stop loss", "critical"} {
		if strings.Contains(strategy, kw) || strings.Contains(message, kw) {
			return timing.UrgencyCritical
		}
	}
	switch sig.Timeframe {
	case "1d", "3d", "1w", "1M":
		return timing.UrgencyHigh
	}
	return timing.UrgencyNormal
}

// classifyMinor marks signals a low-frequency user would not want:
// sub-15m scalps and plain hold updates.
func classifyMinor(sig models.Signal) bool {
	switch sig.Timeframe {
	case "1m", "3m", "5m":
		return true
	}
	if sig.Action == models.ActionHold {
		return true
	}
	return strings.Contains(strings.ToLower(sig.Strategy), "scalp")
}
