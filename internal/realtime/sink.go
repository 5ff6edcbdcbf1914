package realtime

import (
	"context"

	"proudprofit/internal/models"
)

// SignalStored broadcasts every accepted signal to live clients,
// independent of the gated per-user path. Implements signal.Sink.
func (h *Hub) SignalStored(_ context.Context, sig models.Signal) {
	h.Publish(Event{
		Type:   EventSignal,
		Ticker: sig.Ticker,
		Data:   sig,
	})
}
