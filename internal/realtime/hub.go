// Package realtime fans accepted signals and price events out to live
// subscribers. Best-effort and at-most-once: a slow or disconnected
// subscriber misses events, and nothing here is part of the durable
// notification guarantee.
package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"proudprofit/internal/metrics"
)

const (
	EventSignal       = "signal"
	EventPrice        = "price"
	EventNotification = "notification"
)

// Event is one broadcast message. Payload must be JSON-marshalable.
type Event struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Ticker string    `json:"ticker,omitempty"`
	At     time.Time `json:"at"`
	Data   any       `json:"data,omitempty"`
}

type Hub struct {
	Logger *zap.Logger
	// Buffer sizes each subscriber channel; overflow drops events.
	Buffer int

	mu      sync.RWMutex
	subs    map[uint64]chan Event
	nextID  uint64
	dropped uint64
}

func NewHub(logger *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		Logger: logger,
		Buffer: buffer,
		subs:   map[uint64]chan Event{},
	}
}

// Subscribe returns a receive channel and a cancel func. Cancel must be
// called exactly once; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.Buffer)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers to every current subscriber without blocking. Events
// for full subscriber buffers are dropped and counted.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Hub must not block on slow subscribers.
			atomic.AddUint64(&h.dropped, 1)
			metrics.RealtimeDropped.Inc()
		}
	}
}

// Dropped reports the lifetime count of events lost to slow subscribers.
func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

// Subscribers reports the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
