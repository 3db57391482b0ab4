package chat

import (
	"github.com/rs/zerolog"

	"hallchat/internal/pkg/logx"
)

// Bus delivers events to connected clients. Delivery is best effort.
type Bus interface {
	// Broadcast sends the event to every registered connection.
	Broadcast(event string, payload any)

	// SendTo sends the event to one connection. Unknown ids are ignored.
	SendTo(connID, event string, payload any)
}

// Fanout is the Bus over a Registry's outboxes. Each event is encoded once and
// enqueued to a snapshot of the recipients taken at call time.
type Fanout struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewFanout returns a Fanout delivering to the outboxes registered in registry.
func NewFanout(registry *Registry) *Fanout {
	return &Fanout{
		registry: registry,
		logger:   logx.Component("BroadcastBus"),
	}
}

func (f *Fanout) Broadcast(event string, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		f.logger.Error().Err(err).Str("event", event).Msg("Failed to encode broadcast frame")
		return
	}

	recipients := f.registry.outboxes()

	dropped := 0
	for _, out := range recipients {
		if !out.Enqueue(frame) {
			dropped++
		}
	}

	if dropped > 0 {
		f.logger.Debug().
			Str("event", event).
			Int("recipients", len(recipients)).
			Int("dropped", dropped).
			Msg("Broadcast not delivered to every connection")
	}
}

func (f *Fanout) SendTo(connID, event string, payload any) {
	out, ok := f.registry.outbox(connID)
	if !ok {
		f.logger.Debug().Str("conn_id", connID).Str("event", event).Msg("Unicast target is not connected")
		return
	}

	frame, err := EncodeFrame(event, payload)
	if err != nil {
		f.logger.Error().Err(err).Str("event", event).Msg("Failed to encode unicast frame")
		return
	}

	if !out.Enqueue(frame) {
		f.logger.Debug().Str("conn_id", connID).Str("event", event).Msg("Unicast frame dropped")
	}
}
