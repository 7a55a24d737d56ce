//go:generate go run go.uber.org/mock/mockgen -source=delivery.go -destination=mocks/mock_sender.go -package=mocks
package chat

import (
	"log/slog"

	"github.com/Tyrowin/roomrelay/internal/protocol"
)

// Sender hands an encoded frame to one connection's outbound queue. It must
// not block; a connection that cannot take the frame returns ErrNotOpen or
// ErrBackpressure.
type Sender interface {
	Send(id ConnID, payload []byte) error
}

// Broadcaster fans deliveries out through a Sender. A failed recipient is
// skipped and never stops the rest of the batch.
type Broadcaster struct {
	sender Sender
	log    *slog.Logger
	onDrop func(id ConnID, err error)
}

func NewBroadcaster(sender Sender, log *slog.Logger) *Broadcaster {
	return &Broadcaster{sender: sender, log: log}
}

// OnDrop registers a callback invoked for every recipient that could not be
// reached.
func (b *Broadcaster) OnDrop(fn func(id ConnID, err error)) {
	b.onDrop = fn
}

// Deliver sends the deliveries in order and returns how many frames were
// handed over. Each event is encoded once.
func (b *Broadcaster) Deliver(deliveries ...Delivery) int {
	sent := 0
	for _, d := range deliveries {
		if len(d.To) == 0 {
			continue
		}
		payload, err := protocol.Encode(d.Event)
		if err != nil {
			b.log.Error("Encoding outbound event failed", "kind", d.Event.Kind(), "err", err)
			continue
		}
		for _, id := range d.To {
			if err := b.sender.Send(id, payload); err != nil {
				b.log.Debug("Dropping outbound event", "conn", id, "kind", d.Event.Kind(), "err", err)
				if b.onDrop != nil {
					b.onDrop(id, err)
				}
				continue
			}
			sent++
		}
	}
	return sent
}
