// Package server coordinates client registration, event routing, and
// connection cleanup for the relay via the Hub type.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/roomrelay/internal/chat"
	"github.com/Tyrowin/roomrelay/internal/protocol"
)

// Hub owns the router and every registered client. Run is the only goroutine
// that touches them; other goroutines talk to the hub through its channels,
// so room membership and the registry change one event at a time.
type Hub struct {
	cfg         Config
	log         *slog.Logger
	router      *chat.Router
	broadcaster *chat.Broadcaster
	metrics     *Metrics

	clients    map[chat.ConnID]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
	queries    chan func()

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a Hub around router. The returned Hub does nothing until Run
// is started.
func NewHub(cfg Config, log *slog.Logger, router *chat.Router, metrics *Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:        sanitizeConfig(cfg),
		log:        log,
		router:     router,
		metrics:    metrics,
		clients:    make(map[chat.ConnID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		queries:    make(chan func()),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.broadcaster = chat.NewBroadcaster(h, log)
	h.broadcaster.OnDrop(func(chat.ConnID, error) { h.metrics.dropped.Inc() })
	return h
}

// Register hands a new client to the hub. It reports false once the hub has
// shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister tears the client down. Only the first call for a client has an
// effect, whichever path detects the disconnect first.
func (h *Hub) Unregister(client *Client) {
	client.teardown.Do(func() {
		select {
		case h.unregister <- client:
		case <-h.ctx.Done():
		}
	})
}

// Submit decodes a raw frame from client and queues it for routing.
func (h *Hub) Submit(client *Client, raw []byte) {
	event, err := protocol.Decode(raw)
	h.enqueue(inboundEvent{client: client, event: event, err: err})
}

func (h *Hub) enqueue(in inboundEvent) {
	select {
	case h.inbound <- in:
	case <-h.ctx.Done():
	}
}

// Send implements chat.Sender over the clients' outbound queues. It is only
// called from Run.
func (h *Hub) Send(id chat.ConnID, payload []byte) error {
	client, ok := h.clients[id]
	if !ok || client.closed {
		return chat.ErrNotOpen
	}
	select {
	case client.send <- payload:
		return nil
	default:
		return chat.ErrBackpressure
	}
}

// RoomMembers returns the members of room as seen by the hub.
func (h *Hub) RoomMembers(room string) ([]chat.ConnID, bool) {
	var (
		members []chat.ConnID
		ok      bool
	)
	h.query(func() { members, ok = h.router.Members(room) })
	return members, ok
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	var n int
	h.query(func() { n = h.router.ConnectionCount() })
	return n
}

func (h *Hub) query(fn func()) bool {
	done := make(chan struct{})
	select {
	case h.queries <- func() { fn(); close(done) }:
	case <-h.ctx.Done():
		return false
	}
	<-done
	return true
}

// Run starts the hub's main event loop. This method should be called in a
// separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case in := <-h.inbound:
			h.handleInbound(in)

		case fn := <-h.queries:
			fn()
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.log.Warn("Received nil client registration; skipping")
		return
	}

	deliveries, err := h.router.Connect(client.id)
	if err != nil {
		h.log.Error("Client registration refused", "conn", client.id, "addr", client.addr, "err", err)
		client.closed = true
		close(client.send)
		return
	}

	h.clients[client.id] = client
	h.metrics.connections.Set(float64(len(h.clients)))
	h.log.Info("Client registered", "conn", client.id, "addr", client.addr, "total", len(h.clients))

	if client.conn != nil {
		h.startPumps(client)
	}
	h.broadcaster.Deliver(deliveries...)
}

func (h *Hub) handleUnregister(client *Client) {
	if registered, ok := h.clients[client.id]; !ok || registered != client {
		return
	}

	deliveries := h.router.Disconnect(client.id)
	delete(h.clients, client.id)
	client.closed = true
	close(client.send)

	h.metrics.connections.Set(float64(len(h.clients)))
	h.metrics.observeRooms(h.router.RoomSizes())
	h.log.Info("Client unregistered", "conn", client.id, "addr", client.addr, "total", len(h.clients))

	h.broadcaster.Deliver(deliveries...)
}

func (h *Hub) handleInbound(in inboundEvent) {
	client := in.client
	if registered, ok := h.clients[client.id]; !ok || registered != client {
		return
	}

	if in.err != nil {
		if errors.Is(in.err, protocol.ErrUnknownKind) {
			h.log.Debug("Ignoring unknown event kind", "conn", client.id, "err", in.err)
			return
		}
		h.log.Warn("Rejected client frame", "conn", client.id, "addr", client.addr, "err", in.err)
		h.reject(client, in.err)
		return
	}

	h.metrics.inbound.WithLabelValues(string(in.event.Kind())).Inc()
	deliveries, err := h.router.Handle(client.id, in.event)
	if err != nil {
		h.log.Debug("Rejected client event", "conn", client.id, "kind", in.event.Kind(), "err", err)
		h.reject(client, err)
		return
	}

	h.metrics.observeRooms(h.router.RoomSizes())
	h.broadcaster.Deliver(deliveries...)
}

// reject counts the failure and, when enabled, tells the sender why its
// frame was dropped.
func (h *Hub) reject(client *Client, err error) {
	code := errorCode(err)
	h.metrics.rejected.WithLabelValues(string(code)).Inc()
	if !h.cfg.ErrorReplies {
		return
	}
	h.broadcaster.Deliver(chat.Delivery{
		To:    []chat.ConnID{client.id},
		Event: protocol.NewError(code, err.Error()),
	})
}

func (h *Hub) startPumps(client *Client) {
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// shutdownClients closes every connection and outbound queue. The pumps see
// the closed queue or socket and exit; teardown is skipped because the hub is
// no longer routing.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	for id, client := range h.clients {
		delete(h.clients, id)
		client.closed = true
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("Error closing client connection", "conn", id, "addr", client.addr, "err", err)
			}
		}
	}

	h.metrics.connections.Set(0)
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
