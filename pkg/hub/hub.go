package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-emotify/internal/log"
)

// Sink is where a hub delivers messages for one client.
type Sink interface {
	ID() string
	Queue() chan Message
}

// Stats counts hub traffic.
type Stats struct {
	Clients   int    `json:"clients"`
	Broadcast uint64 `json:"broadcast"`
	Dropped   uint64 `json:"dropped"`
	Evicted   uint64 `json:"evicted"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[string]Sink
	broadcast  chan Message
	register   chan Sink
	unregister chan Sink

	mu      sync.RWMutex
	running atomic.Bool

	sent    atomic.Uint64
	dropped atomic.Uint64
	evicted atomic.Uint64
}

// New creates a hub. Call Run to start it.
func New(name string, logger *slog.Logger) *Hub {
	return &Hub{
		name:       name,
		logger:     log.Or(logger, "hub").With("hub", name),
		clients:    make(map[string]Sink),
		broadcast:  make(chan Message, 256),
		register:   make(chan Sink),
		unregister: make(chan Sink),
	}
}

// Name returns the hub name.
func (h *Hub) Name() string {
	return h.name
}

// Run owns the client set until ctx is done. Remaining clients have their
// queues closed on exit.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.Queue())
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.ID()] = c
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "client", c.ID(), "total", count)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.ID()]; ok {
				delete(h.clients, c.ID())
				close(c.Queue())
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "client", c.ID(), "remaining", count)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for id, c := range h.clients {
				select {
				case c.Queue() <- msg:
				default:
					close(c.Queue())
					delete(h.clients, id)
					h.evicted.Add(1)
					h.logger.Warn("dropped slow client", "client", id)
				}
			}
			h.mu.Unlock()
			h.sent.Add(1)
		}
	}
}

// Register adds a client. It blocks until the hub accepts it or ctx ends.
func (h *Hub) Register(ctx context.Context, c Sink) bool {
	select {
	case h.register <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(ctx context.Context, c Sink) {
	select {
	case h.unregister <- c:
	case <-ctx.Done():
	}
}

// Broadcast queues a message for all clients without blocking.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast channel full, dropping message")
	}
}

// BroadcastEvent encodes and broadcasts a typed JSON event.
func (h *Hub) BroadcastEvent(eventType string, data any) error {
	msg, err := EncodeEvent(eventType, data)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// BroadcastBinary broadcasts binary data such as camera frames.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats returns a snapshot of the counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients:   h.ClientCount(),
		Broadcast: h.sent.Load(),
		Dropped:   h.dropped.Load(),
		Evicted:   h.evicted.Load(),
	}
}
