package http

import (
	"context"
	"sync"

	"github.com/deckhandhq/deckhand/internal/domain/ports"
	"github.com/deckhandhq/deckhand/internal/logger"
)

// Connection represents one progress subscriber
type Connection struct {
	ID     string
	UserID string
	Send   chan ports.ProgressEvent
}

// ProgressHub fans pipeline progress events out to WebSocket
// subscribers. Events are routed per user: a subscriber only sees the
// stages of its own generations. The hub is the pipeline's ProgressSink,
// and publishing never blocks the pipeline.
type ProgressHub struct {
	mu     sync.Mutex
	subs   map[string]*Connection
	closed bool
	logger *logger.Logger
}

// NewProgressHub creates a new progress hub
func NewProgressHub(log *logger.Logger) *ProgressHub {
	if log == nil {
		log = logger.Nop()
	}
	return &ProgressHub{
		subs:   make(map[string]*Connection),
		logger: log,
	}
}

// Run ties the hub to the server lifetime: when ctx ends, every
// subscriber is disconnected. Registration and publishing work without
// Run; only shutdown needs it.
func (h *ProgressHub) Run(ctx context.Context) {
	<-ctx.Done()
	h.CloseAll()
}

// RegisterConnection adds a subscriber. On a shut-down hub the send
// channel is closed immediately, which tells the write loop to say
// goodbye.
func (h *ProgressHub) RegisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(conn.Send)
		return
	}
	h.subs[conn.ID] = conn
}

// Unregister removes a subscriber and closes its send channel.
// Unregistering an absent ID is a no-op.
func (h *ProgressHub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.subs[connID]; ok {
		close(conn.Send)
		delete(h.subs, connID)
	}
}

// Publish forwards a pipeline progress event to the matching user's
// subscribers. Progress is best-effort: a subscriber whose buffer is
// full is disconnected rather than allowed to stall the pipeline.
func (h *ProgressHub) Publish(event ports.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.subs {
		if conn.UserID != event.UserID {
			continue
		}
		select {
		case conn.Send <- event:
		default:
			h.logger.Debug("dropping slow progress client", "id", id)
			close(conn.Send)
			delete(h.subs, id)
		}
	}
}

// Count returns the number of connected subscribers
func (h *ProgressHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// CloseAll disconnects every subscriber and turns away late joiners.
// Safe to call more than once.
func (h *ProgressHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, conn := range h.subs {
		close(conn.Send)
		delete(h.subs, id)
	}
}

// Ensure ProgressHub implements ports.ProgressSink
var _ ports.ProgressSink = (*ProgressHub)(nil)
