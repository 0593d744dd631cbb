package http

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/deckhandhq/deckhand/internal/domain/ports"
	"github.com/deckhandhq/deckhand/internal/logger"
)

// WebSocket keepalive: the server pings every pingInterval and drops
// the connection when no pong arrives within pongTimeout. Writes that
// stall longer than sendTimeout also drop the connection.
const (
	sendTimeout    = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 54 * time.Second
	maxInboundSize = 512
)

// progressClient represents one WebSocket progress subscriber
type progressClient struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan ports.ProgressEvent
	hub    *ProgressHub
	logger *logger.Logger
}

// handleProgressSocket handles WebSocket upgrade requests for progress
// streaming. The user query parameter selects whose generations to
// follow; without it the caller is resolved the same way the generate
// endpoints resolve identity.
func (s *Server) handleProgressSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.allowOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		userID = userIdentity(r)
	}

	client := &progressClient{
		id:     uuid.New().String(),
		userID: userID,
		conn:   conn,
		send:   make(chan ports.ProgressEvent, 256),
		hub:    s.hub,
		logger: s.logger,
	}

	if s.monitor != nil {
		s.monitor.RecordWebSocketConnection()
	}

	s.hub.RegisterConnection(&Connection{
		ID:     client.id,
		UserID: client.userID,
		Send:   client.send,
	})

	go client.writeLoop()
	go client.readLoop()

	// Greet the subscriber so it can tell a live stream from a dead one
	hello := ports.ProgressEvent{
		UserID: userID,
		Stage:  "connected",
		Detail: "progress stream ready",
	}
	select {
	case client.send <- hello:
	default:
	}
}

// readLoop drains the connection until it closes. Subscribers never
// send commands; reading only services pongs and close frames.
func (c *progressClient) readLoop() {
	defer func() {
		c.hub.Unregister(c.id)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket connection error", "id", c.id, "error", err)
			}
			return
		}
	}
}

// writeLoop forwards progress events to the peer and keeps the
// connection alive with pings.
func (c *progressClient) writeLoop() {
	pinger := time.NewTicker(pingInterval)
	defer func() {
		pinger.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
			if !ok {
				// Hub closed the channel; say goodbye properly
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-pinger.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// allowOrigin is the upgrader's CheckOrigin hook. Browsers send Origin
// on upgrade; non-browser clients usually omit it and are let through.
func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		s.logger.Warn("websocket origin rejected", "origin", origin, "error", err)
		return false
	}

	if s.config.Server.IsDevelopment() && isLocalOrigin(u.Hostname()) {
		return true
	}

	for _, allowed := range s.config.Server.GetCORSOrigins() {
		if originMatches(u, allowed) {
			return true
		}
	}

	s.logger.Warn("websocket origin rejected",
		"origin", origin,
		"allowed_origins", s.config.Server.GetCORSOrigins())
	return false
}

// isLocalOrigin reports whether the origin host is this machine or a
// private LAN address. Development pages are typically served from one
// of these.
func isLocalOrigin(hostname string) bool {
	if hostname == "localhost" {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified())
}

// originMatches supports "*", exact whitelist entries, and *.domain
// wildcards.
func originMatches(u *url.URL, allowed string) bool {
	if allowed == "*" {
		return true
	}
	if domain, ok := strings.CutPrefix(allowed, "*."); ok {
		return strings.HasSuffix(u.Hostname(), domain)
	}
	return u.String() == allowed
}
