package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"featmark/internal/lint"
	"featmark/internal/validation"

	"github.com/coder/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// UpdateMessage is the payload pushed to connected preview pages. Type is
// "full_reload", "lint_report", or "check_error". Report carries the
// findings for lint_report; Content carries the rendered problems page for
// check_error.
type UpdateMessage struct {
	Type      string       `json:"type"`
	Path      string       `json:"path,omitempty"`
	Content   string       `json:"content,omitempty"`
	Report    *lint.Report `json:"report,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Client is one connected preview page.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *PreviewServer
}

// handleWebSocket upgrades the request and hands the connection to the hub.
func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The origin was already validated against the allowlist above.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	go client.writePump()
	go client.readPump()

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// checkOrigin accepts browsers on the serve host plus any configured extra
// origins. Requests without an Origin header are rejected.
func (s *PreviewServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	port := s.config.Server.Port
	allowed := []string{
		fmt.Sprintf("%s:%d", s.config.Server.Host, port),
		fmt.Sprintf("localhost:%d", port),
		fmt.Sprintf("127.0.0.1:%d", port),
	}
	allowed = append(allowed, s.config.Server.AllowedOrigins...)

	if err := validation.ValidateOrigin(origin, allowed); err != nil {
		s.logger.Debug(r.Context(), "websocket origin rejected", "origin", origin)
		return false
	}
	return true
}

// runWebSocketHub owns the client set. Joins, leaves, and broadcasts all go
// through its channels, so pump goroutines never mutate the map.
func (s *PreviewServer) runWebSocketHub(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return

		case client := <-s.register:
			s.clientsMutex.Lock()
			s.clients[client.conn] = client
			count := len(s.clients)
			s.clientsMutex.Unlock()
			s.logger.Debug(ctx, "preview client connected", "clients", count)

		case conn := <-s.unregister:
			s.clientsMutex.Lock()
			if client, ok := s.clients[conn]; ok {
				delete(s.clients, conn)
				close(client.send)
				conn.Close(websocket.StatusNormalClosure, "")
			}
			count := len(s.clients)
			s.clientsMutex.Unlock()
			s.logger.Debug(ctx, "preview client disconnected", "clients", count)

		case message := <-s.broadcast:
			s.deliver(message)
		}
	}
}

// deliver fans one message out to every client. Clients with a full send
// queue are disconnected; a stuck browser must not stall the hub.
func (s *PreviewServer) deliver(message []byte) {
	var failed []*websocket.Conn

	s.clientsMutex.RLock()
	for conn, client := range s.clients {
		select {
		case client.send <- message:
		default:
			failed = append(failed, conn)
		}
	}
	s.clientsMutex.RUnlock()

	if len(failed) == 0 {
		return
	}

	s.clientsMutex.Lock()
	for _, conn := range failed {
		if client, ok := s.clients[conn]; ok {
			delete(s.clients, conn)
			close(client.send)
			conn.Close(websocket.StatusPolicyViolation, "client not reading updates")
		}
	}
	s.clientsMutex.Unlock()
}

// readPump drains the connection so control frames are processed and a dead
// peer is noticed. The preview protocol is push only, so inbound payloads
// are discarded.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c.conn:
		case <-c.server.done:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), pongWait)
		_, _, err := c.conn.Read(ctx)
		cancel()
		if err != nil {
			return
		}
	}
}

// writePump writes queued messages and keepalive pings to the connection.
// It exits when the send channel closes or the peer stops responding.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-c.server.done:
			return
		}
	}
}
