package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/shuchurin/internal/stream"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the protocol carries no credentials; origin policy is left to the
	// deployment's proxy, matching the permissive CORS on the REST side
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsConn adapts a gorilla connection to stream.Conn, arming the idle
// deadline before every read so a silent client times out.
type wsConn struct {
	conn        *websocket.Conn
	idleTimeout time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	if c.idleTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
			return nil, err
		}
	}
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v any) error {
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	slog.Info("client connected", "remote_addr", r.RemoteAddr, "active_connections", s.registry.ActiveConnections()+1)

	h := stream.NewHandler(s.cfg, &wsConn{conn: conn, idleTimeout: s.cfg.IdleTimeout()}, s.repo, s.webhook, s.registry)
	h.Run(s.baseCtx)
	slog.Info("client disconnected", "remote_addr", r.RemoteAddr, "active_connections", s.registry.ActiveConnections())
}
