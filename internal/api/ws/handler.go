// Package ws streams live session screens over WebSocket. Clients receive a
// rendered snapshot whenever the grid changes and send input or resize frames
// back.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/TermHub/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TermHub/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// pollInterval bounds how often an idle connection checks the grid version.
const pollInterval = 50 * time.Millisecond

// Handler manages WebSocket stream connections.
type Handler struct {
	registry *session.Registry
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a WebSocket handler around the registry.
func NewHandler(registry *session.Registry, logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// clientFrame is what clients send: keystrokes, resizes, or pings.
type clientFrame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// screenFrame carries a full rendered snapshot to the client.
type screenFrame struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
	Cols    int    `json:"cols"`
	Rows    int    `json:"rows"`
	Content string `json:"content"`
}

// streamConn serializes writes; the snapshot loop and the frame reader both
// respond on the same connection.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *streamConn) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Stream upgrades the connection and streams screen snapshots for the named
// session until the client disconnects or the session dies. Snapshots are
// version-gated: an unchanged grid sends nothing.
func (h *Handler) Stream(c *gin.Context) {
	name := c.Param("name")
	sess, ok := h.registry.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session: " + name})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.StreamConnections.Inc()
		defer h.metrics.StreamConnections.Dec()
	}
	h.logger.Info("stream opened",
		zap.String("name", name),
		zap.String("id", string(sess.ID)),
	)
	defer h.logger.Info("stream closed", zap.String("name", name))

	sc := &streamConn{conn: conn}
	done := make(chan struct{})
	go h.readFrames(sc, name, done)

	screen := sess.Screen()
	var lastVersion uint64
	sent := false
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// Initial snapshot, then one frame per grid change.
	for {
		if v := screen.Version(); !sent || v != lastVersion {
			cols, rows := screen.Size()
			frame := screenFrame{
				Type:    "screen",
				Version: v,
				Cols:    cols,
				Rows:    rows,
				Content: screen.Content(0),
			}
			if err := sc.writeJSON(frame); err != nil {
				return
			}
			lastVersion = v
			sent = true
		}
		if !sess.Alive() {
			_ = sc.writeJSON(gin.H{"type": "exit", "name": name})
			return
		}

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// readFrames consumes client frames until the connection drops. Input frames
// write raw bytes into the pty; resize frames adjust the viewport.
func (h *Handler) readFrames(sc *streamConn, name string, done chan<- struct{}) {
	defer close(done)
	for {
		var frame clientFrame
		if err := sc.conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case "input":
			if err := h.registry.SendRaw(name, []byte(frame.Data)); err != nil {
				h.logger.Warn("stream input failed",
					zap.String("name", name),
					zap.Error(err),
				)
			}
		case "resize":
			if err := h.registry.Resize(name, frame.Cols, frame.Rows); err != nil {
				h.logger.Warn("stream resize failed",
					zap.String("name", name),
					zap.Error(err),
				)
			}
		case "ping":
			_ = sc.writeJSON(gin.H{"type": "pong"})
		default:
			_ = sc.writeJSON(gin.H{"type": "error", "error": "unknown frame type"})
		}
	}
}
