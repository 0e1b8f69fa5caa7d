// Package http contains the Gin handlers for the session REST API.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/TermHub/internal/session"
)

// Handlers bundles the REST endpoints around the session registry.
type Handlers struct {
	registry *session.Registry
	logger   *zap.Logger
	started  time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(registry *session.Registry, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		registry: registry,
		logger:   logger,
		started:  time.Now(),
	}
}

// Root returns service identification.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "termhub",
		"status":  "running",
	})
}

// Health returns service health and the current session count.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": len(h.registry.List()),
		"uptime":   time.Since(h.started).String(),
	})
}

// CreateSession spawns a new named session.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Dir  string `json:"dir"`
		Cols int    `json:"cols"`
		Rows int    `json:"rows"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	info, err := h.registry.Create(req.Name, req.Dir, req.Cols, req.Rows)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": info})
}

// ListSessions returns all live sessions, sweeping dead ones first.
func (h *Handlers) ListSessions(c *gin.Context) {
	infos := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": infos,
		"count":    len(infos),
	})
}

// KillSession terminates a session by name.
func (h *Handlers) KillSession(c *gin.Context) {
	name := c.Param("name")
	if err := h.registry.Kill(name); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"killed": name})
}

// RenameSession moves a session to a new name.
func (h *Handlers) RenameSession(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	oldName := c.Param("name")
	if err := h.registry.Rename(oldName, req.Name); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": oldName, "to": req.Name})
}

// ResizeSession changes a session's pty and grid dimensions.
func (h *Handlers) ResizeSession(c *gin.Context) {
	var req struct {
		Cols int `json:"cols" binding:"required"`
		Rows int `json:"rows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	name := c.Param("name")
	if err := h.registry.Resize(name, req.Cols, req.Rows); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "cols": req.Cols, "rows": req.Rows})
}

// CaptureSession renders a session's current screen contents as plain text
// with inline color sequences. ?lines=N limits output to the last N rows.
func (h *Handlers) CaptureSession(c *gin.Context) {
	name := c.Param("name")

	var query struct {
		Lines int `form:"lines"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	content, err := h.registry.Capture(name, query.Lines)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "content": content})
}

// SendText types text into a session followed by a carriage return.
func (h *Handlers) SendText(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	name := c.Param("name")
	if err := h.registry.SendText(name, req.Text); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "sent": len(req.Text)})
}

// fail maps registry errors onto HTTP status codes.
func (h *Handlers) fail(c *gin.Context, err error) {
	var spawnErr *session.SpawnError
	var ioErr *session.IoError

	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &spawnErr):
		h.logger.Error("session spawn failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.As(err, &ioErr):
		h.logger.Error("session io failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
