package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/TermHub/internal/session"
)

func testRouter(t *testing.T) (*gin.Engine, *session.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := session.NewRegistry(session.Config{
		Shell:     "/bin/cat",
		KillGrace: 200 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(registry.Close)

	h := NewHandlers(registry, zap.NewNop())
	router := gin.New()
	router.GET("/health", h.Health)
	router.POST("/sessions", h.CreateSession)
	router.GET("/sessions", h.ListSessions)
	router.DELETE("/sessions/:name", h.KillSession)
	router.POST("/sessions/:name/rename", h.RenameSession)
	router.POST("/sessions/:name/resize", h.ResizeSession)
	router.GET("/sessions/:name/capture", h.CaptureSession)
	router.POST("/sessions/:name/send", h.SendText)
	return router, registry
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestCreateListKill(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(router, http.MethodPost, "/sessions", gin.H{"name": "alpha"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Session session.Info `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "alpha", created.Session.Name)
	assert.True(t, created.Session.Alive)

	w = doJSON(router, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Sessions []session.Info `json:"sessions"`
		Count    int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Count)

	w = doJSON(router, http.MethodDelete, "/sessions/alpha", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/sessions", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Equal(t, 0, listed.Count)
}

func TestCreateDuplicateConflicts(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(router, http.MethodPost, "/sessions", gin.H{"name": "dup"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/sessions", gin.H{"name": "dup"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateMissingNameRejected(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(router, http.MethodPost, "/sessions", gin.H{"dir": "/tmp"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKillUnknownNotFound(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(router, http.MethodDelete, "/sessions/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenameMovesSession(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(router, http.MethodPost, "/sessions", gin.H{"name": "old"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/sessions/old/rename", gin.H{"name": "new"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/sessions/old/capture", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodGet, "/sessions/new/capture", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResizeThenInfoReflectsSize(t *testing.T) {
	router, registry := testRouter(t)

	w := doJSON(router, http.MethodPost, "/sessions", gin.H{"name": "sized"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/sessions/sized/resize", gin.H{"cols": 100, "rows": 30})
	require.Equal(t, http.StatusOK, w.Code)

	infos := registry.List()
	require.Len(t, infos, 1)
	assert.Equal(t, 100, infos[0].Cols)
	assert.Equal(t, 30, infos[0].Rows)
}

func TestSendTextReachesScreen(t *testing.T) {
	router, registry := testRouter(t)

	w := doJSON(router, http.MethodPost, "/sessions", gin.H{"name": "echoer"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/sessions/echoer/send", gin.H{"text": "ping"})
	require.Equal(t, http.StatusOK, w.Code)

	// cat echoes the sent line back through the pty into the grid.
	require.Eventually(t, func() bool {
		content, err := registry.Capture("echoer", 0)
		return err == nil && bytes.Contains([]byte(content), []byte("ping"))
	}, 3*time.Second, 20*time.Millisecond)
}

func TestCaptureUnknownNotFound(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(router, http.MethodGet, "/sessions/nobody/capture", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
