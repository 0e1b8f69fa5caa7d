package session

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/TermHub/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TermHub/internal/shared/id"
	"github.com/GriffinCanCode/TermHub/internal/term"
)

// Config tunes session spawning and teardown.
type Config struct {
	// Shell is the child program to spawn. Empty falls back to $SHELL,
	// then /bin/bash.
	Shell string
	// ScrollbackLines bounds each grid's scrollback ring.
	ScrollbackLines int
	// KillGrace is how long Kill waits after SIGTERM before force-killing.
	KillGrace time.Duration
	// DefaultCols and DefaultRows size sessions created without an
	// explicit viewport.
	DefaultCols, DefaultRows int
	// IdentEnv is the environment variable carrying the session's opaque
	// identifier into the child. The child (or a companion script) can use
	// it to self-report state.
	IdentEnv string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ScrollbackLines: term.DefaultScrollback,
		KillGrace:       500 * time.Millisecond,
		DefaultCols:     80,
		DefaultRows:     24,
		IdentEnv:        "TERMHUB_SESSION",
	}
}

// Registry owns all live sessions, keyed by user-chosen name. One coarse
// mutex guards every structural operation start-to-finish; session counts are
// low enough that contention is a non-issue.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cfg     Config
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config, logger *zap.Logger) *Registry {
	if cfg.ScrollbackLines <= 0 {
		cfg.ScrollbackLines = term.DefaultScrollback
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = 500 * time.Millisecond
	}
	if cfg.DefaultCols <= 0 {
		cfg.DefaultCols = 80
	}
	if cfg.DefaultRows <= 0 {
		cfg.DefaultRows = 24
	}
	if cfg.IdentEnv == "" {
		cfg.IdentEnv = "TERMHUB_SESSION"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		logger:   logger,
	}
}

// WithMetrics attaches a metrics collector.
func (r *Registry) WithMetrics(m *monitoring.Metrics) *Registry {
	r.metrics = m
	return r
}

// Create spawns a child behind a new pty sized cols x rows (caller's
// viewport; zero means defaults) and registers it under name. Fails with
// ErrAlreadyExists if the name is taken. A failed spawn releases every handle
// it opened; no partial registration survives failure.
func (r *Registry) Create(name, dir string, cols, rows int) (Info, error) {
	if name == "" {
		return Info{}, fmt.Errorf("create: empty session name")
	}
	if cols <= 0 {
		cols = r.cfg.DefaultCols
	}
	if rows <= 0 {
		rows = r.cfg.DefaultRows
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.sessions[name]; taken {
		return Info{}, fmt.Errorf("create %q: %w", name, ErrAlreadyExists)
	}

	shell := r.cfg.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/bash"
	}
	if dir == "" {
		dir = os.Getenv("HOME")
	}
	if dir == "" {
		dir = "/tmp"
	}

	sessionID := id.NewSessionID()
	cmd := exec.Command(shell)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		fmt.Sprintf("%s=%s", r.cfg.IdentEnv, sessionID),
	)

	dev, err := startPty(cmd, cols, rows)
	if err != nil {
		return Info{}, &SpawnError{Name: name, Err: err}
	}

	sess := &Session{
		Name:       name,
		ID:         sessionID,
		Shell:      shell,
		WorkDir:    dir,
		CreatedAt:  time.Now(),
		cmd:        cmd,
		dev:        dev,
		screen:     term.NewScreenBufferWithScrollback(cols, rows, r.cfg.ScrollbackLines),
		cols:       cols,
		rows:       rows,
		exited:     make(chan struct{}),
		readerDone: make(chan struct{}),
		logger:     r.logger,
		metrics:    r.metrics,
	}

	go func() {
		_ = cmd.Wait()
		close(sess.exited)
	}()
	go sess.readLoop()

	// Re-check at insert: the spawn cannot have raced another create while
	// the lock is held, but the insert contract is checked either way.
	if _, taken := r.sessions[name]; taken {
		r.dispose(sess)
		return Info{}, fmt.Errorf("create %q: %w", name, ErrAlreadyExists)
	}
	r.sessions[name] = sess

	r.logger.Info("session created",
		zap.String("name", name),
		zap.String("id", string(sessionID)),
		zap.String("shell", shell),
		zap.String("dir", dir),
		zap.Int("cols", cols),
		zap.Int("rows", rows),
	)
	if r.metrics != nil {
		r.metrics.SessionsCreated.Inc()
		r.metrics.SessionsActive.Set(float64(len(r.sessions)))
	}
	return sess.info(), nil
}

// List returns sessions ordered by creation time then name. As a side effect
// it detects sessions whose process has exited (or whose reader crashed) and
// disposes them in the same pass, so a dead session never coexists with its
// registry entry after a sweep.
func (r *Registry) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, sess := range r.sessions {
		if !sess.Alive() || sess.hasCrashed() {
			r.logger.Info("sweeping dead session",
				zap.String("name", name),
				zap.String("id", string(sess.ID)),
			)
			r.dispose(sess)
			delete(r.sessions, name)
		}
	}

	infos := make([]Info, 0, len(r.sessions))
	for _, sess := range r.sessions {
		infos = append(infos, sess.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].Name < infos[j].Name
	})

	if r.metrics != nil {
		r.metrics.SessionsActive.Set(float64(len(r.sessions)))
	}
	return infos
}

// Kill terminates a session and removes it. Fails with ErrNotFound if no
// session has the name.
func (r *Registry) Kill(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[name]
	if !ok {
		return fmt.Errorf("kill %q: %w", name, ErrNotFound)
	}
	r.dispose(sess)
	delete(r.sessions, name)

	r.logger.Info("session killed",
		zap.String("name", name),
		zap.String("id", string(sess.ID)),
	)
	if r.metrics != nil {
		r.metrics.SessionsKilled.Inc()
		r.metrics.SessionsActive.Set(float64(len(r.sessions)))
	}
	return nil
}

// Rename moves a session to a new name. All-or-nothing: failure leaves the
// old entry untouched; success moves the entry with handles, reader, and grid
// unaffected.
func (r *Registry) Rename(oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("rename: empty target name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[oldName]
	if !ok {
		return fmt.Errorf("rename %q: %w", oldName, ErrNotFound)
	}
	if _, taken := r.sessions[newName]; taken {
		return fmt.Errorf("rename to %q: %w", newName, ErrAlreadyExists)
	}
	delete(r.sessions, oldName)
	sess.Name = newName
	r.sessions[newName] = sess

	r.logger.Info("session renamed",
		zap.String("from", oldName),
		zap.String("to", newName),
		zap.String("id", string(sess.ID)),
	)
	return nil
}

// Resize changes the pty and grid dimensions together. Unchanged dimensions
// are a no-op.
func (r *Registry) Resize(name string, cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("resize %q: invalid size %dx%d", name, cols, rows)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[name]
	if !ok {
		return fmt.Errorf("resize %q: %w", name, ErrNotFound)
	}
	if sess.cols == cols && sess.rows == rows {
		return nil
	}
	if err := sess.dev.Resize(cols, rows); err != nil {
		return &IoError{Name: name, Op: "resize", Err: err}
	}
	sess.screen.Resize(cols, rows)
	sess.cols, sess.rows = cols, rows
	return nil
}

// Capture renders the session's current grid, at most maxLines rows. Fails
// with ErrNotFound for unknown names.
func (r *Registry) Capture(name string, maxLines int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[name]
	if !ok {
		return "", fmt.Errorf("capture %q: %w", name, ErrNotFound)
	}
	return sess.screen.Content(maxLines), nil
}

// SendText writes literal text plus a submit keystroke to the session's
// input.
func (r *Registry) SendText(name, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[name]
	if !ok {
		return fmt.Errorf("send %q: %w", name, ErrNotFound)
	}
	if err := sess.writeInput(append([]byte(text), '\r')); err != nil {
		return &IoError{Name: name, Op: "send", Err: err}
	}
	return nil
}

// SendRaw writes bytes to the session's input exactly as given. Streaming
// clients that do their own key encoding use this instead of SendText.
func (r *Registry) SendRaw(name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[name]
	if !ok {
		return fmt.Errorf("send %q: %w", name, ErrNotFound)
	}
	if err := sess.writeInput(data); err != nil {
		return &IoError{Name: name, Op: "send", Err: err}
	}
	return nil
}

// Get returns the live session registered under name.
func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[name]
	return sess, ok
}

// Detach clears a session's forwarding flag, which makes any active attach
// loop exit on its next iteration. Unknown names are a no-op.
func (r *Registry) Detach(name string) {
	if sess, ok := r.Get(name); ok {
		sess.stopForward()
	}
}

// Close kills every session. Used at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, sess := range r.sessions {
		r.dispose(sess)
		delete(r.sessions, name)
	}
}

// dispose releases a session's handles: close the pty (wakes the reader),
// give the process a bounded grace after SIGTERM, force-kill if needed, then
// join the reader with a bound so teardown never hangs.
func (r *Registry) dispose(sess *Session) {
	_ = sess.dev.Close()

	if sess.Alive() && sess.cmd.Process != nil {
		_ = sess.cmd.Process.Signal(unix.SIGTERM)
		select {
		case <-sess.exited:
		case <-time.After(r.cfg.KillGrace):
			_ = sess.cmd.Process.Kill()
		}
	}
	select {
	case <-sess.exited:
	case <-time.After(2 * time.Second):
		r.logger.Warn("process did not exit after kill",
			zap.String("id", string(sess.ID)))
	}
	select {
	case <-sess.readerDone:
	case <-time.After(2 * time.Second):
		r.logger.Warn("reader did not stop in time",
			zap.String("id", string(sess.ID)))
	}
}
