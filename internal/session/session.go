package session

import (
	"io"
	"os/exec"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/TermHub/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TermHub/internal/shared/id"
	"github.com/GriffinCanCode/TermHub/internal/term"
)

// Session is one pty-backed child process plus the virtual terminal grid its
// output renders into. The registry entry is the sole owner of the handles;
// structural fields mutate only under the registry lock.
type Session struct {
	Name      string
	ID        id.SessionID
	Shell     string
	WorkDir   string
	CreatedAt time.Time

	cmd    *exec.Cmd
	dev    ptyDevice
	screen *term.ScreenBuffer

	cols, rows int

	// forward mirrors raw pty output to the attached terminal while set.
	forwardMu sync.Mutex
	forward   io.Writer

	exited     chan struct{} // closed once the process is reaped
	readerDone chan struct{} // closed when the reader loop returns
	crashed    bool          // reader loop panicked; swept on next List
	crashedMu  sync.Mutex

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// Info is the public snapshot of a session.
type Info struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	Shell     string    `json:"shell"`
	WorkDir   string    `json:"work_dir"`
	Cols      int       `json:"cols"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
	Alive     bool      `json:"alive"`
}

// Screen exposes the session's grid for capture and input-mode queries.
func (s *Session) Screen() *term.ScreenBuffer { return s.screen }

// Alive reports whether the child process is still running. It derives from
// live process state (the reaper goroutine), never from a cached flag.
func (s *Session) Alive() bool {
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

func (s *Session) info() Info {
	return Info{
		Name:      s.Name,
		ID:        string(s.ID),
		Shell:     s.Shell,
		WorkDir:   s.WorkDir,
		Cols:      s.cols,
		Rows:      s.rows,
		CreatedAt: s.CreatedAt,
		Alive:     s.Alive(),
	}
}

// startForward begins mirroring raw pty output to w.
func (s *Session) startForward(w io.Writer) {
	s.forwardMu.Lock()
	s.forward = w
	s.forwardMu.Unlock()
}

// stopForward clears the mirroring flag.
func (s *Session) stopForward() {
	s.forwardMu.Lock()
	s.forward = nil
	s.forwardMu.Unlock()
}

// forwarding reports whether an attach is active.
func (s *Session) forwarding() bool {
	s.forwardMu.Lock()
	defer s.forwardMu.Unlock()
	return s.forward != nil
}

func (s *Session) writeInput(b []byte) error {
	_, err := s.dev.Write(b)
	return err
}

func (s *Session) markCrashed() {
	s.crashedMu.Lock()
	s.crashed = true
	s.crashedMu.Unlock()
}

func (s *Session) hasCrashed() bool {
	s.crashedMu.Lock()
	defer s.crashedMu.Unlock()
	return s.crashed
}

// readLoop drains pty output into the grid until the pty closes. It is the
// only goroutine that ever feeds this session's ScreenBuffer. While an attach
// is active the same raw bytes mirror to the attached terminal. A panic here
// is logged and marks the session for removal on the next sweep instead of
// crossing the API boundary.
func (s *Session) readLoop() {
	defer close(s.readerDone)
	defer func() {
		if r := recover(); r != nil {
			s.markCrashed()
			s.logger.Error("reader loop crashed",
				zap.String("session", string(s.ID)),
				zap.Any("panic", r),
			)
		}
	}()

	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := s.dev.Read(buf)
		if n > 0 {
			if s.metrics != nil {
				s.metrics.PtyBytesRead.Add(float64(n))
			}
			s.forwardMu.Lock()
			if s.forward != nil {
				// Raw passthrough; the attached terminal interprets
				// the stream itself.
				_, _ = s.forward.Write(buf[:n])
			}
			s.forwardMu.Unlock()

			pending = append(pending, buf[:n]...)
			cut := len(pending) - incompleteTail(pending)
			feedStart := time.Now()
			s.screen.Feed(string(pending[:cut]))
			if s.metrics != nil {
				s.metrics.FeedDuration.Observe(time.Since(feedStart).Seconds())
			}
			pending = append(pending[:0], pending[cut:]...)
		}
		if err != nil {
			// EOF or EIO after the slave side closed: flush whatever
			// remains and stop.
			if len(pending) > 0 {
				s.screen.Feed(string(pending))
			}
			if err != io.EOF {
				s.logger.Debug("pty read ended",
					zap.String("session", string(s.ID)),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// incompleteTail returns how many trailing bytes of b form an undecodable
// partial UTF-8 rune. Those bytes wait for the next read so chunk boundaries
// never split characters.
func incompleteTail(b []byte) int {
	for i := len(b) - 1; i >= 0 && len(b)-i <= utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return 0
		}
		return len(b) - i
	}
	return 0
}
