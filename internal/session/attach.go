package session

import (
	"errors"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	xterm "golang.org/x/term"
)

// AttachOptions tunes the inline takeover loop. Zero values pick sane
// defaults (stdin/stdout, 20ms poll, 500ms double-Escape window).
type AttachOptions struct {
	Input        *os.File
	Output       *os.File
	PollInterval time.Duration
	DetachWindow time.Duration
}

// Attach hands the session's raw I/O through to the caller's real terminal:
// the reader loop mirrors pty output to Output while a blocking input loop
// translates local keystrokes into the pty. Double Escape within the detach
// window returns control; so does process death. Attaching to an unknown
// name is a no-op. The caller restores its own screen state afterwards.
func (r *Registry) Attach(name string) error {
	return r.AttachWithOptions(name, AttachOptions{})
}

// AttachWithOptions is Attach with explicit I/O handles and timings.
func (r *Registry) AttachWithOptions(name string, opts AttachOptions) error {
	sess, ok := r.Get(name)
	if !ok {
		return nil
	}
	if !sess.Alive() {
		return nil
	}

	in := opts.Input
	if in == nil {
		in = os.Stdin
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 20 * time.Millisecond
	}
	window := opts.DetachWindow
	if window <= 0 {
		window = 500 * time.Millisecond
	}

	// Match the session to the caller's viewport before any output
	// mirrors through.
	lastCols, lastRows := -1, -1
	if cols, rows, err := xterm.GetSize(int(out.Fd())); err == nil {
		_ = r.Resize(name, cols, rows)
		lastCols, lastRows = cols, rows
	}

	oldState, err := xterm.MakeRaw(int(in.Fd()))
	if err != nil {
		return &IoError{Name: name, Op: "attach", Err: err}
	}
	defer func() { _ = xterm.Restore(int(in.Fd()), oldState) }()

	// Non-blocking stdin lets one loop interleave keystrokes, size
	// checks, and liveness without extra goroutines.
	if err := unix.SetNonblock(int(in.Fd()), true); err != nil {
		return &IoError{Name: name, Op: "attach", Err: err}
	}
	defer func() { _ = unix.SetNonblock(int(in.Fd()), false) }()

	sess.startForward(out)
	defer sess.stopForward()
	if r.metrics != nil {
		r.metrics.AttachesActive.Inc()
		defer r.metrics.AttachesActive.Dec()
	}

	r.logger.Info("attached", zap.String("name", name), zap.String("id", string(sess.ID)))
	defer r.logger.Info("detached", zap.String("name", name), zap.String("id", string(sess.ID)))

	buf := make([]byte, 256)
	var pending []byte
	var pendingSince time.Time
	var lastEscape time.Time

	for sess.forwarding() && sess.Alive() {
		if cols, rows, err := xterm.GetSize(int(out.Fd())); err == nil {
			if cols != lastCols || rows != lastRows {
				_ = r.Resize(name, cols, rows)
				lastCols, lastRows = cols, rows
			}
		}

		n, err := in.Read(buf)
		if n > 0 {
			if len(pending) == 0 {
				pendingSince = time.Now()
			}
			pending = append(pending, buf[:n]...)
		}
		if err != nil && !isWouldBlock(err) && n == 0 {
			// Real terminal input closed underneath us.
			return nil
		}

		for len(pending) > 0 {
			// A lone leading Escape stays ambiguous only briefly;
			// after that it is a keystroke, not a sequence prefix.
			force := time.Since(pendingSince) > 2*poll
			outBytes, consumed, res := translateKey(
				pending, sess.screen.CursorKeysApplication(), force)
			if res == keyIncomplete {
				break
			}
			pending = pending[consumed:]

			switch res {
			case keyEscape:
				if time.Since(lastEscape) <= window {
					return nil
				}
				lastEscape = time.Now()
				r.writeKeys(sess, outBytes)
			case keyWrite:
				r.writeKeys(sess, outBytes)
			case keyDrop:
				// Unmapped key: swallowed without corrupting the
				// input stream.
			}
		}

		if n == 0 {
			time.Sleep(poll)
		}
	}
	return nil
}

// writeKeys pushes translated keystrokes into the pty. Write failures are
// reported in the log but never kill the session; a dead process ends the
// loop through the liveness check instead.
func (r *Registry) writeKeys(sess *Session, b []byte) {
	if len(b) == 0 {
		return
	}
	if err := sess.writeInput(b); err != nil {
		r.logger.Warn("input write failed",
			zap.String("id", string(sess.ID)),
			zap.Error(err),
		)
	}
}

// isWouldBlock reports whether a non-blocking read simply had no data.
func isWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
