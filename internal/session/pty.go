package session

import (
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// ptyDevice is the uniform seam over platform pty allocation: a device sized
// cols x rows whose reader carries process output, whose writer feeds process
// input, and which can be resized. A Windows conpty port would implement this
// without touching the registry.
type ptyDevice interface {
	io.ReadWriteCloser
	Resize(cols, rows int) error
}

// posixPty wraps the controller side of a POSIX pseudo-terminal pair.
type posixPty struct {
	ptmx *os.File
}

// startPty spawns cmd behind a new pty sized cols x rows. On failure no
// handles remain open.
func startPty(cmd *exec.Cmd, cols, rows int) (ptyDevice, error) {
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
	if err != nil {
		return nil, err
	}
	return &posixPty{ptmx: ptmx}, nil
}

func (p *posixPty) Read(b []byte) (int, error)  { return p.ptmx.Read(b) }
func (p *posixPty) Write(b []byte) (int, error) { return p.ptmx.Write(b) }
func (p *posixPty) Close() error                { return p.ptmx.Close() }

func (p *posixPty) Resize(cols, rows int) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
}
