package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no session is registered under a name.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyExists is returned when a create or rename would collide
	// with a registered name.
	ErrAlreadyExists = errors.New("session already exists")
)

// SpawnError reports a failed process or pty allocation during create. The
// create aborts fully; no partially registered session survives it.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IoError reports a failed write or resize on an otherwise-live session. The
// session stays registered; the operation may succeed on retry by the caller.
type IoError struct {
	Name string
	Op   string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }
