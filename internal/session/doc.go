// Package session manages interactive pty-backed sessions.
//
// Each session spawns a child process behind a pseudo-terminal and drains its
// output on a dedicated goroutine into a virtual terminal grid (see
// internal/term), so cursor-addressed and full-screen programs capture
// correctly. A registry keys sessions by user-chosen name and owns their
// lifecycle under one coarse lock.
//
// Features:
//   - Create / kill / rename / list with dead-process sweep
//   - Snapshot capture of the rendered grid at any time
//   - Literal text injection with a submit keystroke
//   - Inline attach/detach: raw terminal takeover with keystroke translation
//     and a double-Escape detach trigger
//   - Coupled pty and grid resizing
//
// Concurrency model: exactly one reader goroutine feeds a session's grid;
// polling callers snapshot through the same grid lock. Registry mutations all
// serialize on the registry mutex, which is acceptable at the single-digit
// session counts this engine targets.
package session
