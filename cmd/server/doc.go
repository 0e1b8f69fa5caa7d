// Package main is the entry point for the TermHub session server.
//
// The server hosts named pty-backed shell sessions behind a REST and
// WebSocket API. Each session's output renders into an in-memory virtual
// terminal grid that clients can capture or stream.
//
// The server provides:
//   - REST API for session lifecycle (create, list, kill, rename, resize)
//   - Screen capture with inline color sequences
//   - Text injection into session input
//   - WebSocket streaming of live screen snapshots
//   - Prometheus metrics and rate limiting
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML file via -config (overrides env)
//   - CLI flags for host/port (override everything)
//
// Usage:
//
//	./server -port 8700
//	./server -config termhub.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown; all sessions are killed with a
//     bounded grace period.
package main
