/*
Package tracing provides lightweight request tracing.

# Overview

Each HTTP request gets a trace with one span per operation. The model follows
OpenTelemetry concepts with a minimal implementation: spans are collected on a
buffered channel and emitted through the structured logger.

# Usage

	tracer := tracing.New("termhub", logger)
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetTag("key", "value")

# Trace Format

Traces propagate via standard HTTP headers:
  - X-Trace-ID: identifier for the whole request flow
  - X-Span-ID: identifier for the current operation

Completed spans log at debug; spans carrying an error log at error level.
*/
package tracing
