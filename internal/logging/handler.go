// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package logging provides structured logging with OpenTelemetry trace context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Log formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// redacted replaces the value of any attribute whose key names a secret.
const redacted = "[REDACTED]"

var secretKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"session_token": {},
}

// traceHandler wraps a slog.Handler to add service and trace context.
type traceHandler struct {
	handler slog.Handler
	service string
	version string
}

// Handle adds trace context to the log record.
func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, r)
}

// Enabled returns true if the level is enabled.
func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes.
func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{
		handler: h.handler.WithAttrs(attrs),
		service: h.service,
		version: h.version,
	}
}

// WithGroup returns a new handler with the given group.
func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{
		handler: h.handler.WithGroup(name),
		service: h.service,
		version: h.version,
	}
}

// ParseLevel maps debug, info, warn or error (any case) to a slog.Level.
// An empty string is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, oops.Code("LOG_INVALID_LEVEL").With("level", level).Errorf("unknown log level %q", level)
	}
}

// Setup creates a configured slog.Logger.
// format: "json" or "text" (defaults to "json" if empty).
// If w is nil, writes to os.Stderr.
func Setup(service, version, format, level string, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: redactSecrets,
	}

	var base slog.Handler
	switch format {
	case FormatText:
		base = slog.NewTextHandler(w, opts)
	case "", FormatJSON:
		base = slog.NewJSONHandler(w, opts)
	default:
		return nil, oops.Code("LOG_INVALID_FORMAT").With("format", format).Errorf("unknown log format %q", format)
	}

	return slog.New(&traceHandler{
		handler: base,
		service: service,
		version: version,
	}), nil
}

// SetDefault sets up the default logger and returns it.
func SetDefault(service, version, format, level string) (*slog.Logger, error) {
	logger, err := Setup(service, version, format, level, nil)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if _, secret := secretKeys[a.Key]; secret {
		return slog.String(a.Key, redacted)
	}
	return a
}
