// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/holoauth/pkg/errutil"
)

func setup(t *testing.T, format, level string) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := Setup("holoauth", "1.0.0", format, level, &buf)
	require.NoError(t, err)
	return logger, &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "Failed to parse JSON: %s", buf.String())
	return entry
}

func TestSetup_JSONFormat(t *testing.T) {
	logger, buf := setup(t, "json", "info")

	logger.Info("test message")

	entry := decode(t, buf)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "holoauth", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Contains(t, entry, "time", "time field missing")
	assert.Contains(t, entry, "level", "level field missing")
}

func TestSetup_TextFormat(t *testing.T) {
	logger, buf := setup(t, "text", "info")

	logger.Info("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), "service=holoauth")
}

func TestSetup_DefaultFormatIsJSON(t *testing.T) {
	logger, buf := setup(t, "", "")
	logger.Info("test message")
	decode(t, buf)
}

func TestSetup_InvalidFormat(t *testing.T) {
	_, err := Setup("holoauth", "1.0.0", "xml", "info", nil)
	errutil.AssertErrorCode(t, err, "LOG_INVALID_FORMAT")
}

func TestSetup_LevelFilters(t *testing.T) {
	logger, buf := setup(t, "json", "warn")

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Equal(t, "kept", decode(t, buf)["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	errutil.AssertErrorCode(t, err, "LOG_INVALID_LEVEL")
}

func TestHandler_TraceContext(t *testing.T) {
	logger, buf := setup(t, "json", "info")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced message")

	entry := decode(t, buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_NoTraceContext(t *testing.T) {
	logger, buf := setup(t, "json", "info")

	logger.Info("no trace message")

	entry := decode(t, buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	logger, buf := setup(t, "json", "info")

	logger.With("operation", "sign_in").WithGroup("req").Info("grouped", "method", "SignIn")

	entry := decode(t, buf)
	assert.Equal(t, "sign_in", entry["operation"])
	assert.Equal(t, "holoauth", entry["req"].(map[string]any)["service"])
	assert.Equal(t, "SignIn", entry["req"].(map[string]any)["method"])
}

func TestHandler_RedactsSecrets(t *testing.T) {
	logger, buf := setup(t, "json", "info")

	logger.Info("careless", "password", "hunter2", "session_token", "abc123", "username", "alice")

	entry := decode(t, buf)
	assert.Equal(t, "[REDACTED]", entry["password"])
	assert.Equal(t, "[REDACTED]", entry["session_token"])
	assert.Equal(t, "alice", entry["username"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logger, err := SetDefault("holoauth", "2.0.0", "json", "info")
	require.NoError(t, err)
	assert.Same(t, logger, slog.Default())

	_, err = SetDefault("holoauth", "2.0.0", "json", "loud")
	require.Error(t, err)
}
