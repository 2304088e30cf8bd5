// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "Failed to parse JSON: %s", buf.String())
	return entry
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("userauth", "1.0.0", "json", &buf, Options{})

	logger.Info("test message")

	entry := decode(t, &buf)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "userauth", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Contains(t, entry, "time", "time field missing")
	assert.Contains(t, entry, "level", "level field missing")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("userauth", "1.0.0", "text", &buf, Options{})

	logger.Info("test message")

	output := buf.String()
	assert.Contains(t, output, "test message", "Output missing message")
	assert.Contains(t, output, "userauth", "Output missing service")
}

func TestSetup_DefaultFormat(t *testing.T) {
	var buf bytes.Buffer
	Setup("userauth", "1.0.0", "", &buf, Options{}).Info("test message")
	decode(t, &buf)
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("userauth", "1.0.0", "json", &buf, Options{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced message")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_NoTraceContext(t *testing.T) {
	var buf bytes.Buffer
	Setup("userauth", "1.0.0", "json", &buf, Options{}).Info("no trace message")

	entry := decode(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestHandler_RedactsPII(t *testing.T) {
	t.Run("message text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup("userauth", "1.0.0", "json", &buf, Options{})

		logger.Info("name=Bob;email=bob@example.com;id=5")

		entry := decode(t, &buf)
		assert.Equal(t, "name=***;email=***;id=5", entry["msg"])
	})

	t.Run("attribute keys", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup("userauth", "1.0.0", "json", &buf, Options{})

		logger.Info("user registered", "email", "bob@example.com", "user_id", "u1")

		entry := decode(t, &buf)
		assert.Equal(t, "***", entry["email"])
		assert.Equal(t, "u1", entry["user_id"])
		assert.NotContains(t, buf.String(), "bob@example.com")
	})

	t.Run("attribute values and errors", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup("userauth", "1.0.0", "json", &buf, Options{})

		logger.Error("query failed",
			"query", "id=5;password=hunter2",
			"error", errors.New("bad row: ssn=123-45-6789"))

		entry := decode(t, &buf)
		assert.Equal(t, "id=5;password=***", entry["query"])
		assert.Equal(t, "bad row: ssn=***", entry["error"], "ssn after whitespace")
	})

	t.Run("groups and WithAttrs", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup("userauth", "1.0.0", "json", &buf, Options{}).
			With("phone", "555-0100").
			WithGroup("req")

		logger.Info("login", slog.Group("form", slog.String("password", "hunter2"), slog.String("remember", "yes")))

		out := buf.String()
		assert.NotContains(t, out, "555-0100")
		assert.NotContains(t, out, "hunter2")
		entry := decode(t, &buf)
		assert.Equal(t, "***", entry["phone"])
		form := entry["req"].(map[string]any)["form"].(map[string]any)
		assert.Equal(t, "***", form["password"])
		assert.Equal(t, "yes", form["remember"])
	})

	t.Run("custom options", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup("userauth", "1.0.0", "json", &buf, Options{
			PIIFields: []string{"token"},
			Redaction: "[hidden]",
			Separator: ",",
		})

		logger.Info("token=abc,email=bob@example.com")

		assert.Equal(t, "token=[hidden],email=bob@example.com", decode(t, &buf)["msg"])
	})

	t.Run("empty field list disables redaction", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup("userauth", "1.0.0", "json", &buf, Options{PIIFields: []string{}})

		logger.Info("password=hunter2", "email", "bob@example.com")

		entry := decode(t, &buf)
		assert.Equal(t, "password=hunter2", entry["msg"])
		assert.Equal(t, "bob@example.com", entry["email"])
	})
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logger := SetDefault("test-service", "2.0.0", "json", Options{})

	assert.Same(t, logger, slog.Default())
	assert.NotEqual(t, original, slog.Default(), "SetDefault did not change the default logger")
}
