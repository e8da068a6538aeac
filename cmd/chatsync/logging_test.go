// ABOUTME: Tests for the CLI log handlers
// ABOUTME: Covers level filtering, inherited attrs, groups, and JSON output

package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chatsync/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestColorHandler_FiltersAndFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "connection").Info("connected", "attempt", 2)
	logger.Warn("send rejected")
	logger.Error("boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "INF connected component=connection attempt=2")
	assert.Contains(t, lines[1], "WRN send rejected")
	assert.Contains(t, lines[2], "ERR boom")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestColorHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	logger.WithGroup("close").Debug("closed", "code", 1008)

	assert.Contains(t, buf.String(), "DBG closed close.code=1008")
}

func TestColorHandler_AttrsKeepGroupOfTheirTime(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.With("session", "s1").WithGroup("conn").With("id", 7).WithGroup("close").Info("closed", "code", 1000)

	assert.Contains(t, buf.String(), "INF closed session=s1 conn.id=7 conn.close.code=1000")
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("send rejected", "state", "disconnected")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "send rejected", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "disconnected", rec["state"])
}
