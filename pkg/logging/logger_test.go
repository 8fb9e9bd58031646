// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" Warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "test",
		Quiet:   true,
	})

	logger.Info("command link established", "link_id", "abc")
	logger.Debug("dial attempt", "attempt", 1)
	require.NoError(t, logger.Close())

	name := "test_" + time.Now().Format("2006-01-02") + ".log"
	raw, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "command link established", entry["msg"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "abc", entry["link_id"])
}

func TestNew_LevelFilter(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "filter",
		Quiet:   true,
	})

	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Close())

	name := "filter_" + time.Now().Format("2006-01-02") + ".log"
	raw, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "kept")
	assert.NotContains(t, string(raw), "dropped")
}

func TestWith_ChildCarriesAttributes(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "child", Quiet: true})

	logger.With("transform_id", "t-1").Info("pivot transform started")
	require.NoError(t, logger.Close())

	name := "child_" + time.Now().Format("2006-01-02") + ".log"
	raw, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"transform_id":"t-1"`)
}

func TestClose_NoFileIsNoop(t *testing.T) {
	logger := New(Config{Quiet: true})
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestMultiHandler(t *testing.T) {
	dir := t.TempDir()
	a, err := os.Create(filepath.Join(dir, "a.log"))
	require.NoError(t, err)
	b, err := os.Create(filepath.Join(dir, "b.log"))
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	log := slog.New(h)

	log.Info("info only")
	log.Error("both")

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))

	rawA, err := os.ReadFile(a.Name())
	require.NoError(t, err)
	rawB, err := os.ReadFile(b.Name())
	require.NoError(t, err)

	assert.Contains(t, string(rawA), "info only")
	assert.Contains(t, string(rawA), "both")
	assert.NotContains(t, string(rawB), "info only")
	assert.Contains(t, string(rawB), "both")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".zlink/logs"), expandPath("~/.zlink/logs"))
	assert.Equal(t, "/var/log/zlink", expandPath("/var/log/zlink"))
	assert.Equal(t, "relative/path", expandPath("relative/path"))
}
