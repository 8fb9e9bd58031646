// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "ws://localhost:7788/lde", cfg.Link.URL)
	assert.Equal(t, 512, cfg.Link.CacheSize)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
link:
  url: ws://bench-pc:9000/lde
  dial_attempts: 5
macro:
  dir: /opt/host/macros
  file: ABC.ZPL
watch:
  dir: /exports
  debounce: 250ms
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://bench-pc:9000/lde", cfg.Link.URL)
	assert.Equal(t, 5, cfg.Link.DialAttempts)
	assert.Equal(t, 30*time.Second, cfg.Link.RequestTimeout, "unset fields keep defaults")
	assert.Equal(t, "ABC.ZPL", cfg.Macro.File)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "link: ["))
		assert.Error(t, err)
	})

	t.Run("validation failure", func(t *testing.T) {
		_, err := Load(writeConfig(t, "link:\n  dial_attempts: 0\n"))
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log:\n  level: loud\n"))
		assert.Error(t, err)
	})
}
