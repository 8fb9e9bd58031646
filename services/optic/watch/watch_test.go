// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func TestClassifyByName(t *testing.T) {
	assert.Equal(t, KindPSF, ClassifyByName("/exports/run1_PSF.txt"))
	assert.Equal(t, KindWFE, ClassifyByName("/exports/wfe_map.txt"))
	assert.Equal(t, KindSystemData, ClassifyByName("/exports/sysdata.txt"))
	assert.Equal(t, KindUnknown, ClassifyByName("/exports/notes.txt"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "psf", KindPSF.String())
	assert.Equal(t, "wfe", KindWFE.String())
	assert.Equal(t, "system", KindSystemData.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func encodeUTF16(t *testing.T, lines []string) []byte {
	t.Helper()
	raw, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).
		NewEncoder().Bytes([]byte(strings.Join(lines, "\r\n")))
	require.NoError(t, err)
	return raw
}

func TestWatcher_ParsesSystemDataOnWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, Debounce: 30 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	content := encodeUTF16(t, []string{
		"System/Prescription Data",
		"Working F/#             :   5.60000",
		"Entrance Pupil Diameter :        25",
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sysdata.txt"), content, 0o644))

	select {
	case res := <-w.Results():
		assert.Equal(t, KindSystemData, res.Kind)
		require.NoError(t, res.Err)
		require.NotNil(t, res.System)
		assert.Equal(t, 5.6, res.System.WorkingFNumber)
	case <-time.After(5 * time.Second):
		t.Fatal("no result before timeout")
	}
}

func TestWatcher_ReportsParseFailure(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, Debounce: 30 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// A PSF-named file with garbage content must surface the parse error,
	// not vanish.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_psf.txt"), []byte("not utf-16"), 0o644))

	select {
	case res := <-w.Results():
		assert.Equal(t, KindPSF, res.Kind)
		assert.Error(t, res.Err)
		assert.Nil(t, res.PSF)
	case <-time.After(5 * time.Second):
		t.Fatal("no result before timeout")
	}
}

func TestWatcher_IgnoresUnclassifiedFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch"), 0o644))

	select {
	case res := <-w.Results():
		t.Fatalf("unexpected result for %s", res.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_ShutdownClosesResults(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	_, open := <-w.Results()
	assert.False(t, open, "results channel closes on shutdown")
}

func TestNew_Errors(t *testing.T) {
	t.Run("empty dir", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
	})

	t.Run("missing dir", func(t *testing.T) {
		_, err := New(Config{Dir: filepath.Join(t.TempDir(), "nope")})
		assert.Error(t, err)
	})
}
