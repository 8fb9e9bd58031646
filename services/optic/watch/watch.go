// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package watch tails an export directory and parses result files as the
// host application writes them, so an automation run can consume PSF and
// wavefront exports without polling or manual re-parsing.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/halide-optics/zlink/services/optic/zfile"
)

// Kind classifies an export file by its name.
type Kind int

const (
	KindUnknown Kind = iota
	KindPSF
	KindWFE
	KindSystemData
)

func (k Kind) String() string {
	switch k {
	case KindPSF:
		return "psf"
	case KindWFE:
		return "wfe"
	case KindSystemData:
		return "system"
	default:
		return "unknown"
	}
}

// Result is one parsed export. Exactly one of PSF, WFE and System is
// non-nil on success; Err carries the parse failure otherwise.
type Result struct {
	Path string
	Kind Kind

	PSF    *zfile.PSF
	WFE    *zfile.WFE
	System *zfile.SystemData

	Err error
}

// Config configures a Watcher.
type Config struct {
	// Dir is the export directory to watch.
	Dir string

	// Debounce is how long a file must stay quiet before it is parsed.
	// The host writes exports incrementally, so reacting to the first
	// write event would read a half-written file.
	// Default: 500ms
	Debounce time.Duration

	// Classify maps a path to its export kind. The default keys on the
	// file name: "psf" means a PSF grid, "wfe" a wavefront map, "sys" a
	// system data summary; anything else is ignored.
	Classify func(path string) Kind

	// Logger for watcher operations.
	// Default: slog.Default()
	Logger *slog.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Debounce <= 0 {
		out.Debounce = 500 * time.Millisecond
	}
	if out.Classify == nil {
		out.Classify = ClassifyByName
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// ClassifyByName is the default path classifier.
func ClassifyByName(path string) Kind {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "psf"):
		return KindPSF
	case strings.Contains(name, "wfe"):
		return KindWFE
	case strings.Contains(name, "sys"):
		return KindSystemData
	default:
		return KindUnknown
	}
}

// Watcher parses export files as they land in a directory.
type Watcher struct {
	cfg Config
	fsw *fsnotify.Watcher
	log *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool

	results chan Result
}

// New starts watching cfg.Dir. Results are delivered on Results() until
// Run's context is cancelled.
func New(cfg Config) (*Watcher, error) {
	cfg = cfg.withDefaults()
	if cfg.Dir == "" {
		return nil, errors.New("watch dir must not be empty")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}
	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		log:     cfg.Logger.With("dir", cfg.Dir),
		pending: make(map[string]*time.Timer),
		results: make(chan Result, 16),
	}, nil
}

// Results returns the parsed-export channel.
func (w *Watcher) Results() <-chan Result { return w.results }

// Run consumes filesystem events until ctx is cancelled, then closes the
// results channel.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer close(w.results)
	w.log.Info("export watcher started")
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				w.cancelPending()
				return nil
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) {
				w.schedule(ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.cancelPending()
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// schedule (re)arms the debounce timer for a path. Each further write
// event pushes the parse back by the full debounce interval.
func (w *Watcher) schedule(path string) {
	kind := w.cfg.Classify(path)
	if kind == KindUnknown {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.cfg.Debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.emit(path, kind)
	})
}

// cancelPending stops outstanding timers and marks the watcher closed so a
// timer that already fired cannot send on the closed results channel.
func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) emit(path string, kind Kind) {
	res := Result{Path: path, Kind: kind}
	switch kind {
	case KindPSF:
		res.PSF, res.Err = zfile.ParsePSFFile(path)
	case KindWFE:
		res.WFE, res.Err = zfile.ParseWFEFile(path)
	case KindSystemData:
		res.System, res.Err = zfile.ParseSystemDataFile(path)
	}
	if res.Err != nil {
		w.log.Warn("export parse failed", "path", path, "error", res.Err)
	} else {
		w.log.Info("export parsed", "path", path, "kind", kind)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.results <- res:
	default:
		w.log.Warn("result dropped, consumer too slow", "path", path)
	}
}
