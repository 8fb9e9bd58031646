// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/halide-optics/zlink/services/optic"
	"github.com/halide-optics/zlink/services/optic/solve"
)

var (
	// ErrLinkClosed is returned when operations are called on a closed link.
	ErrLinkClosed = errors.New("command link is closed")
)

// LinkConfig configures the remote command link client.
type LinkConfig struct {
	// URL is the command link endpoint (e.g. "ws://localhost:7788/lde").
	URL string

	// ConnectTimeout bounds a single dial attempt.
	// Default: 5s
	ConnectTimeout time.Duration

	// RequestTimeout bounds one request/reply exchange.
	// Default: 30s (ray traces and optimizer runs can be slow)
	RequestTimeout time.Duration

	// DialAttempts is the number of connection attempts before giving up.
	// Only dialing retries; individual requests are never retried, since a
	// blind retry of an insertion mid-transform would double-insert.
	// Default: 3
	DialAttempts int

	// DialBackoff is the initial backoff between dial attempts.
	// Default: 250ms
	DialBackoff time.Duration

	// MaxDialBackoff caps the exponential backoff.
	// Default: 5s
	MaxDialBackoff time.Duration

	// DialJitter adds randomness to the backoff (0.0-1.0).
	// Default: 0.25
	DialJitter float64

	// CacheSize is the surface read-through cache capacity. The cache is
	// purged on every insertion and synchronize call.
	// Default: 512
	CacheSize int

	// Registerer receives the link's prometheus metrics. Nil disables
	// registration (metrics are still collected internally).
	Registerer prometheus.Registerer

	// Logger for link operations.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultLinkConfig returns production defaults.
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: 30 * time.Second,
		DialAttempts:   3,
		DialBackoff:    250 * time.Millisecond,
		MaxDialBackoff: 5 * time.Second,
		DialJitter:     0.25,
		CacheSize:      512,
		Logger:         slog.Default(),
	}
}

// Validate checks the configuration.
func (c *LinkConfig) Validate() error {
	if c.URL == "" {
		return errors.New("url must not be empty")
	}
	if c.DialAttempts < 1 {
		return errors.New("dial_attempts must be at least 1")
	}
	if c.DialJitter < 0 || c.DialJitter > 1 {
		return errors.New("dial_jitter must be between 0 and 1")
	}
	if c.CacheSize < 1 {
		return errors.New("cache_size must be positive")
	}
	return nil
}

// Link is a Session implementation over the remote command link. One text
// frame carries one item request; the reply frame carries the result.
//
// Link serializes exchanges with a mutex: the hosted application processes
// one item at a time, and the Session contract assumes exclusive access
// during a transform anyway.
type Link struct {
	cfg     LinkConfig
	log     *slog.Logger
	id      string
	metrics *linkMetrics

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	cache *lru.Cache[int, optic.Surface]
}

// Dial connects to the command link, retrying with jittered exponential
// backoff up to DialAttempts times.
func Dial(ctx context.Context, cfg LinkConfig) (*Link, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("link config: %w", err)
	}

	id := uuid.NewString()
	log := cfg.Logger.With("link_id", id, "url", cfg.URL)

	var conn *websocket.Conn
	var err error
	backoff := cfg.DialBackoff
	for attempt := 1; attempt <= cfg.DialAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		conn, _, err = websocket.DefaultDialer.DialContext(dialCtx, cfg.URL, nil)
		cancel()
		if err == nil {
			break
		}
		log.Warn("dial attempt failed", "attempt", attempt, "error", err)
		if attempt == cfg.DialAttempts {
			return nil, fmt.Errorf("dial %s after %d attempts: %w", cfg.URL, attempt, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jittered(backoff, cfg.DialJitter)):
		}
		backoff *= 2
		if backoff > cfg.MaxDialBackoff {
			backoff = cfg.MaxDialBackoff
		}
	}

	cache, err := lru.New[int, optic.Surface](cfg.CacheSize)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("surface cache: %w", err)
	}

	log.Info("command link established")
	return &Link{
		cfg:     cfg,
		log:     log,
		id:      id,
		metrics: newLinkMetrics(cfg.Registerer),
		conn:    conn,
		cache:   cache,
	}, nil
}

func jittered(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * jitter * float64(d)
	return time.Duration(float64(d) + delta)
}

// ID returns the link's correlation id.
func (l *Link) ID() string { return l.id }

// Close shuts the link down. Further operations fail with ErrLinkClosed.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	err := l.conn.Close()
	l.log.Info("command link closed")
	return err
}

// exchange performs one request/reply round trip. Requests are never
// retried: a failure mid-transform must surface to the caller, who owns
// recovery by reloading the last persisted model state.
func (l *Link) exchange(ctx context.Context, item string, args ...string) (string, error) {
	start := time.Now()
	reply, err := l.exchangeLocked(ctx, buildItem(item, args...))
	l.metrics.observe(item, start, err)
	if err != nil {
		l.log.Error("item exchange failed", "item", item, "error", err)
	}
	return reply, err
}

func (l *Link) exchangeLocked(ctx context.Context, frame string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return "", ErrLinkClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	deadline := time.Now().Add(l.cfg.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := l.conn.SetWriteDeadline(deadline); err != nil {
		return "", fmt.Errorf("set write deadline: %w", optic.ErrSessionFailure)
	}
	if err := l.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return "", fmt.Errorf("write %q: %v: %w", frame, err, optic.ErrSessionFailure)
	}
	if err := l.conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("set read deadline: %w", optic.ErrSessionFailure)
	}
	_, data, err := l.conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read reply to %q: %v: %w", frame, err, optic.ErrSessionFailure)
	}
	return string(data), nil
}

// ---------------------------------------------------------------------------
// Surfaces
// ---------------------------------------------------------------------------

func (l *Link) Surface(ctx context.Context, index int) (optic.Surface, error) {
	if s, ok := l.cache.Get(index); ok {
		l.metrics.cacheHits.Inc()
		return s, nil
	}
	reply, err := l.exchange(ctx, "GetSurface", strconv.Itoa(index))
	if err != nil {
		return optic.Surface{}, err
	}
	s, err := parseSurface(reply)
	if err != nil {
		return optic.Surface{}, err
	}
	s.Index = index
	l.cache.Add(index, s)
	return s, nil
}

func (l *Link) SetThickness(ctx context.Context, index int, v float64) error {
	l.cache.Remove(index)
	_, err := l.exchange(ctx, "SetSurfaceData", strconv.Itoa(index), strconv.Itoa(sdatThick), formatFloat(v))
	return err
}

// SetComment writes the surface comment. The comment is the final argument
// of the item frame and runs to the end of the frame, so it may contain
// commas.
func (l *Link) SetComment(ctx context.Context, index int, comment string) error {
	l.cache.Remove(index)
	_, err := l.exchange(ctx, "SetSurfaceData", strconv.Itoa(index), strconv.Itoa(sdatComment), comment)
	return err
}

func (l *Link) SetKind(ctx context.Context, index int, k optic.Kind) error {
	l.cache.Remove(index)
	_, err := l.exchange(ctx, "SetSurfaceData", strconv.Itoa(index), strconv.Itoa(sdatType), k.String())
	return err
}

func (l *Link) Parameter(ctx context.Context, index, param int) (float64, error) {
	reply, err := l.exchange(ctx, "GetSurfaceParameter", strconv.Itoa(index), strconv.Itoa(param))
	if err != nil {
		return 0, err
	}
	fields, err := parseReply(reply)
	if err != nil {
		return 0, err
	}
	vals, err := parseFloats(fields, 1)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

func (l *Link) SetParameter(ctx context.Context, index, param int, v float64) error {
	l.cache.Remove(index)
	_, err := l.exchange(ctx, "SetSurfaceParameter", strconv.Itoa(index), strconv.Itoa(param), formatFloat(v))
	return err
}

func (l *Link) Insert(ctx context.Context, index int) error {
	// Every cached index at or above the insertion point is stale.
	l.cache.Purge()
	_, err := l.exchange(ctx, "InsertSurface", strconv.Itoa(index))
	return err
}

func (l *Link) Solve(ctx context.Context, index int, slot solve.Slot) (solve.Constraint, error) {
	reply, err := l.exchange(ctx, "GetSolve", strconv.Itoa(index), strconv.Itoa(int(slot)))
	if err != nil {
		return solve.Constraint{}, err
	}
	fields, err := parseReply(reply)
	if err != nil {
		return solve.Constraint{}, err
	}
	vals, err := parseFloats(fields, 5)
	if err != nil {
		return solve.Constraint{}, err
	}
	current, err := l.currentValue(ctx, index, slot)
	if err != nil {
		return solve.Constraint{}, err
	}
	var params [4]float64
	copy(params[:], vals[1:])
	return solve.FromRecord(slot, int(vals[0]), params, current), nil
}

func (l *Link) currentValue(ctx context.Context, index int, slot solve.Slot) (float64, error) {
	switch {
	case slot == solve.SlotThickness:
		s, err := l.Surface(ctx, index)
		if err != nil {
			return 0, err
		}
		return s.Thickness, nil
	case slot.IsParam():
		return l.Parameter(ctx, index, slot.ParamIndex())
	default:
		return 0, nil
	}
}

func (l *Link) SetSolve(ctx context.Context, index int, slot solve.Slot, c solve.Constraint) error {
	l.cache.Remove(index)
	code, params := c.Record(slot)
	args := append([]string{strconv.Itoa(index), strconv.Itoa(int(slot)), strconv.Itoa(code)},
		formatFloats(params[:]...)...)
	_, err := l.exchange(ctx, "SetSolve", args...)
	return err
}

func (l *Link) Sync(ctx context.Context) error {
	l.cache.Purge()
	if _, err := l.exchange(ctx, "GetUpdate"); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// System
// ---------------------------------------------------------------------------

func (l *Link) Trace(ctx context.Context, req TraceRequest) (TraceResult, error) {
	mode := 0
	if req.Paraxial {
		mode = 1
	}
	reply, err := l.exchange(ctx, "GetTrace",
		strconv.Itoa(req.WaveNumber), strconv.Itoa(mode), strconv.Itoa(req.Surface),
		formatFloat(req.Hx), formatFloat(req.Hy), formatFloat(req.Px), formatFloat(req.Py))
	if err != nil {
		return TraceResult{}, err
	}
	fields, err := parseReply(reply)
	if err != nil {
		return TraceResult{}, err
	}
	v, err := parseFloats(fields, 12)
	if err != nil {
		return TraceResult{}, err
	}
	return TraceResult{
		ErrorCode: int(v[0]), VignetteCode: int(v[1]),
		X: v[2], Y: v[3], Z: v[4],
		L: v[5], M: v[6], N: v[7],
		L2: v[8], M2: v[9], N2: v[10],
		Intensity: v[11],
	}, nil
}

func (l *Link) Optimize(ctx context.Context, cycles int) (float64, error) {
	reply, err := l.exchange(ctx, "Optimize", strconv.Itoa(cycles))
	if err != nil {
		return 0, err
	}
	fields, err := parseReply(reply)
	if err != nil {
		return 0, err
	}
	v, err := parseFloats(fields, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func (l *Link) LoadLens(ctx context.Context, path string) error {
	l.cache.Purge()
	_, err := l.exchange(ctx, "LoadFile", path)
	return err
}

func (l *Link) PushLens(ctx context.Context) error {
	_, err := l.exchange(ctx, "PushLens")
	return err
}

func (l *Link) RefreshLens(ctx context.Context) error {
	l.cache.Purge()
	_, err := l.exchange(ctx, "GetRefresh")
	return err
}

func (l *Link) SystemInfo(ctx context.Context) (SystemInfo, error) {
	reply, err := l.exchange(ctx, "GetSystem")
	if err != nil {
		return SystemInfo{}, err
	}
	fields, err := parseReply(reply)
	if err != nil {
		return SystemInfo{}, err
	}
	v, err := parseFloats(fields, 8)
	if err != nil {
		return SystemInfo{}, err
	}
	return SystemInfo{
		NumSurfaces:   int(v[0]),
		UnitCode:      int(v[1]),
		StopSurface:   int(v[2]),
		NonAxial:      v[3] != 0,
		RayAimingType: int(v[4]),
		Temperature:   v[5],
		Pressure:      v[6],
		GlobalRefSurf: int(v[7]),
	}, nil
}

func (l *Link) FirstOrder(ctx context.Context) (FirstOrder, error) {
	reply, err := l.exchange(ctx, "GetFirst")
	if err != nil {
		return FirstOrder{}, err
	}
	fields, err := parseReply(reply)
	if err != nil {
		return FirstOrder{}, err
	}
	v, err := parseFloats(fields, 5)
	if err != nil {
		return FirstOrder{}, err
	}
	return FirstOrder{
		EFL:                   v[0],
		ParaxialWorkingFNo:    v[1],
		RealWorkingFNo:        v[2],
		ParaxialImageHeight:   v[3],
		ParaxialMagnification: v[4],
	}, nil
}

func (l *Link) Wavelength(ctx context.Context, index int) (Wavelength, error) {
	reply, err := l.exchange(ctx, "GetWave", strconv.Itoa(index))
	if err != nil {
		return Wavelength{}, err
	}
	fields, err := parseReply(reply)
	if err != nil {
		return Wavelength{}, err
	}
	v, err := parseFloats(fields, 2)
	if err != nil {
		return Wavelength{}, err
	}
	return Wavelength{Value: v[0], Weight: v[1]}, nil
}

func (l *Link) SetSystemProperty(ctx context.Context, code int, args ...float64) error {
	itemArgs := append([]string{strconv.Itoa(code)}, formatFloats(args...)...)
	_, err := l.exchange(ctx, "SetSystemProperty", itemArgs...)
	return err
}

// ---------------------------------------------------------------------------
// Merit
// ---------------------------------------------------------------------------

func (l *Link) InsertOperand(ctx context.Context, row int) error {
	_, err := l.exchange(ctx, "InsertMFO", strconv.Itoa(row))
	return err
}

func (l *Link) DeleteOperand(ctx context.Context, row int) (int, error) {
	reply, err := l.exchange(ctx, "DeleteMFO", strconv.Itoa(row))
	if err != nil {
		return 0, err
	}
	fields, err := parseReply(reply)
	if err != nil {
		return 0, err
	}
	v, err := parseFloats(fields, 1)
	if err != nil {
		return 0, err
	}
	return int(v[0]), nil
}

func (l *Link) SetOperandRow(ctx context.Context, row int, op Operand) error {
	args := []string{strconv.Itoa(row), op.Type, strconv.Itoa(op.Int1), strconv.Itoa(op.Int2)}
	args = append(args, formatFloats(op.Data[:]...)...)
	args = append(args, formatFloat(op.Target), formatFloat(op.Weight))
	_, err := l.exchange(ctx, "SetOperandRow", args...)
	return err
}

// Operands reads the merit function editor. The host exposes no row-count
// item, so the count is learned the way the editor UI does it: insert a
// blank row, delete it, and use the remaining-row count the delete reports.
func (l *Link) Operands(ctx context.Context) ([]Operand, error) {
	if err := l.InsertOperand(ctx, 1); err != nil {
		return nil, err
	}
	count, err := l.DeleteOperand(ctx, 1)
	if err != nil {
		return nil, err
	}
	ops := make([]Operand, 0, count)
	for row := 1; row <= count; row++ {
		op, err := l.operandRow(ctx, row)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (l *Link) operandRow(ctx context.Context, row int) (Operand, error) {
	reply, err := l.exchange(ctx, "GetOperandRow", strconv.Itoa(row))
	if err != nil {
		return Operand{}, err
	}
	fields, err := parseReply(reply)
	if err != nil {
		return Operand{}, err
	}
	if len(fields) < 11 {
		return Operand{}, fmt.Errorf("operand reply has %d fields: %w", len(fields), optic.ErrSessionFailure)
	}
	v, err := parseFloats(fields[1:], 10)
	if err != nil {
		return Operand{}, err
	}
	op := Operand{Type: fields[0], Int1: int(v[0]), Int2: int(v[1]), Target: v[8], Weight: v[9]}
	copy(op.Data[:], v[2:8])
	return op, nil
}

func (l *Link) ExecuteMacro(ctx context.Context, code string) error {
	_, err := l.exchange(ctx, "ExecuteZPL", code)
	return err
}

func (l *Link) LoadMerit(ctx context.Context, path string) error {
	_, err := l.exchange(ctx, "LoadMerit", path)
	return err
}

func (l *Link) SaveMerit(ctx context.Context, path string) error {
	_, err := l.exchange(ctx, "SaveMerit", path)
	return err
}

var _ Session = (*Link)(nil)
