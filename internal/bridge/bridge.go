// bridge.go — the Request Multiplexer (spec §4.5, C5). Bridge owns one
// analyzer Process Handle, a pending-request table keyed by monotonic
// integer ID, the in-flight deduplication group, the rate limiter, and
// the token cache. It is the single point through which every analyzer
// request flows.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/arvidsson/pikebridge/internal/pikeerr"
	"github.com/arvidsson/pikebridge/internal/procio"
	"github.com/arvidsson/pikebridge/internal/ratelimit"
	"github.com/arvidsson/pikebridge/internal/safego"
	"github.com/arvidsson/pikebridge/internal/tokencache"
	"github.com/arvidsson/pikebridge/internal/validate"
	"github.com/arvidsson/pikebridge/internal/wire"
)

// Result is what SendRequest hands back on success: the raw result
// payload, an optional perf envelope, and — only for analyze-style
// responses — the partial-failure list (spec §4.5 step 6, §6).
type Result struct {
	Raw      json.RawMessage
	Perf     json.RawMessage
	Failures json.RawMessage
}

type pendingEntry struct {
	ch     chan pendingResult
	method string
}

type pendingResult struct {
	result *Result
	err    error
}

// Bridge supervises one analyzer subprocess across its whole lifetime,
// including transparent respawn after an unexpected exit.
type Bridge struct {
	opts Options

	mu      sync.Mutex
	handle  *procio.Handle
	pending map[int64]*pendingEntry
	started bool
	lastErr error

	nextID int64

	limiter *ratelimit.Bucket
	cache   *tokencache.Cache
	dedup   singleflight.Group

	logger *zap.Logger

	metricsMu sync.Mutex
	batch     BatchMetrics

	startedCh chan struct{}
	stoppedCh chan struct{}
	closeCh   chan ExitNotice
	stderrCh  chan string
}

// ExitNotice is delivered on Close(...) when the analyzer process exits
// (spec §4.5 events: "close(code)").
type ExitNotice struct {
	Code *int
}

// BatchMetrics accumulates batch_parse chunking/IPC timing across calls
// (spec §4.6 "Batch parse", SPEC_FULL.md §12).
type BatchMetrics struct {
	Calls      int
	FilesTotal int
	ChunkCount int
	IPCTotal   time.Duration
}

// New constructs a Bridge. The analyzer subprocess is not spawned until
// Start (or the first SendRequest) is called.
func New(opts Options) *Bridge {
	opts = opts.withDefaults()

	var limiter *ratelimit.Bucket
	if opts.RateLimit != nil {
		limiter = ratelimit.New(opts.RateLimit.MaxRequests,
			float64(opts.RateLimit.MaxRequests)/float64(max1(opts.RateLimit.WindowSeconds)))
	}

	return &Bridge{
		opts:      opts,
		pending:   make(map[int64]*pendingEntry),
		limiter:   limiter,
		cache:     tokencache.New(opts.TokenCacheSize),
		logger:    opts.Logger,
		startedCh: make(chan struct{}, 1),
		stoppedCh: make(chan struct{}, 1),
		closeCh:   make(chan ExitNotice, 1),
		stderrCh:  make(chan string, 64),
	}
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// Started fires once each time start() completes successfully.
func (b *Bridge) Started() <-chan struct{} { return b.startedCh }

// Stopped fires once each time stop() completes.
func (b *Bridge) Stopped() <-chan struct{} { return b.stoppedCh }

// Close fires when the subprocess exits, whether unexpectedly or because
// Stop killed it (spec §4.5 "close(code)"). The channel holds one notice;
// a notice is dropped while an earlier one is still unread.
func (b *Bridge) Close() <-chan ExitNotice { return b.closeCh }

// StderrLines delivers analyzer stderr output that was not matched by a
// suppression rule (spec §4.5 "Tie-breaks and edge cases").
func (b *Bridge) StderrLines() <-chan string { return b.stderrCh }

// Start spawns the analyzer subprocess if it is not already running.
// Idempotent: calling Start while already started is a no-op (spec §4.5
// "start()": "idempotent while already running").
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()
	return b.ensureStarted(ctx)
}

func (b *Bridge) ensureStarted(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}

	handle := procio.New(b.opts.KillGrace, b.logger)
	b.handle = handle
	b.pending = make(map[int64]*pendingEntry)
	b.mu.Unlock()

	// Install event handlers before spawning (spec §4.5 "start()").
	safego.Go(b.logger, "bridge.runEventLoop", func() { b.runEventLoop(handle) })

	if err := handle.Spawn(b.opts.ExecutablePath, []string{b.opts.ScriptPath}, b.opts.EnvOverlay); err != nil {
		b.mu.Lock()
		b.lastErr = err
		b.mu.Unlock()
		b.logger.Error("analyzer spawn failed", zap.Error(err), zap.String("path", b.opts.ExecutablePath))
		return err
	}

	time.Sleep(b.opts.ReadinessDelay)

	b.mu.Lock()
	b.started = true
	b.lastErr = nil
	b.mu.Unlock()

	if b.opts.Debug {
		if _, err := b.SendRequest(ctx, "set_debug", map[string]any{"enabled": true}, nil); err != nil {
			b.logger.Warn("set_debug at start failed", zap.Error(err))
		}
	}

	select {
	case b.startedCh <- struct{}{}:
	default:
	}
	b.logger.Info("analyzer started", zap.Int("pid", handle.PID()))
	return nil
}

// Stop requests graceful termination and waits up to Options.ShutdownGrace
// plus KillGrace before returning. Idempotent (spec §4.5 "stop()").
func (b *Bridge) Stop(ctx context.Context) {
	b.mu.Lock()
	if !b.started || b.handle == nil {
		b.mu.Unlock()
		return
	}
	handle := b.handle
	b.mu.Unlock()

	time.Sleep(b.opts.ShutdownGrace)
	handle.Kill(ctx)

	b.mu.Lock()
	b.started = false
	b.rejectAllPendingLocked(&pikeerr.NotRunning{})
	b.mu.Unlock()

	select {
	case b.stoppedCh <- struct{}{}:
	default:
	}
}

func (b *Bridge) rejectAllPendingLocked(err error) {
	for id, entry := range b.pending {
		delete(b.pending, id)
		select {
		case entry.ch <- pendingResult{err: err}:
		default:
		}
	}
}

// runEventLoop dispatches one subprocess handle's lifetime. It exits after
// the handle's exit event fires, since a respawn allocates a fresh handle
// and a fresh runEventLoop goroutine.
func (b *Bridge) runEventLoop(handle *procio.Handle) {
	for {
		select {
		case line, ok := <-handle.Messages():
			if !ok {
				return
			}
			b.dispatchLine(line)
		case chunk, ok := <-handle.Stderr():
			if !ok {
				return
			}
			b.dispatchStderr(chunk)
		case err, ok := <-handle.Errors():
			if !ok {
				return
			}
			b.logger.Warn("process handle error", zap.Error(err))
		case ev, ok := <-handle.Exit():
			if !ok {
				return
			}
			b.handleExit(ev)
			return
		}
	}
}

func (b *Bridge) dispatchStderr(chunk string) {
	for _, suppress := range b.opts.StderrSuppressions {
		if suppress != "" && strings.Contains(chunk, suppress) {
			b.logger.Debug("suppressed analyzer stderr", zap.String("chunk", chunk))
			return
		}
	}
	select {
	case b.stderrCh <- chunk:
	default:
	}
	b.logger.Warn("analyzer stderr", zap.String("chunk", chunk))
}

// dispatchLine parses one stdout line as a wire.Response and routes it to
// the matching pending entry. A line that fails to parse as JSON is
// redirected to the stderr path instead of being dropped (spec §4.5
// "Tie-breaks and edge cases": "non-JSON stdout lines are treated as
// stray stderr output, not protocol errors").
func (b *Bridge) dispatchLine(line string) {
	var resp wire.Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		b.dispatchStderr(line)
		return
	}

	id, ok := wire.NumericID(resp.ID)
	if !ok {
		return
	}

	b.mu.Lock()
	entry, found := b.pending[id]
	if found {
		delete(b.pending, id)
	}
	b.mu.Unlock()
	if !found {
		// Either already timed out, or an ID we never issued. Drop
		// silently per spec §4.5's boundary behavior.
		return
	}

	result, err := b.buildResult(entry.method, &resp)
	entry.ch <- pendingResult{result: result, err: err}
}

func (b *Bridge) buildResult(method string, resp *wire.Response) (*Result, error) {
	if resp.Error != nil {
		return nil, &pikeerr.RequestFailed{Method: method, ErrorCode: resp.Error.Code, Message: resp.Error.Message}
	}
	return &Result{Raw: resp.Result, Perf: resp.Perf, Failures: resp.Failures}, nil
}

func (b *Bridge) handleExit(ev procio.ExitEvent) {
	b.mu.Lock()
	b.started = false
	b.rejectAllPendingLocked(&pikeerr.ProcessExited{ExitCode: ev.Code})
	b.mu.Unlock()

	b.logger.Warn("analyzer exited", zap.Any("code", ev.Code))
	select {
	case b.closeCh <- ExitNotice{Code: ev.Code}:
	default:
	}
}

// SendRequest is the single entry point every typed C6 call goes through:
// rate-limit admission, in-flight deduplication, request dispatch, and
// optional structural validation of the result (spec §4.5 steps 1-7).
//
// No external cancellation handle is exposed (spec §4.5 DESIGN NOTES):
// ctx is only consulted while (re)spawning the subprocess, never while
// waiting for a response — the per-request timeout is the sole bound on
// that wait, so two concurrent duplicate calls sharing one singleflight
// execution are never torn apart by one caller's unrelated cancellation.
func (b *Bridge) SendRequest(ctx context.Context, method string, params any, validator validate.Func) (*Result, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("bridge: marshal params for %s: %w", method, err)
	}

	if !b.limiter.TryAcquire() {
		return nil, &pikeerr.RateLimitExceeded{Method: method}
	}

	fp, err := wire.Fingerprint(method, raw)
	if err != nil {
		return nil, fmt.Errorf("bridge: fingerprint %s: %w", method, err)
	}

	v, err, _ := b.dedup.Do(fp, func() (any, error) {
		return b.doSend(ctx, method, raw, validator)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (b *Bridge) doSend(ctx context.Context, method string, params json.RawMessage, validator validate.Func) (*Result, error) {
	if err := b.ensureStarted(ctx); err != nil {
		return nil, err
	}

	corrID := uuid.NewString()
	logger := b.logger.With(zap.String("correlation_id", corrID), zap.String("method", method))

	id := atomic.AddInt64(&b.nextID, 1)
	entry := &pendingEntry{ch: make(chan pendingResult, 1), method: method}

	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil, &pikeerr.NotRunning{}
	}
	b.pending[id] = entry
	b.mu.Unlock()

	req := wire.Request{ID: id, Method: method, Params: params}
	line, err := json.Marshal(req)
	if err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return nil, fmt.Errorf("bridge: marshal request %s: %w", method, err)
	}

	b.mu.Lock()
	handle := b.handle
	b.mu.Unlock()

	if err := handle.Send(string(line)); err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return nil, err
	}

	timeout := b.timeoutFor(method, params)
	logger.Debug("dispatched request", zap.Int64("id", id), zap.Duration("timeout", timeout))
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-entry.ch:
		if res.err != nil {
			logger.Warn("request failed", zap.Error(res.err))
			return nil, res.err
		}
		if validator != nil {
			if err := validator(method, res.result.Raw); err != nil {
				logger.Warn("response validation failed", zap.Error(err))
				return nil, err
			}
		}
		return res.result, nil
	case <-timer.C:
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		logger.Warn("request timed out", zap.Duration("timeout", timeout))
		return nil, &pikeerr.Timeout{Method: method, Timeout: timeout.String()}
	}
}

func (b *Bridge) timeoutFor(method string, params json.RawMessage) time.Duration {
	if method == "batch_parse" {
		return BatchTimeout(extractFileCount(params))
	}
	return PikeCallTimeout(method, b.opts.Timeout)
}

// recordBatch accumulates chunking/IPC metrics for one batch_parse call
// (spec §4.6 "Batch parse").
func (b *Bridge) recordBatch(files, chunks int, ipc time.Duration) {
	b.metricsMu.Lock()
	defer b.metricsMu.Unlock()
	b.batch.Calls++
	b.batch.FilesTotal += files
	b.batch.ChunkCount += chunks
	b.batch.IPCTotal += ipc
}

// DrainBatchMetrics returns the accumulated BatchMetrics and resets them
// to zero.
func (b *Bridge) DrainBatchMetrics() BatchMetrics {
	b.metricsMu.Lock()
	defer b.metricsMu.Unlock()
	m := b.batch
	b.batch = BatchMetrics{}
	return m
}

// Cache exposes the token cache for GetCacheStats/InvalidateCache wrappers.
func (b *Bridge) Cache() *tokencache.Cache { return b.cache }

// RateLimitTokens exposes the bucket's current token count for diagnostics.
func (b *Bridge) RateLimitTokens() float64 { return b.limiter.Tokens() }

// LastError reports the most recent spawn failure, or nil (spec §4.5
// "Health check": "no prior failure is recorded").
func (b *Bridge) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// IsRunning reports whether the subprocess is believed to be live.
func (b *Bridge) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}
