// Package bridge implements the Request Multiplexer (spec §4.5, C5) and
// the Public API Surface (spec §4.6, C6): the supervisor that owns the
// analyzer subprocess and exposes a typed, concurrency-safe request API.
package bridge

import (
	"time"

	"go.uber.org/zap"

	"github.com/arvidsson/pikebridge/internal/discovery"
)

// DefaultTimeout is the default per-request timeout (spec §4.5 step 4,
// "default 30 s").
const DefaultTimeout = 30 * time.Second

// DefaultReadinessDelay is the fixed delay start() waits after spawning,
// to give the child time to initialize its reader (spec §4.5 "start()").
const DefaultReadinessDelay = 100 * time.Millisecond

// DefaultShutdownGrace is the fixed delay stop() waits after requesting
// graceful termination (spec §4.5 "stop()").
const DefaultShutdownGrace = 50 * time.Millisecond

// DefaultBatchMax is the default chunk size for batch_parse (spec §4.6
// "Batch parse").
const DefaultBatchMax = 50

// RateLimitOptions configures C2. A nil *RateLimitOptions on Options
// disables rate limiting entirely (spec §4.2 "Defaults").
type RateLimitOptions struct {
	MaxRequests   int
	WindowSeconds int
}

// Options configures a Bridge. Per SPEC_FULL.md §10, this is a plain
// struct — no flag parsing, no config file loading (spec.md §1 explicitly
// scopes those out as Non-goals).
type Options struct {
	// ExecutablePath is the analyzer interpreter binary. Defaults to "pike".
	ExecutablePath string
	// ScriptPath, if set, is used verbatim (spec §4.5 "Analyzer path
	// discovery", resolved per SPEC_FULL.md §13 Open Question #1).
	ScriptPath string
	// ScriptRelPath overrides the relative path discovery walks for
	// (default "pike-scripts/analyzer.pike").
	ScriptRelPath string

	// Timeout is the default per-request timeout. Zero uses DefaultTimeout.
	Timeout time.Duration
	// Debug enables verbose analyzer logging via set_debug at start.
	Debug bool
	// EnvOverlay is merged onto the parent environment, overlay winning
	// key conflicts (spec §4.1 "spawn()").
	EnvOverlay map[string]string

	// RateLimit configures C2. Nil disables rate limiting.
	RateLimit *RateLimitOptions

	// TokenCacheSize bounds C4. Zero uses tokencache.DefaultMaxSize.
	TokenCacheSize int

	// BatchMaxFiles bounds how many files batch_parse sends per chunk.
	// Zero uses DefaultBatchMax.
	BatchMaxFiles int

	// ReadinessDelay and ShutdownGrace override the fixed delays spec.md
	// §9's Open Questions flagged as implementation-chosen heuristics;
	// resolved in SPEC_FULL.md §13 by making them configurable here.
	ReadinessDelay time.Duration
	ShutdownGrace  time.Duration

	// KillGrace bounds how long Kill waits for graceful exit before
	// escalating to a forceful kill (spec §4.1 "kill()").
	KillGrace time.Duration

	// StderrSuppressions are substrings of known-benign analyzer stderr
	// lines (e.g. self-parsing warnings) that are logged at a lower
	// severity instead of re-emitted as user-facing stderr (spec §4.5
	// "Tie-breaks and edge cases").
	StderrSuppressions []string

	// Logger receives structured diagnostic output. Nil uses zap.NewNop().
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.ExecutablePath == "" {
		o.ExecutablePath = "pike"
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ReadinessDelay <= 0 {
		o.ReadinessDelay = DefaultReadinessDelay
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = DefaultShutdownGrace
	}
	if o.BatchMaxFiles <= 0 {
		o.BatchMaxFiles = DefaultBatchMax
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ScriptPath == "" {
		o.ScriptPath = discovery.FindScript("", discovery.CallerDir(), o.ScriptRelPath)
	}
	return o
}
