// timeout.go — per-request timeout tiers, keyed on analyzer method name.
//
// Adapted from the teacher's ToolCallTimeout (dev-console bridge.go), which
// tiered JSON-RPC tool calls into fast/slow/blocking-poll buckets by
// inspecting the request's tool name. The analyzer's methods are already
// top-level (no "tools/call" envelope to unwrap), so PikeCallTimeout tiers
// directly on method name; BatchTimeout keeps the teacher's separate
// "slower, proportional to batch size" idea for batch_parse.
package bridge

import (
	"encoding/json"
	"time"
)

// Timeout tiers for analyzer methods (spec §4.5 step 4: "configurable,
// default 30 s" — PikeCallTimeout overrides that default per method; the
// configured Options.Timeout applies to anything not listed here).
const (
	FastTimeout = 5 * time.Second
	SlowTimeout = 30 * time.Second
	BatchBase   = 30 * time.Second
	BatchPerOp  = 500 * time.Millisecond
)

// fastMethods get a short timeout: cheap, local, non-subprocess-heavy
// lookups. Everything else uses the bridge's configured default.
var fastMethods = map[string]bool{
	"get_version":         true,
	"get_pike_paths":       true,
	"get_startup_metrics": true,
	"get_cache_stats":     true,
	"invalidate_cache":    true,
	"set_debug":           true,
	"tokenize":            true,
}

// slowMethods get the longer tier: they trigger full reparses or
// whole-tree resolution in the analyzer.
var slowMethods = map[string]bool{
	"analyze":                  true,
	"analyze_uninitialized":    true,
	"get_waterfall_symbols":    true,
	"find_occurrences":        true,
	"check_circular":          true,
	"get_inherited":           true,
}

// PikeCallTimeout returns the per-request timeout for method, falling back
// to def (the bridge's configured Options.Timeout) for anything not in a
// named tier. batch_parse is handled by BatchTimeout instead, since its
// cost scales with the file count carried in params.
func PikeCallTimeout(method string, def time.Duration) time.Duration {
	if method == "batch_parse" {
		return def
	}
	if fastMethods[method] {
		return FastTimeout
	}
	if slowMethods[method] {
		return SlowTimeout
	}
	return def
}

// BatchTimeout scales batch_parse's timeout with the number of files in
// the request, analogous to the teacher's BlockingPoll tier for
// long-running annotation polls.
func BatchTimeout(fileCount int) time.Duration {
	return BatchBase + time.Duration(fileCount)*BatchPerOp
}

// extractFileCount reads the "files" array length out of batch_parse
// params without fully decoding them into a typed struct.
func extractFileCount(params json.RawMessage) int {
	var p struct {
		Files []json.RawMessage `json:"files"`
	}
	if json.Unmarshal(params, &p) != nil {
		return 0
	}
	return len(p.Files)
}
