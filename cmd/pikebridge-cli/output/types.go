// types.go — shared types for CLI output formatting.
package output

import "github.com/arvidsson/pikebridge/internal/bridge"

// Result represents the outcome of one CLI command against the analyzer
// bridge. Diagnostics, Tokens, and Failures carry the analyzer's own typed
// shapes (spec §4.6) so formatters can render severities, ranges, and
// per-file failure messages instead of a generic key/value dump; Data
// holds whatever doesn't fit one of those shapes (version strings, health
// booleans, resolved paths).
type Result struct {
	Success     bool                    `json:"success"`
	Operation   string                  `json:"operation"`
	Target      string                  `json:"target,omitempty"`
	Diagnostics []bridge.Diagnostic     `json:"diagnostics,omitempty"`
	Tokens      []string                `json:"tokens,omitempty"`
	Failures    []bridge.AnalyzeFailure `json:"failures,omitempty"`
	Data        map[string]any          `json:"data,omitempty"`
	Error       string                  `json:"error,omitempty"`
	TextContent string                  `json:"-"` // raw text, when the operation has no structured payload
}

// Formatter is the interface every output format implements.
type Formatter interface {
	Format(w Writer, result *Result) error
}

// Writer is a minimal write interface (matches io.Writer).
type Writer interface {
	Write(p []byte) (n int, err error)
}
