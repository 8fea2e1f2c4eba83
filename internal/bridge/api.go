// api.go — the Public API Surface (spec §4.6, C6): typed, documented
// wrappers over Bridge.SendRequest for every analyzer method. Callers
// never build raw params maps or unmarshal raw results themselves.
package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/arvidsson/pikebridge/internal/validate"
)

// Position is a zero-based line/column location in a document, the
// coordinate system every positional call below uses (spec §3, glossary
// "Position").
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Diagnostic is one parse/analysis finding attached to a document.
type Diagnostic struct {
	Range    [2]Position `json:"range"`
	Message  string      `json:"message"`
	Severity string      `json:"severity"`
}

// ParseResult is the result of Parse and BatchParse's per-file entries.
type ParseResult struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Parse compiles a single document and returns its diagnostics (spec §4.6
// "Parse").
func (b *Bridge) Parse(ctx context.Context, uri, text string, version int64) (*ParseResult, error) {
	params := map[string]any{"uri": uri, "text": text, "version": version}
	res, err := b.SendRequest(ctx, "parse", params, validate.All(validate.String("uri"), validate.Array("diagnostics")))
	if err != nil {
		return nil, err
	}
	var out ParseResult
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tokenize splits text into Pike lexical tokens, caching the result
// keyed by (uri, version) for later GetCompletionContext calls (spec §4.4,
// §4.6 "Tokenize").
func (b *Bridge) Tokenize(ctx context.Context, uri, text string, version int64) ([]string, error) {
	params := map[string]any{"uri": uri, "text": text, "version": version}
	res, err := b.SendRequest(ctx, "tokenize", params, validate.StringArray("tokens"))
	if err != nil {
		return nil, err
	}
	var out struct {
		Tokens []string `json:"tokens"`
	}
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	b.cache.Put(uri, version, out.Tokens)
	return out.Tokens, nil
}

// Compile runs a full Roxen/Caudium-style validation compile and returns
// its diagnostics (spec §4.6 "Compile").
func (b *Bridge) Compile(ctx context.Context, uri, text string) ([]Diagnostic, error) {
	params := map[string]any{"uri": uri, "text": text}
	res, err := b.SendRequest(ctx, "compile", params, validate.Array("diagnostics"))
	if err != nil {
		return nil, err
	}
	var out struct {
		Diagnostics []Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	return out.Diagnostics, nil
}

// ResolveResult is the shared shape for Resolve/ResolveInclude/
// ResolveStdlib/ResolveImport: a resolved path plus whether it exists.
type ResolveResult struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

func (b *Bridge) resolveLike(ctx context.Context, method string, params map[string]any) (*ResolveResult, error) {
	res, err := b.SendRequest(ctx, method, params, validate.All(validate.String("path"), validate.Boolean("exists")))
	if err != nil {
		return nil, err
	}
	// validate.Boolean admits the legacy 0|1 encoding, so decode exists
	// loosely and normalize it to a bool.
	var out struct {
		Path   string `json:"path"`
		Exists any    `json:"exists"`
	}
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	exists := false
	switch v := out.Exists.(type) {
	case bool:
		exists = v
	case float64:
		exists = v == 1
	}
	return &ResolveResult{Path: out.Path, Exists: exists}, nil
}

// Resolve resolves a symbol reference relative to a document (spec §4.6
// "Resolve").
func (b *Bridge) Resolve(ctx context.Context, uri, symbol string, pos Position) (*ResolveResult, error) {
	return b.resolveLike(ctx, "resolve", map[string]any{"uri": uri, "symbol": symbol, "position": pos})
}

// ResolveInclude resolves a #include directive's target (spec §4.6
// "ResolveInclude").
func (b *Bridge) ResolveInclude(ctx context.Context, uri, includePath string) (*ResolveResult, error) {
	return b.resolveLike(ctx, "resolve_include", map[string]any{"uri": uri, "include_path": includePath})
}

// ResolveStdlib resolves a standard-library module reference (spec §4.6
// "ResolveStdlib", glossary "resolve_stdlib").
func (b *Bridge) ResolveStdlib(ctx context.Context, module string) (*ResolveResult, error) {
	return b.resolveLike(ctx, "resolve_stdlib", map[string]any{"module": module})
}

// ResolveImport resolves an "import" directive's target module (spec §4.6
// "ResolveImport").
func (b *Bridge) ResolveImport(ctx context.Context, uri, module string) (*ResolveResult, error) {
	return b.resolveLike(ctx, "resolve_import", map[string]any{"uri": uri, "module": module})
}

// ExtractImports lists every import/include path a document references
// (spec §4.6 "ExtractImports").
func (b *Bridge) ExtractImports(ctx context.Context, uri, text string) ([]string, error) {
	res, err := b.SendRequest(ctx, "extract_imports", map[string]any{"uri": uri, "text": text}, validate.StringArray("imports"))
	if err != nil {
		return nil, err
	}
	var out struct {
		Imports []string `json:"imports"`
	}
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	return out.Imports, nil
}

// CheckCircular reports whether resolving uri's imports would form a
// cycle, and the cycle path if so (spec §4.6 "CheckCircular").
func (b *Bridge) CheckCircular(ctx context.Context, uri string) (circular bool, path []string, err error) {
	res, err := b.SendRequest(ctx, "check_circular", map[string]any{"uri": uri}, validate.Boolean("circular"))
	if err != nil {
		return false, nil, err
	}
	var out struct {
		Circular bool     `json:"circular"`
		Path     []string `json:"path"`
	}
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return false, nil, err
	}
	return out.Circular, out.Path, nil
}

// GetInherited lists the classes/programs a document's top-level class
// inherits from, transitively (spec §4.6 "GetInherited").
func (b *Bridge) GetInherited(ctx context.Context, uri string) ([]string, error) {
	res, err := b.SendRequest(ctx, "get_inherited", map[string]any{"uri": uri}, validate.StringArray("inherited"))
	if err != nil {
		return nil, err
	}
	var out struct {
		Inherited []string `json:"inherited"`
	}
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	return out.Inherited, nil
}

// WaterfallSymbol is one entry in GetWaterfallSymbols' result: a symbol
// visible at a position by virtue of Pike's waterfall/inherit scoping
// rules (spec §4.6, glossary "get_waterfall_symbols").
type WaterfallSymbol struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Source string `json:"source"`
}

// GetWaterfallSymbols lists every symbol visible at pos by walking the
// inheritance/include waterfall outward from uri (spec §4.6
// "GetWaterfallSymbols").
func (b *Bridge) GetWaterfallSymbols(ctx context.Context, uri string, pos Position) ([]WaterfallSymbol, error) {
	res, err := b.SendRequest(ctx, "get_waterfall_symbols", map[string]any{"uri": uri, "position": pos}, validate.Array("symbols"))
	if err != nil {
		return nil, err
	}
	var out struct {
		Symbols []WaterfallSymbol `json:"symbols"`
	}
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	return out.Symbols, nil
}

// Occurrence is one match location from FindOccurrences.
type Occurrence struct {
	URI   string   `json:"uri"`
	Range [2]Position `json:"range"`
}

// FindOccurrences finds every reference to symbol reachable from uri
// (spec §4.6 "FindOccurrences").
func (b *Bridge) FindOccurrences(ctx context.Context, uri, symbol string) ([]Occurrence, error) {
	res, err := b.SendRequest(ctx, "find_occurrences", map[string]any{"uri": uri, "symbol": symbol}, validate.Array("occurrences"))
	if err != nil {
		return nil, err
	}
	var out struct {
		Occurrences []Occurrence `json:"occurrences"`
	}
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	return out.Occurrences, nil
}

// AnalyzeResult carries both the successful analysis payload and, when
// present, the per-item partial-failure list (spec §4.5 step 6, §6).
type AnalyzeResult struct {
	Raw      json.RawMessage
	Failures []AnalyzeFailure
}

// AnalyzeFailure is one entry of an analyze-style response's failures array.
type AnalyzeFailure struct {
	URI     string `json:"uri"`
	Message string `json:"message"`
}

// Analyze runs whole-project static analysis over uri (spec §4.6 "Analyze").
func (b *Bridge) Analyze(ctx context.Context, uri string) (*AnalyzeResult, error) {
	return b.analyzeLike(ctx, "analyze", map[string]any{"uri": uri})
}

// AnalyzeUninitialized runs the uninitialized-variable analysis pass
// (spec §4.6 "AnalyzeUninitialized").
func (b *Bridge) AnalyzeUninitialized(ctx context.Context, uri string) (*AnalyzeResult, error) {
	return b.analyzeLike(ctx, "analyze_uninitialized", map[string]any{"uri": uri})
}

func (b *Bridge) analyzeLike(ctx context.Context, method string, params map[string]any) (*AnalyzeResult, error) {
	res, err := b.SendRequest(ctx, method, params, nil)
	if err != nil {
		return nil, err
	}
	out := &AnalyzeResult{Raw: res.Raw}
	if len(res.Failures) > 0 {
		if err := json.Unmarshal(res.Failures, &out.Failures); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// BatchFile is one document submitted to BatchParse.
type BatchFile struct {
	URI     string `json:"uri"`
	Text    string `json:"text"`
	Version int64  `json:"version"`
}

// BatchParse parses many files in bounded-size chunks, recording
// chunking/IPC timing via recordBatch (spec §4.6 "Batch parse").
func (b *Bridge) BatchParse(ctx context.Context, files []BatchFile) ([]ParseResult, error) {
	chunkSize := b.opts.BatchMaxFiles
	var results []ParseResult
	chunks := 0

	for start := 0; start < len(files); start += chunkSize {
		end := start + chunkSize
		if end > len(files) {
			end = len(files)
		}
		chunk := files[start:end]
		chunks++

		t0 := time.Now()
		res, err := b.SendRequest(ctx, "batch_parse", map[string]any{"files": chunk}, validate.Array("results"))
		elapsed := time.Since(t0)
		if err != nil {
			return nil, err
		}

		var out struct {
			Results []ParseResult `json:"results"`
		}
		if err := json.Unmarshal(res.Raw, &out); err != nil {
			return nil, err
		}
		results = append(results, out.Results...)
		b.recordBatch(len(chunk), 1, elapsed)
	}

	return results, nil
}

// CompletionContext is the result of GetCompletionContext: the token
// stream immediately surrounding pos, used by an editor's completion
// provider.
type CompletionContext struct {
	Prefix string   `json:"prefix"`
	Tokens []string `json:"tokens"`
}

// GetCompletionContext serves from the token cache when uri's version
// matches a cached entry (spec §4.4 "Consistency"), falling back to a
// full analyzer round trip and repopulating the cache on a miss (spec
// §4.6 "GetCompletionContext").
func (b *Bridge) GetCompletionContext(ctx context.Context, uri string, version int64, pos Position) (*CompletionContext, error) {
	if entry, ok := b.cache.GetForVersion(uri, version); ok {
		res, err := b.SendRequest(ctx, "get_completion_context_cached",
			map[string]any{"uri": uri, "position": pos, "tokens": entry.SplitTokens},
			validate.StringArray("tokens"))
		if err == nil {
			var out CompletionContext
			if uerr := json.Unmarshal(res.Raw, &out); uerr == nil {
				return &out, nil
			}
		}
		// Fall through to the uncached path on any cache-assisted failure.
	}

	res, err := b.SendRequest(ctx, "get_completion_context", map[string]any{"uri": uri, "position": pos}, validate.StringArray("tokens"))
	if err != nil {
		return nil, err
	}
	var out CompletionContext
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	b.cache.Put(uri, version, out.Tokens)
	return &out, nil
}

// SetDebug toggles verbose analyzer-side logging (spec §4.6 "SetDebug").
func (b *Bridge) SetDebug(ctx context.Context, enabled bool) error {
	_, err := b.SendRequest(ctx, "set_debug", map[string]any{"enabled": enabled}, nil)
	return err
}

// GetVersion reports the analyzer's version string (spec §4.6 "GetVersion").
func (b *Bridge) GetVersion(ctx context.Context) (string, error) {
	res, err := b.SendRequest(ctx, "get_version", map[string]any{}, validate.String("version"))
	if err != nil {
		return "", err
	}
	var out struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// PikePaths is the result of GetPikePaths.
type PikePaths struct {
	IncludePaths []string `json:"include_paths"`
	ModulePaths  []string `json:"module_paths"`
}

// GetPikePaths reports the analyzer's configured include/module search
// paths (spec §4.6 "GetPikePaths").
func (b *Bridge) GetPikePaths(ctx context.Context) (*PikePaths, error) {
	res, err := b.SendRequest(ctx, "get_pike_paths", map[string]any{},
		validate.All(validate.StringArray("include_paths"), validate.StringArray("module_paths")))
	if err != nil {
		return nil, err
	}
	var out PikePaths
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartupMetrics is the result of GetStartupMetrics.
type StartupMetrics struct {
	SpawnMillis   int64 `json:"spawn_ms"`
	ReadyMillis   int64 `json:"ready_ms"`
	RestartCount  int   `json:"restart_count"`
}

// GetStartupMetrics reports analyzer process lifecycle timing (spec §4.6
// "GetStartupMetrics").
func (b *Bridge) GetStartupMetrics(ctx context.Context) (*StartupMetrics, error) {
	res, err := b.SendRequest(ctx, "get_startup_metrics", map[string]any{}, validate.Object(""))
	if err != nil {
		return nil, err
	}
	var out StartupMetrics
	if err := json.Unmarshal(res.Raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CacheStats reports the bridge-local token cache occupancy plus the
// rate limiter's remaining tokens (spec §4.6 "GetCacheStats"). This is a
// bridge-local diagnostic, not an analyzer round trip.
type CacheStats struct {
	Entries       int     `json:"entries"`
	MaxSize       int     `json:"max_size"`
	RateLimitLeft float64 `json:"rate_limit_tokens"`
}

// GetCacheStats reports the current token cache occupancy.
func (b *Bridge) GetCacheStats(context.Context) (*CacheStats, error) {
	return &CacheStats{
		Entries:       b.cache.Len(),
		MaxSize:       b.cache.MaxSize(),
		RateLimitLeft: b.RateLimitTokens(),
	}, nil
}

// InvalidateCache drops uri's cached tokenization, if any (spec §4.6
// "InvalidateCache"). This is bridge-local; it never round-trips to the
// analyzer.
func (b *Bridge) InvalidateCache(_ context.Context, uri string) error {
	b.cache.Invalidate(uri)
	return nil
}
