// dispatch.go — maps a CLI command name to a bridge.Bridge call and
// builds the output.Result(s) to render.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/arvidsson/pikebridge/cmd/pikebridge-cli/output"
	"github.com/arvidsson/pikebridge/internal/bridge"
	"github.com/arvidsson/pikebridge/internal/docuri"
)

// Dispatch runs command against b and returns the results to render.
// Commands that operate on a single document return one Result;
// batch-parse returns one Result per file.
func Dispatch(ctx context.Context, b *bridge.Bridge, command string, args []string) ([]*output.Result, error) {
	switch command {
	case "version":
		return versionCmd(ctx, b)
	case "health":
		return healthCmd(ctx, b)
	case "parse":
		return parseCmd(ctx, b, args)
	case "tokenize":
		return tokenizeCmd(ctx, b, args)
	case "analyze":
		return analyzeCmd(ctx, b, args)
	case "check-circular":
		return checkCircularCmd(ctx, b, args)
	case "resolve-stdlib":
		return resolveStdlibCmd(ctx, b, args)
	case "get-pike-paths":
		return getPikePathsCmd(ctx, b)
	case "batch-parse":
		return batchParseCmd(ctx, b, args)
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func versionCmd(ctx context.Context, b *bridge.Bridge) ([]*output.Result, error) {
	v, err := b.GetVersion(ctx)
	if err != nil {
		return []*output.Result{{Success: false, Operation: "version", Error: err.Error()}}, nil
	}
	return []*output.Result{{Success: true, Operation: "version", Data: map[string]any{"version": v}}}, nil
}

func healthCmd(ctx context.Context, b *bridge.Bridge) ([]*output.Result, error) {
	status := b.HealthCheck(ctx)
	data := map[string]any{
		"executable_ok":  status.ExecutableOK,
		"script_ok":      status.ScriptOK,
		"no_prior_error": status.NoPriorError,
	}
	errMsg := ""
	if status.Err != nil {
		errMsg = status.Err.Error()
	}
	return []*output.Result{{Success: status.OK(), Operation: "health", Data: data, Error: errMsg}}, nil
}

func requireURI(args []string) (string, []string, error) {
	for i, a := range args {
		if len(a) > 0 && a[0] != '-' {
			remaining := make([]string, 0, len(args)-1)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+1:]...)
			return a, remaining, nil
		}
	}
	return "", args, fmt.Errorf("missing document URI argument")
}

// documentText resolves a document's text from --text or --file, reading
// the file from disk when --file is given.
func documentText(args []string) (string, []string, error) {
	text, remaining := parseFlag(args, "--text")
	if text != "" {
		return text, remaining, nil
	}
	path, remaining2 := parseFlag(remaining, "--file")
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", remaining2, fmt.Errorf("read --file %s: %w", path, err)
		}
		return string(data), remaining2, nil
	}
	return "", remaining, fmt.Errorf("one of --text or --file is required")
}

func parseCmd(ctx context.Context, b *bridge.Bridge, args []string) ([]*output.Result, error) {
	uri, args, err := requireURI(args)
	if err != nil {
		return nil, err
	}
	text, args, err := documentText(args)
	if err != nil {
		return nil, err
	}
	version, _, _ := parseFlagInt(args, "--version")

	res, err := b.Parse(ctx, uri, text, int64(version))
	if err != nil {
		return []*output.Result{{Success: false, Operation: "parse", Target: uri, Error: err.Error()}}, nil
	}
	return []*output.Result{{
		Success: true, Operation: "parse", Target: uri,
		Diagnostics: res.Diagnostics,
	}}, nil
}

func tokenizeCmd(ctx context.Context, b *bridge.Bridge, args []string) ([]*output.Result, error) {
	uri, args, err := requireURI(args)
	if err != nil {
		return nil, err
	}
	text, args, err := documentText(args)
	if err != nil {
		return nil, err
	}
	version, _, _ := parseFlagInt(args, "--version")

	tokens, err := b.Tokenize(ctx, uri, text, int64(version))
	if err != nil {
		return []*output.Result{{Success: false, Operation: "tokenize", Target: uri, Error: err.Error()}}, nil
	}
	return []*output.Result{{
		Success: true, Operation: "tokenize", Target: uri,
		Tokens: tokens,
	}}, nil
}

func analyzeCmd(ctx context.Context, b *bridge.Bridge, args []string) ([]*output.Result, error) {
	uri, _, err := requireURI(args)
	if err != nil {
		return nil, err
	}
	res, err := b.Analyze(ctx, uri)
	if err != nil {
		return []*output.Result{{Success: false, Operation: "analyze", Target: uri, Error: err.Error()}}, nil
	}
	return []*output.Result{{
		Success: len(res.Failures) == 0, Operation: "analyze", Target: uri,
		Failures: res.Failures,
	}}, nil
}

func checkCircularCmd(ctx context.Context, b *bridge.Bridge, args []string) ([]*output.Result, error) {
	uri, _, err := requireURI(args)
	if err != nil {
		return nil, err
	}
	circular, path, err := b.CheckCircular(ctx, uri)
	if err != nil {
		return []*output.Result{{Success: false, Operation: "check-circular", Target: uri, Error: err.Error()}}, nil
	}
	return []*output.Result{{
		Success: true, Operation: "check-circular", Target: uri,
		Data: map[string]any{"circular": circular, "path": path},
	}}, nil
}

func resolveStdlibCmd(ctx context.Context, b *bridge.Bridge, args []string) ([]*output.Result, error) {
	module, _, err := requireURI(args) // positional parsing is identical for any bare argument
	if err != nil {
		return nil, fmt.Errorf("missing module argument")
	}
	res, err := b.ResolveStdlib(ctx, module)
	if err != nil {
		return []*output.Result{{Success: false, Operation: "resolve-stdlib", Target: module, Error: err.Error()}}, nil
	}
	return []*output.Result{{
		Success: true, Operation: "resolve-stdlib", Target: module,
		Data: map[string]any{"path": res.Path, "exists": res.Exists},
	}}, nil
}

func getPikePathsCmd(ctx context.Context, b *bridge.Bridge) ([]*output.Result, error) {
	paths, err := b.GetPikePaths(ctx)
	if err != nil {
		return []*output.Result{{Success: false, Operation: "get-pike-paths", Error: err.Error()}}, nil
	}
	return []*output.Result{{
		Success: true, Operation: "get-pike-paths",
		Data: map[string]any{"include_paths": paths.IncludePaths, "module_paths": paths.ModulePaths},
	}}, nil
}

func batchParseCmd(ctx context.Context, b *bridge.Bridge, args []string) ([]*output.Result, error) {
	var files []string
	for _, a := range args {
		if len(a) > 0 && a[0] != '-' {
			files = append(files, a)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("batch-parse requires at least one file path")
	}

	batch := make([]bridge.BatchFile, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		batch = append(batch, bridge.BatchFile{URI: docuri.FromFilePath(path), Text: string(data), Version: 1})
	}

	parsed, err := b.BatchParse(ctx, batch)
	if err != nil {
		return nil, err
	}

	results := make([]*output.Result, 0, len(parsed))
	for _, pr := range parsed {
		results = append(results, &output.Result{
			Success: true, Operation: "batch-parse", Target: pr.URI,
			Diagnostics: pr.Diagnostics,
		})
	}
	return results, nil
}
