// Package discovery implements analyzer script auto-discovery (spec §4.5
// "Analyzer path discovery").
package discovery

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultRelScript is the path, relative to a candidate directory, that
// marks it as containing the analyzer script.
const DefaultRelScript = "pike-scripts/analyzer.pike"

// MaxWalkLevels bounds the upward walk (spec §4.5: "up to a fixed maximum
// (10 levels)").
const MaxWalkLevels = 10

// FindScript resolves the analyzer script path per spec.md's Open Question
// #1 resolution (SPEC_FULL.md §13): an explicit path always wins; failing
// that, walk upward from anchorDir (the bridge module's own directory)
// testing each level for relScript; failing that, fall back to relScript
// resolved against the current working directory. The fallback path is
// always returned (never an error) — whether it actually exists is a
// concern for HealthCheck/start(), not for discovery itself (spec §4.5
// "Health check").
func FindScript(explicit, anchorDir, relScript string) string {
	if explicit != "" {
		return explicit
	}
	if relScript == "" {
		relScript = DefaultRelScript
	}
	if found, ok := walkUp(anchorDir, relScript); ok {
		return found
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, relScript)
	}
	return relScript
}

func walkUp(anchorDir, relScript string) (string, bool) {
	dir := anchorDir
	for level := 0; level < MaxWalkLevels; level++ {
		candidate := filepath.Join(dir, relScript)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

// CallerDir returns the directory of the Go source file that calls it,
// used as the default anchor for FindScript — "the bridge's own module
// directory" per spec §4.5.
func CallerDir() string {
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return "."
	}
	return filepath.Dir(file)
}
