package main

import (
	"os"
	"path/filepath"
	"testing"
)

func fakeAnalyzerBinary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-pike.sh")
	script := `#!/bin/sh
while IFS= read -r line; do
  id=$(printf '%s' "$line" | sed -n 's/.*"id":\([0-9]*\).*/\1/p')
  method=$(printf '%s' "$line" | sed -n 's/.*"method":"\([a-z_]*\)".*/\1/p')
  case "$method" in
    get_version)
      printf '{"id":%s,"result":{"version":"9.0.1"}}\n' "$id"
      ;;
    *)
      printf '{"id":%s,"result":{}}\n' "$id"
      ;;
  esac
done
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunVersionFlag(t *testing.T) {
	if code := run([]string{"--version"}); code != 0 {
		t.Errorf("expected exit 0, got %d", code)
	}
}

func TestRunNoArgs(t *testing.T) {
	if code := run([]string{}); code != 2 {
		t.Errorf("expected usage error exit 2, got %d", code)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	exe := fakeAnalyzerBinary(t)
	code := run([]string{"frobnicate", "--executable", "/bin/sh", "--script", exe})
	if code != 2 {
		t.Errorf("expected usage error exit 2 for unknown command, got %d", code)
	}
}

func TestRunVersionCommand(t *testing.T) {
	exe := fakeAnalyzerBinary(t)
	code := run([]string{"version", "--executable", "/bin/sh", "--script", exe})
	if code != 0 {
		t.Errorf("expected exit 0, got %d", code)
	}
}

func TestRunParseMissingText(t *testing.T) {
	exe := fakeAnalyzerBinary(t)
	code := run([]string{"parse", "file:///a.pike", "--executable", "/bin/sh", "--script", exe})
	if code != 2 {
		t.Errorf("expected usage error exit 2 for missing --text/--file, got %d", code)
	}
}
