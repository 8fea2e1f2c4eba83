package procio

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func echoScript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "echo.sh")
	script := "#!/bin/sh\nwhile IFS= read -r line; do printf '%s\\n' \"$line\"; done\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func ignoresInterruptScript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ignore-int.sh")
	script := "#!/bin/sh\ntrap '' INT\nwhile true; do sleep 0.05; done\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSpawnSendMessage(t *testing.T) {
	t.Parallel()
	h := New(0, nil)
	if err := h.Spawn("/bin/sh", []string{echoScript(t)}, nil); err != nil {
		t.Fatal(err)
	}
	defer h.Kill(context.Background())

	if err := h.Send(`{"id":1,"method":"ping","params":{}}`); err != nil {
		t.Fatal(err)
	}

	select {
	case line := <-h.Messages():
		if line != `{"id":1,"method":"ping","params":{}}` {
			t.Errorf("unexpected line: %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed line")
	}

	if !h.IsAlive() {
		t.Error("expected handle to report alive")
	}
	if h.PID() == 0 {
		t.Error("expected nonzero PID")
	}
}

func TestSpawnTwiceFails(t *testing.T) {
	t.Parallel()
	h := New(0, nil)
	if err := h.Spawn("/bin/sh", []string{echoScript(t)}, nil); err != nil {
		t.Fatal(err)
	}
	defer h.Kill(context.Background())

	err := h.Spawn("/bin/sh", []string{echoScript(t)}, nil)
	if err == nil {
		t.Fatal("expected error spawning an already-spawned handle")
	}
}

func TestExitFiresOnProcessDeath(t *testing.T) {
	t.Parallel()
	h := New(0, nil)
	if err := h.Spawn("/bin/sh", []string{"-c", "exit 3"}, nil); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-h.Exit():
		if ev.Code == nil || *ev.Code != 3 {
			t.Errorf("expected exit code 3, got %v", ev.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for exit event")
	}
}

func TestSendAfterExitFails(t *testing.T) {
	t.Parallel()
	h := New(0, nil)
	if err := h.Spawn("/bin/sh", []string{"-c", "exit 0"}, nil); err != nil {
		t.Fatal(err)
	}
	<-h.Exit()

	if err := h.Send(`{"id":1}`); err == nil {
		t.Fatal("expected Send to fail after process exit")
	}
}

func TestKillEscalatesAfterGrace(t *testing.T) {
	t.Parallel()
	h := New(100*time.Millisecond, nil)
	if err := h.Spawn("/bin/sh", []string{ignoresInterruptScript(t)}, nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.Kill(ctx)

	select {
	case <-h.Exit():
	case <-time.After(2 * time.Second):
		t.Fatal("expected process to be force-killed after grace period")
	}
}

func TestMergeEnvOverlayWins(t *testing.T) {
	t.Parallel()
	base := []string{"PATH=/usr/bin", "FOO=bar"}
	got := mergeEnv(base, map[string]string{"FOO": "baz", "NEW": "1"})

	want := map[string]string{"PATH": "/usr/bin", "FOO": "baz", "NEW": "1"}
	seen := map[string]string{}
	for _, kv := range got {
		if eq := indexByte(kv, '='); eq >= 0 {
			seen[kv[:eq]] = kv[eq+1:]
		}
	}
	for k, v := range want {
		if seen[k] != v {
			t.Errorf("env[%s] = %q, want %q", k, seen[k], v)
		}
	}
}
