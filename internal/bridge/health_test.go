package bridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthCheckReportsMissingExecutable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	script := filepath.Join(dir, "analyzer.pike")
	require.NoError(t, os.WriteFile(script, []byte("// not a real analyzer\n"), 0o644))

	b := New(Options{
		ExecutablePath: filepath.Join(dir, "no-such-binary"),
		ScriptPath:     script,
	})

	status := b.HealthCheck(context.Background())
	require.False(t, status.ExecutableOK)
	require.True(t, status.ScriptOK)
	require.True(t, status.NoPriorError)
	require.Error(t, status.Err)
}

func TestHealthCheckReportsMissingScript(t *testing.T) {
	t.Parallel()
	b := New(Options{
		ExecutablePath: "/bin/sh",
		ScriptPath:     "/no/such/script.pike",
	})

	status := b.HealthCheck(context.Background())
	require.True(t, status.ExecutableOK)
	require.False(t, status.ScriptOK)
	require.False(t, status.OK())
}

func TestHealthCheckTimesOut(t *testing.T) {
	t.Parallel()
	b := New(Options{ExecutablePath: "/bin/sh", ScriptPath: "/no/such/script.pike"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = b.HealthCheck(ctx) // must return promptly regardless of the 5s internal bound
}
