package bridge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arvidsson/pikebridge/internal/pikeerr"
	"github.com/arvidsson/pikebridge/internal/validate"
)

// fakeAnalyzer writes a tiny POSIX shell script that behaves like the
// analyzer subprocess well enough to exercise the multiplexer: it reads
// one NDJSON request per line and echoes back a canned response based on
// the method name, without depending on any JSON library being present
// in the test environment.
func fakeAnalyzer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-analyzer.sh")

	script := `#!/bin/sh
while IFS= read -r line; do
  id=$(printf '%s' "$line" | sed -n 's/.*"id":\([0-9]*\).*/\1/p')
  method=$(printf '%s' "$line" | sed -n 's/.*"method":"\([a-z_]*\)".*/\1/p')
  case "$method" in
    get_version)
      printf '{"id":%s,"result":{"version":"9.0.1"}}\n' "$id"
      ;;
    slow_method)
      sleep 2
      printf '{"id":%s,"result":{}}\n' "$id"
      ;;
    fail_method)
      printf '{"id":%s,"error":{"code":42,"message":"boom"}}\n' "$id"
      ;;
    bad_shape)
      printf '{"id":%s,"result":{"version":123}}\n' "$id"
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

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	exe := fakeAnalyzer(t)
	b := New(Options{
		ExecutablePath: "/bin/sh",
		ScriptPath:     exe,
		Timeout:        2 * time.Second,
		KillGrace:      200 * time.Millisecond,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		b.Stop(ctx)
	})
	return b
}

func TestBridgeGetVersion(t *testing.T) {
	t.Parallel()
	b := newTestBridge(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	v, err := b.GetVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, "9.0.1", v)
	require.True(t, b.IsRunning())
}

func TestBridgeRequestFailedSurfacesCode(t *testing.T) {
	t.Parallel()
	b := newTestBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := b.SendRequest(ctx, "fail_method", map[string]any{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")

	var reqErr *pikeerr.RequestFailed
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, 42, reqErr.ErrorCode)
}

func TestBridgeValidatorRejectsWrongShape(t *testing.T) {
	t.Parallel()
	b := newTestBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// bad_shape's canned response is {"version":123} — a number where the
	// validator expects a string, so it must be rejected, not passed through.
	_, err := b.SendRequest(ctx, "bad_shape", map[string]any{}, validate.String("version"))
	require.Error(t, err)

	var shapeErr *pikeerr.BridgeResponseError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, "version", shapeErr.Field)
	require.Equal(t, "string", shapeErr.Expected)
	require.Contains(t, shapeErr.Actual, "number")

	_, err = b.GetVersion(ctx) // real method, sanity check validator still passes on good shape
	require.NoError(t, err)
}

func TestBridgeTimeout(t *testing.T) {
	t.Parallel()
	b := newTestBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := b.SendRequest(ctx, "slow_method", map[string]any{}, nil)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "timeout"))
}

func TestBridgeRateLimitDenies(t *testing.T) {
	t.Parallel()
	exe := fakeAnalyzer(t)
	b := New(Options{
		ExecutablePath: "/bin/sh",
		ScriptPath:     exe,
		Timeout:        2 * time.Second,
		RateLimit:      &RateLimitOptions{MaxRequests: 1, WindowSeconds: 3600},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		b.Stop(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := b.SendRequest(ctx, "method_a", map[string]any{"x": 1}, nil)
	require.NoError(t, err)

	_, err = b.SendRequest(ctx, "method_b", map[string]any{"y": 2}, nil)
	require.Error(t, err)
	require.Equal(t, "rate_limit_exceeded", errCode(t, err))
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	type coder interface{ Code() string }
	c, ok := err.(coder)
	require.True(t, ok, "expected a coded error, got %T", err)
	return c.Code()
}

// TestBridgeDedupSharesResult exercises wire.Fingerprint's key-order
// independence claim at the bridge level: three concurrent callers send
// semantically identical params built with different key orders and
// whitespace. If dedup worked only by accident on literal byte equality,
// this would issue three separate requests to slow_method, which the fake
// analyzer's single-threaded read loop processes strictly one at a time
// (2s sleep apiece) — serializing to ~6s, past the 5s per-request timeout
// this test configures. Genuine fingerprint-based dedup collapses all
// three into one dispatch, finishing in ~2s.
func TestBridgeDedupSharesResult(t *testing.T) {
	t.Parallel()
	exe := fakeAnalyzer(t)
	b := New(Options{
		ExecutablePath: "/bin/sh",
		ScriptPath:     exe,
		Timeout:        5 * time.Second,
		KillGrace:      200 * time.Millisecond,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		b.Stop(ctx)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	variants := []json.RawMessage{
		json.RawMessage(`{"shared":true,"uri":"file:///a.pike"}`),
		json.RawMessage(`{"uri": "file:///a.pike",   "shared":true}`),
		json.RawMessage(`{"uri":"file:///a.pike","shared":true}`),
	}

	results := make(chan error, 3)
	start := time.Now()
	for _, params := range variants {
		params := params
		go func() {
			_, err := b.SendRequest(ctx, "slow_method", params, nil)
			results <- err
		}()
	}

	for i := 0; i < 3; i++ {
		err := <-results
		require.NoError(t, err)
	}
	require.Less(t, time.Since(start), 4*time.Second, "expected key-order-independent dedup to collapse all three calls into one dispatch")
}
