// timeout_test.go — tests for PikeCallTimeout and BatchTimeout.
package bridge

import (
	"testing"
	"time"
)

func TestPikeCallTimeout(t *testing.T) {
	t.Parallel()

	def := 30 * time.Second

	tests := []struct {
		name     string
		method   string
		expected time.Duration
	}{
		{"get_version gets fast timeout", "get_version", FastTimeout},
		{"tokenize gets fast timeout", "tokenize", FastTimeout},
		{"invalidate_cache gets fast timeout", "invalidate_cache", FastTimeout},
		{"analyze gets slow timeout", "analyze", SlowTimeout},
		{"analyze_uninitialized gets slow timeout", "analyze_uninitialized", SlowTimeout},
		{"get_waterfall_symbols gets slow timeout", "get_waterfall_symbols", SlowTimeout},
		{"parse falls back to default", "parse", def},
		{"unknown method falls back to default", "frobnicate", def},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := PikeCallTimeout(tc.method, def)
			if got != tc.expected {
				t.Errorf("PikeCallTimeout(%s) = %v, want %v", tc.method, got, tc.expected)
			}
		})
	}
}

func TestBatchTimeout(t *testing.T) {
	t.Parallel()

	got := BatchTimeout(0)
	if got != BatchBase {
		t.Errorf("BatchTimeout(0) = %v, want %v", got, BatchBase)
	}

	got = BatchTimeout(10)
	want := BatchBase + 10*BatchPerOp
	if got != want {
		t.Errorf("BatchTimeout(10) = %v, want %v", got, want)
	}
}

func TestExtractFileCount(t *testing.T) {
	t.Parallel()

	n := extractFileCount([]byte(`{"files":["a.pike","b.pike","c.pike"]}`))
	if n != 3 {
		t.Errorf("extractFileCount = %d, want 3", n)
	}

	n = extractFileCount([]byte(`{bad json}`))
	if n != 0 {
		t.Errorf("extractFileCount on malformed params = %d, want 0", n)
	}

	n = extractFileCount([]byte(`{}`))
	if n != 0 {
		t.Errorf("extractFileCount on missing files = %d, want 0", n)
	}
}
