package ratelimit

import "testing"

func TestNilBucketAlwaysAdmits(t *testing.T) {
	var b *Bucket
	for i := 0; i < 5; i++ {
		if !b.TryAcquire() {
			t.Fatal("nil Bucket must always admit")
		}
	}
	if got := b.Tokens(); got != -1 {
		t.Errorf("nil Bucket.Tokens() = %v, want -1", got)
	}
}

func TestBucketDeniesOnceExhausted(t *testing.T) {
	b := New(1, 0.001) // one token, effectively no refill within the test
	if !b.TryAcquire() {
		t.Fatal("expected first acquire to succeed")
	}
	if b.TryAcquire() {
		t.Fatal("expected second acquire to be denied once the single token is spent")
	}
}

func TestBucketAdmitsUpToCapacity(t *testing.T) {
	b := New(3, 0.001)
	for i := 0; i < 3; i++ {
		if !b.TryAcquire() {
			t.Fatalf("expected acquire %d of 3 to succeed", i+1)
		}
	}
	if b.TryAcquire() {
		t.Fatal("expected 4th acquire to be denied")
	}
}

func TestNewDefaultUsesSpecDefaults(t *testing.T) {
	b := NewDefault()
	for i := 0; i < DefaultMaxRequests; i++ {
		if !b.TryAcquire() {
			t.Fatalf("expected acquire %d of %d to succeed", i+1, DefaultMaxRequests)
		}
	}
	if b.TryAcquire() {
		t.Fatal("expected the bucket to be exhausted after DefaultMaxRequests acquires")
	}
}
