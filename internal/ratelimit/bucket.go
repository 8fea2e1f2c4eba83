// Package ratelimit implements the bridge's token-bucket admission control
// (spec §4.2, C2).
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxRequests and DefaultWindowSeconds give the default refill rate
// of 10 tokens/s over a 100-token bucket (spec §4.2 "Defaults").
const (
	DefaultMaxRequests  = 100
	DefaultWindowSeconds = 10
)

// Bucket is a token-bucket limiter. A nil *Bucket is valid and always
// admits — this is how the bridge models "rate limiting disabled unless
// configured" (spec §4.2 "Defaults") without a separate enabled flag.
type Bucket struct {
	limiter *rate.Limiter
}

// New creates a Bucket with maxTokens capacity refilling at refillRate
// tokens/second. Both golang.org/x/time/rate's Limiter and spec.md's
// bucket model share the same lazy-refill-on-acquire semantics, so the
// stdlib-adjacent x/time/rate does the bookkeeping; Bucket only adapts its
// API to the admit/deny vocabulary spec.md uses (TryAcquire, not Allow).
func New(maxTokens int, refillRate float64) *Bucket {
	return &Bucket{limiter: rate.NewLimiter(rate.Limit(refillRate), maxTokens)}
}

// NewDefault builds a Bucket using spec.md's documented defaults:
// maxTokens=100, refillRate=10/s (100 tokens over a 10s window).
func NewDefault() *Bucket {
	return New(DefaultMaxRequests, float64(DefaultMaxRequests)/float64(DefaultWindowSeconds))
}

// TryAcquire admits or denies atomically, refilling lazily first (spec
// §4.2 "Operation"). A nil Bucket always admits.
func (b *Bucket) TryAcquire() bool {
	if b == nil {
		return true
	}
	return b.limiter.Allow()
}

// Tokens reports the current token count, for diagnostics/cache-stats
// surfaces. A nil Bucket reports -1 (disabled).
func (b *Bucket) Tokens() float64 {
	if b == nil {
		return -1
	}
	return b.limiter.TokensAt(time.Now())
}
