// Package server implements a token bucket rate limiter for per-connection
// throttling that protects the hub from abuse.
package server

import (
	"sync"
	"time"
)

// tokenBucket admits at most burst frames at once and refills burst tokens
// per refill interval.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	perSec   float64
	last     time.Time
	now      func() time.Time
}

func newTokenBucket(cfg RateLimitConfig, now func() time.Time) *tokenBucket {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if now == nil {
		now = time.Now
	}

	return &tokenBucket{
		tokens:   float64(cfg.Burst),
		capacity: float64(cfg.Burst),
		perSec:   float64(cfg.Burst) / cfg.RefillInterval.Seconds(),
		last:     now(),
		now:      now,
	}
}

// allow consumes one token if available.
func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.now()
	if elapsed := current.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.perSec)
	}
	b.last = current

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
