// Package ratelimit provides per-key token buckets, used to throttle
// authentication attempts per client address.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused key keeps its bucket.
const DefaultIdleTTL = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter gives every key an independent token bucket. Buckets
// idle for longer than the TTL are evicted by a background sweep.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter allowing rps requests per second with the given burst.
func New(rps float64, burst int) *KeyedRateLimiter {
	return NewWithTTL(rps, burst, DefaultIdleTTL)
}

// NewWithTTL is New with a custom idle TTL.
func NewWithTTL(rps float64, burst int, idleTTL time.Duration) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go krl.sweepLoop()
	return krl
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.limiter(key).Allow()
}

// Wait blocks until a request for key may proceed or ctx ends.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.limiter(key).Wait(ctx)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}

func (krl *KeyedRateLimiter) limiter(key string) *rate.Limiter {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	e, ok := krl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = e
	}
	e.lastSeen = krl.now()
	return e.limiter
}

// Sweep evicts buckets idle for longer than the TTL.
func (krl *KeyedRateLimiter) Sweep() {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	cutoff := krl.now().Add(-krl.idleTTL)
	for key, e := range krl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(krl.limiters, key)
		}
	}
}

// Stop ends the background sweep.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() { close(krl.done) })
}

// Shutdown implements do.Shutdowner.
func (krl *KeyedRateLimiter) Shutdown() error {
	krl.Stop()
	return nil
}

func (krl *KeyedRateLimiter) sweepLoop() {
	ticker := time.NewTicker(krl.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-krl.done:
			return
		case <-ticker.C:
			krl.Sweep()
		}
	}
}
