package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/codemesh-labs/routing-core/pkg/clock"
)

// Backend is the polymorphic sliding-window implementation a Limiter
// delegates to: MemoryLimiter or RedisLimiter.
type Backend interface {
	Check(ctx context.Context, key Key) (Result, error)
	Reset(ctx context.Context, key Key) error
}

// cacheEntry is one cached check_rate_limit result.
type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

// Limiter is the check_rate_limit contract of spec.md 4.5, wrapping a
// Backend with a short-lived result cache keyed by the key's textual
// form.
type Limiter struct {
	backend Backend
	cfg     Config
	clock   clock.Clock

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewLimiter wraps backend with a result cache per cfg.CacheTTLSeconds.
func NewLimiter(backend Backend, cfg Config, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Limiter{backend: backend, cfg: cfg, clock: clk, cache: make(map[string]cacheEntry)}
}

// CheckRateLimit implements spec.md 4.5's check_rate_limit, including
// the cache-hit short circuit.
func (l *Limiter) CheckRateLimit(ctx context.Context, key Key) (Result, error) {
	if !l.cfg.Enabled {
		return Result{Allowed: true, Remaining: l.cfg.limit(), Limit: l.cfg.limit()}, nil
	}

	keyStr := key.String()
	now := l.clock.Now()

	l.mu.Lock()
	if entry, ok := l.cache[keyStr]; ok && now.Before(entry.expiresAt) {
		l.mu.Unlock()
		return entry.result, nil
	}
	l.mu.Unlock()

	result, err := l.backend.Check(ctx, key)
	if err != nil {
		return Result{}, err
	}

	ttl := time.Duration(l.cfg.CacheTTLSeconds) * time.Second
	l.mu.Lock()
	l.cache[keyStr] = cacheEntry{result: result, expiresAt: now.Add(ttl)}
	l.mu.Unlock()

	return result, nil
}

// ResetKey clears key's backend state and invalidates its cache entry.
func (l *Limiter) ResetKey(ctx context.Context, key Key) error {
	keyStr := key.String()
	l.mu.Lock()
	delete(l.cache, keyStr)
	l.mu.Unlock()
	return l.backend.Reset(ctx, key)
}
