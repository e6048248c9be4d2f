package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codemesh-labs/routing-core/pkg/clock"
)

// shardCount mirrors the teacher's sharding instinct visible in its
// map-based manager types; 16 shards spreads contention without the
// overhead of one mutex per key.
const shardCount = 16

// event is a single sliding-window admission, per spec.md 3's
// SlidingWindow "(timestamp_secs, count)" pairs. Count is always 1
// here since each check_rate_limit call admits at most one request.
type event struct {
	tsSecs int64
}

// window is one key's sliding-window state.
type window struct {
	events []event
}

func (w *window) prune(nowSecs, windowSeconds int64) {
	cutoff := nowSecs - windowSeconds
	i := 0
	for ; i < len(w.events); i++ {
		if w.events[i].tsSecs > cutoff {
			break
		}
	}
	if i > 0 {
		w.events = w.events[i:]
	}
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*window
}

// MemoryLimiter is the in-process sharded-map backend of spec.md 4.5.
// Each key hashes to one of shardCount shards, each guarded by its own
// mutex; an LRU cache tracks touch order across all shards so the
// total key count can be bounded without a hand-rolled eviction list.
type MemoryLimiter struct {
	cfg    Config
	clock  clock.Clock
	shards [shardCount]*shard

	lruMu sync.Mutex
	lru   *lru.Cache[string, struct{}]
}

// NewMemoryLimiter creates a MemoryLimiter. A nil clk defaults to the
// real wall clock.
func NewMemoryLimiter(cfg Config, clk clock.Clock) *MemoryLimiter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	m := &MemoryLimiter{cfg: cfg, clock: clk}
	for i := range m.shards {
		m.shards[i] = &shard{windows: make(map[string]*window)}
	}
	cache, _ := lru.NewWithEvict[string, struct{}](cfg.MaxEntries, m.onEvict)
	m.lru = cache
	return m
}

// onEvict drops the evicted key's window. Keys leave the LRU in
// least-recently-touched order, so keys that have gone quiet (whose
// windows have pruned empty) go before active ones; an evicted key
// that is still populated loses its window too.
func (m *MemoryLimiter) onEvict(key string, _ struct{}) {
	s := m.shards[shardIndex(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
}

func shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

// Check implements spec.md 4.5's in-process-backend algorithm.
func (m *MemoryLimiter) Check(_ context.Context, key Key) (Result, error) {
	if !m.cfg.Enabled {
		return Result{Allowed: true, Remaining: m.cfg.limit(), Limit: m.cfg.limit()}, nil
	}

	keyStr := key.String()
	s := m.shards[shardIndex(keyStr)]
	now := m.clock.Now()
	nowSecs := now.Unix()

	s.mu.Lock()
	w, ok := s.windows[keyStr]
	if !ok {
		w = &window{}
		s.windows[keyStr] = w
	}
	w.prune(nowSecs, m.cfg.WindowSeconds)

	currentCount := len(w.events)
	limit := m.cfg.limit()
	allowed := currentCount+1 <= limit
	if allowed {
		w.events = append(w.events, event{tsSecs: nowSecs})
	}
	remaining := limit - len(w.events)
	if remaining < 0 {
		remaining = 0
	}

	var resetAt time.Time
	if len(w.events) > 0 {
		resetAt = time.Unix(w.events[0].tsSecs+m.cfg.WindowSeconds, 0)
	} else {
		resetAt = now.Add(time.Duration(m.cfg.WindowSeconds) * time.Second)
	}
	currentCount = len(w.events)
	s.mu.Unlock()

	m.touch(keyStr)

	resetIn := int64(resetAt.Sub(now).Seconds())
	if resetIn < 0 {
		resetIn = 0
	}

	return Result{
		Allowed:        allowed,
		Remaining:      remaining,
		Limit:          limit,
		CurrentCount:   currentCount,
		ResetAt:        resetAt,
		ResetInSeconds: resetIn,
	}, nil
}

// Reset clears key's window entirely.
func (m *MemoryLimiter) Reset(_ context.Context, key Key) error {
	keyStr := key.String()
	s := m.shards[shardIndex(keyStr)]
	s.mu.Lock()
	delete(s.windows, keyStr)
	s.mu.Unlock()

	m.lruMu.Lock()
	m.lru.Remove(keyStr)
	m.lruMu.Unlock()
	return nil
}

// touch records keyStr as most-recently-used; if this pushes the cache
// past its bound, onEvict drops the oldest-touched key's window.
func (m *MemoryLimiter) touch(keyStr string) {
	m.lruMu.Lock()
	defer m.lruMu.Unlock()
	m.lru.Add(keyStr, struct{}{})
}
