package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/codemesh-labs/routing-core/pkg/corerrors"
)

// RedisLimiter is the networked sorted-set backend of spec.md 4.5,
// grounded in the teacher's go.mod requiring go-redis/redis/v8 (for
// its own caching layer) and alicebob/miniredis/v2 (test double for
// exactly this kind of backend).
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
}

// NewRedisLimiter creates a RedisLimiter over an existing client.
func NewRedisLimiter(client *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, cfg: cfg}
}

func redisKey(key Key) string {
	return fmt.Sprintf("ratelimit:%s", key.String())
}

// Check implements spec.md 4.5's networked-backend algorithm: remove
// expired members, count, conditionally add, refresh TTL — all within
// cfg.OperationTimeout.
func (r *RedisLimiter) Check(ctx context.Context, key Key) (Result, error) {
	if !r.cfg.Enabled {
		return Result{Allowed: true, Remaining: r.cfg.limit(), Limit: r.cfg.limit()}, nil
	}

	timeout := r.cfg.OperationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	zkey := redisKey(key)
	now := time.Now()
	nowScore := float64(now.UnixNano()) / 1e9
	windowStart := nowScore - float64(r.cfg.WindowSeconds)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, zkey, "-inf", fmt.Sprintf("%f", windowStart))
	countCmd := pipe.ZCard(ctx, zkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, corerrors.Internal(fmt.Sprintf("rate limiter redis timeout or failure: %v", err))
	}

	limit := r.cfg.limit()
	currentCount := int(countCmd.Val())
	allowed := currentCount < limit

	if allowed {
		addPipe := r.client.TxPipeline()
		addPipe.ZAdd(ctx, zkey, &redis.Z{Score: nowScore, Member: fmt.Sprintf("%d", now.UnixNano())})
		addPipe.Expire(ctx, zkey, 2*time.Duration(r.cfg.WindowSeconds)*time.Second)
		if _, err := addPipe.Exec(ctx); err != nil {
			return Result{}, corerrors.Internal(fmt.Sprintf("rate limiter redis timeout or failure: %v", err))
		}
		currentCount++
	}

	remaining := limit - currentCount
	if remaining < 0 {
		remaining = 0
	}

	resetAt := r.oldestEntryExpiry(ctx, zkey, now)
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

// oldestEntryExpiry finds the end of the oldest entry's window for the
// Reset-time contract in spec.md 4.5: "the end of the oldest entry's
// window". Falls back to now+window on any error or empty set.
func (r *RedisLimiter) oldestEntryExpiry(ctx context.Context, zkey string, now time.Time) time.Time {
	fallback := now.Add(time.Duration(r.cfg.WindowSeconds) * time.Second)
	oldest, err := r.client.ZRangeWithScores(ctx, zkey, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return fallback
	}
	oldestSecs := int64(oldest[0].Score)
	return time.Unix(oldestSecs, 0).Add(time.Duration(r.cfg.WindowSeconds) * time.Second)
}

// Reset removes key's sorted set entirely.
func (r *RedisLimiter) Reset(ctx context.Context, key Key) error {
	timeout := r.cfg.OperationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return corerrors.Internal(fmt.Sprintf("rate limiter redis timeout or failure: %v", err))
	}
	return nil
}
