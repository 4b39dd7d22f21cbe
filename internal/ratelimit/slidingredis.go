package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one sliding-window check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter throttles checkout creation with a per-key sliding window kept in
// a Redis sorted set: each attempt is a member scored by its nanosecond
// timestamp, members older than the window are evicted on every check.
//
// A nil Client disables throttling; checkout availability is worth more than
// burst protection when Redis is not deployed.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Take registers one attempt under key and decides whether it fits the
// window. The attempt is counted even when the answer is no, so hammering a
// saturated key never wins.
func (l Limiter) Take(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	resetAt := time.Now().Add(window)
	if l.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, ResetAt: resetAt}, nil
	}

	now := time.Now()
	zkey := l.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, zkey, "-inf", cutoff)
	pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, zkey)
	pipe.Expire(ctx, zkey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: resetAt}, err
	}

	taken := int(count.Val())
	remaining := max - taken
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   taken <= max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
