package notify

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisDedupe is a DedupeStore backed by Redis SET NX with a TTL, giving the
// duplicate-send guard atomic check-and-set semantics across instances.
type RedisDedupe struct {
	R   *redis.Client
	TTL time.Duration
}

// MarkIfFirst implements DedupeStore.
func (d RedisDedupe) MarkIfFirst(ctx context.Context, key string) (bool, error) {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	value := strconv.FormatInt(time.Now().Unix(), 10)
	return d.R.SetNX(ctx, "dedupe:"+key, value, ttl).Result()
}
