package locks

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry backs the lock set with SetNX so multiple processes agree
// on lock ownership. Keys carry a safety TTL in case a process dies without
// releasing; the TTL is generous enough to outlast any sane job.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisRegistry{client: client, prefix: "lock:", ttl: ttl}
}

func (r *RedisRegistry) Acquire(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	ok, err := r.client.SetNX(ctx, r.prefix+key, "1", r.ttl).Result()
	if err != nil {
		// Fail closed: without Redis we cannot prove exclusivity.
		return false
	}
	return ok
}

func (r *RedisRegistry) Release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = r.client.Del(ctx, r.prefix+key).Err()
}
