package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ゲートウェイコールバックの多重実行を防ぐロック。
// DB側の条件付き更新が本命で、これは同時到着の短絡用。
// TTLはUnlockし損ねた場合（プロセス落ち）の保険。
type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *RedisIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, "idemp:"+scope+":"+key, "1", s.ttl).Result()
}

func (s *RedisIdempotencyStore) Unlock(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, "idemp:"+scope+":"+key).Err()
}
