package slot

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartsync/pkg/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SlotKey(name string) string
}

// RedisStore persists slots as plain Redis strings under the cartsync namespace.
type RedisStore struct {
	client redisKV
}

func NewRedisStore(client redisKV) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.client.SlotKey(key))
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get slot %q: %w", key, err)
	}
	return []byte(val), nil
}

func (r *RedisStore) Save(ctx context.Context, key string, payload []byte) error {
	if err := r.client.Set(ctx, r.client.SlotKey(key), string(payload), 0); err != nil {
		return fmt.Errorf("redis set slot %q: %w", key, err)
	}
	return nil
}
