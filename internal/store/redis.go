package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"eve-counter/internal/window"
)

// Redis implements window.Store on Redis or Valkey, relying on native key
// expiry for the window.
type Redis struct {
	client *redis.Client
}

// Ensure Redis implements the window.Store interface
var _ window.Store = (*Redis)(nil)

func NewRedis(addr, password string, db int) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: client}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) SetWithTTL(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	return r.client.Keys(ctx, prefix+"*").Result()
}

func (r *Redis) MGet(ctx context.Context, keys []string) ([]*int64, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raw, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*int64, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			// expired after KEYS
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value at %s: %w", keys[i], err)
		}
		out[i] = &n
	}
	return out, nil
}

// Flush clears the selected database only.
func (r *Redis) Flush(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
