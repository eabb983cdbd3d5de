package intro

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCounter keeps one counter key per (user, UTC day). Keys expire on their
// own, so there is no cleanup job.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(cfg RedisConfig) *RedisCounter {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) CountToday(ctx context.Context, userID string, now time.Time) (int, error) {
	count, err := c.rdb.Get(ctx, dayKey(userID, now)).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}

		return 0, fmt.Errorf("get intro counter: %w", err)
	}

	return count, nil
}

func (c *RedisCounter) Add(ctx context.Context, userID string, n int, now time.Time) error {
	if n <= 0 {
		return nil
	}

	key := dayKey(userID, now)
	if err := c.rdb.IncrBy(ctx, key, int64(n)).Err(); err != nil {
		return fmt.Errorf("increment intro counter: %w", err)
	}

	// 48h covers the whole day in every timezone a client may report from.
	if err := c.rdb.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
		return fmt.Errorf("expire intro counter: %w", err)
	}

	return nil
}

func dayKey(userID string, now time.Time) string {
	return fmt.Sprintf("review:intro:%s:%s", userID, now.UTC().Format("2006-01-02"))
}
