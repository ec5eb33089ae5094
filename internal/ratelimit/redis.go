package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "annotator:rl:"

// Redis — лимитер с фиксированным окном на INCR + PEXPIRE.
type Redis struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

// NewRedis создаёт лимитер поверх готового клиента.
// Если prefix пустой — используется "annotator:rl:".
func NewRedis(rdb *redis.Client, limit int, window time.Duration, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Redis{rdb: rdb, limit: int64(limit), window: window, prefix: prefix}
}

// Connect создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	const op = "ratelimit.redis.Connect"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rdb, nil
}

func (l *Redis) key(k string) string { return l.prefix + k }

// Allow увеличивает счётчик окна. Срок жизни ставится только новому ключу,
// поэтому повторные попытки не продлевают окно.
func (l *Redis) Allow(ctx context.Context, key string) (Result, error) {
	const op = "ratelimit.redis.Allow"

	k := l.key(key)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)

	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Allowed: true}, fmt.Errorf("%s: %w", op, err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		if err := l.rdb.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{Allowed: true}, fmt.Errorf("%s: %w", op, err)
		}
		ttl = l.window
	}

	if incr.Val() > l.limit {
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}

	return Result{Allowed: true}, nil
}
