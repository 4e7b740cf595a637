package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests per key in one-second windows backed by
// Redis, so the limit holds across multiple server instances.
type RedisLimiter struct {
	client    *redis.Client
	perSecond int
}

func NewRedisLimiter(redisURL string, perSecond int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if perSecond <= 0 {
		perSecond = DefaultPerSecond
	}
	return &RedisLimiter{client: redis.NewClient(opts), perSecond: perSecond}, nil
}

func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := time.Now().Unix()
	redisKey := "passgate:ratelimit:" + key + ":" + strconv.FormatInt(window, 10)

	// INCR+EXPIRE in one round trip; the 2s TTL lets the previous window
	// expire on its own.
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return incr.Val() <= int64(l.perSecond), nil
}
