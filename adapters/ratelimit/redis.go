package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/artpar/crudgate/ports"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "crudgate:rl:"

// Redis is a fixed-window limiter backed by INCR with a window TTL, so every
// instance sharing the Redis server sees the same counts.
type Redis struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
}

// NewRedis creates a Redis limiter admitting limit events per window.
func NewRedis(client redis.Cmdable, limit int, window time.Duration) *Redis {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Redis{client: client, limit: int64(limit), window: window, prefix: keyPrefix}
}

// Key returns the Redis key used for key.
func (l *Redis) Key(key string) string {
	return l.prefix + key
}

// Allow admits one event for key. The window expiry is set by the request
// that finds the key without a TTL, so servers older than Redis 7 work too.
func (l *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.Key(key)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}

	retry := ttl.Val()
	if retry <= 0 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit %s: set window: %w", key, err)
		}
		retry = l.window
	}

	if count.Val() > l.limit {
		return false, retry, nil
	}
	return true, 0, nil
}

var _ ports.RateLimiter = (*Redis)(nil)

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient parses the URL, applies overrides and pings the server.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	o, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opts.PoolSize > 0 {
		o.PoolSize = opts.PoolSize
	}
	if opts.DialTimeout > 0 {
		o.DialTimeout = opts.DialTimeout
	}
	if opts.ReadTimeout > 0 {
		o.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		o.WriteTimeout = opts.WriteTimeout
	}

	client := redis.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
