package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// FixedWindowLimiter counts hits per key in windows aligned to the epoch.
type FixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewFixedWindowLimiter(client redis.UniversalClient, prefix string) *FixedWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &FixedWindowLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if l.client == nil {
		return Decision{}, errors.New("redis client is nil")
	}
	if limit <= 0 || window <= 0 {
		return Decision{Allowed: true}, nil
	}
	if window < time.Millisecond {
		return Decision{}, fmt.Errorf("rate limit window %s is below 1ms", window)
	}
	if key == "" {
		key = "unknown"
	}

	now := l.now()
	slot := now.UnixMilli() / window.Milliseconds()
	storeKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)
	resetAt := time.UnixMilli((slot + 1) * window.Milliseconds())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, storeKey)
		pipe.PExpire(ctx, storeKey, window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}

	count := int(incr.Val())
	d := Decision{Allowed: count <= limit, Remaining: max(limit-count, 0)}
	if !d.Allowed {
		d.RetryAfter = max(resetAt.Sub(now), time.Millisecond)
	}
	return d, nil
}
