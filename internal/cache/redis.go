// Package cache owns the shared Redis connection and the key layout used by the
// session store, the rate limiter and the toast channels.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"friendfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		span, ctx := observability.StartRedisSpan(ctx, cmd.Name())
		defer span.End()
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
			span.SetError(err)
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient builds an instrumented client from a redis:// URL or a host:port address.
func NewClient(addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}
	c := redis.NewClient(opts)
	c.AddHook(metricsHook{})
	return c, nil
}

// InitRedis connects the shared client. It returns nil when addr is empty,
// invalid or unreachable, and the service keeps running on in-memory fallbacks.
func InitRedis(addr string) *redis.Client {
	log := observability.GlobalLogger.With(slog.String("component", "redis"))
	if strings.TrimSpace(addr) == "" {
		log.Info("Redis not configured, using in-memory stores")
		return nil
	}

	c, err := NewClient(addr)
	if err != nil {
		log.Warn("Invalid REDIS_URL, continuing without Redis", slog.String("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, continuing without Redis", slog.String("error", err.Error()))
		_ = c.Close()
		return nil
	}

	log.Info("Redis connected successfully")
	return c
}
