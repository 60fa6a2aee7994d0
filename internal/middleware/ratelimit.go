package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"friendfeed/internal/cache"
	"friendfeed/internal/models"
	"friendfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens when Redis cannot be asked.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoRedis = errors.New("redis client is nil")

// ErrRateLimited is answered once a session exceeds its action budget.
var ErrRateLimited = &models.AppError{Code: models.CodeRateLimited, Message: "Too many requests, please try again later."}

// rateLimitDisabled reports whether APP_ENV turns limiting off.
func rateLimitDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test", "stress":
		return true
	}
	return false
}

// CheckRateLimit counts one hit for subject within scope.
// It returns false once more than limit hits happened inside window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, scope, subject string, limit int, window time.Duration) (bool, error) {
	if rateLimitDisabled() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoRedis
	}

	key := cache.RateLimitKey(scope, subject)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// RateLimit limits requests per browser session, falling back to the client IP.
// It fails open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, scope string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, scope)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if sid, ok := c.Locals(LocalSessionID).(string); ok && sid != "" {
			subject = "session:" + sid
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, scope, subject, limit, window)
		if err != nil {
			observability.GlobalLogger.WarnContext(c.UserContext(), "rate limit unavailable",
				slog.String("scope", scope), slog.String("error", err.Error()))
			if policy == FailClosed {
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					&models.AppError{Code: models.CodeBackendUnavailable, Message: "rate limit unavailable"})
			}
			return c.Next()
		}
		if !allowed {
			return models.RespondWithError(c, fiber.StatusTooManyRequests, ErrRateLimited)
		}
		return c.Next()
	}
}
