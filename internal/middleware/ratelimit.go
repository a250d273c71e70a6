package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when Redis is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed rejects the request with 503 if Redis is unavailable.
	FailClosed
)

// Limiter enforces fixed-window rate limits backed by Redis INCR+EXPIRE.
// Limiting is disabled in the test and development environments so local
// workflows are not throttled.
type Limiter struct {
	rdb    *redis.Client
	env    string
	logger *slog.Logger
}

// NewLimiter returns a limiter for the given environment.
func NewLimiter(rdb *redis.Client, env string, logger *slog.Logger) *Limiter {
	return &Limiter{rdb: rdb, env: env, logger: logger}
}

// Check reports whether one more event is allowed for the resource/id pair.
func (l *Limiter) Check(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, error) {
	switch l.env {
	case "test", "development":
		return true, nil
	}
	if l.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)
	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		RedisErrors.Inc()
		return false, err
	}
	if cnt == 1 {
		l.rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// Handler returns a Fiber middleware enforcing limit requests per window,
// keyed by authenticated user id when present, otherwise by remote IP.
// Defaults to FailOpen.
func (l *Limiter) Handler(limit int, window time.Duration, name string) fiber.Handler {
	return l.HandlerWithPolicy(limit, window, FailOpen, name)
}

// HandlerWithPolicy is Handler with an explicit failure policy.
func (l *Limiter) HandlerWithPolicy(limit int, window time.Duration, policy FailPolicy, name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := fmt.Sprintf("ip:%s", c.IP())
		if uid, ok := c.Locals("userID").(string); ok && uid != "" {
			id = "user:" + uid
		}
		resource := name
		if resource == "" {
			resource = c.Path()
		}

		allowed, err := l.Check(c.UserContext(), resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				l.logger.Warn("rate limit unavailable, failing closed", "resource", resource, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}
		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
