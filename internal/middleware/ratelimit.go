// Package middleware holds the Fiber middleware shared by every route: logging,
// tracing, metrics, rate limiting and session resolution.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitTimeout = 2 * time.Second

// ErrNoLimiter is returned when a limit is checked without a Redis client.
var ErrNoLimiter = errors.New("rate limiter has no redis client")

// Limit is one named request budget, counted per signed-in member or, for
// anonymous requests, per client IP.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration

	// FailClosed answers 503 while Redis cannot be reached. The default lets
	// requests through.
	FailClosed bool

	// Rejected answers a request over budget. Nil means a JSON 429.
	Rejected fiber.Handler
}

func (l Limit) key(subject string) string {
	return fmt.Sprintf("rl:%s:%s", l.Name, subject)
}

// Allow counts one hit for subject. It reports whether the hit is within
// budget and how long until the window resets.
func Allow(ctx context.Context, rdb *redis.Client, l Limit, subject string) (bool, time.Duration, error) {
	if rdb == nil {
		return false, 0, ErrNoLimiter
	}
	key := l.key(subject)

	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	// A key without a TTL would never reset, so any hit that finds one sets it.
	reset := pttl.Val()
	if reset <= 0 {
		if err := rdb.PExpire(ctx, key, l.Window).Err(); err != nil {
			return false, 0, err
		}
		reset = l.Window
	}
	return incr.Val() <= int64(l.Max), reset, nil
}

func rateSubject(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(string); ok && uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.IP()
}

// RateLimit enforces l on every request that reaches it.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), rateLimitTimeout)
		defer cancel()

		allowed, reset, err := Allow(ctx, rdb, l, rateSubject(c))
		if err != nil {
			if !l.FailClosed {
				return c.Next()
			}
			Logger.WarnContext(ctx, "rate limit unavailable, failing closed",
				slog.String("limit", l.Name),
				slog.String("path", c.Path()),
				slog.String("error", err.Error()))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Service temporarily unavailable",
			})
		}
		if allowed {
			return c.Next()
		}

		RateLimited.WithLabelValues(l.Name).Inc()
		secs := int((reset + time.Second - 1) / time.Second)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
		if l.Rejected != nil {
			return l.Rejected(c)
		}
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Too many requests, try again later",
		})
	}
}
