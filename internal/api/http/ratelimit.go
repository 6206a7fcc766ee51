package http

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/enrollment-lookup/pkg/util"
)

const rateLimitKeyPrefix = "enrollment-lookup:ratelimit:"

// WindowCounter counts hits for a key within a fixed window.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimiter caps requests per client IP in a fixed window.
type RateLimiter struct {
	counter WindowCounter
	limit   int64
	window  time.Duration
	logger  *zap.Logger
}

// NewRateLimiter builds a limiter allowing limit requests per window.
func NewRateLimiter(counter WindowCounter, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{counter: counter, limit: int64(limit), window: window, logger: logger}
}

// Handle rejects requests over the limit. Counter failures let the request through.
func (l *RateLimiter) Handle(c *fiber.Ctx) error {
	key := rateLimitKeyPrefix + c.IP()
	count, ttl, err := l.counter.IncrWindow(c.UserContext(), key, l.window)
	if err != nil {
		l.logger.Warn("rate limiter unavailable; allowing request", zap.Error(err))
		return c.Next()
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	c.Set("X-RateLimit-Limit", strconv.FormatInt(l.limit, 10))
	c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

	if count > l.limit {
		retryAfter := int64(math.Ceil(ttl.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
		return apperrors.NewTooManyRequests("rate limit exceeded")
	}
	return c.Next()
}
