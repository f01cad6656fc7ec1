package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/chatcore/internal/dto/response"
	apperrors "github.com/go-demo/chatcore/internal/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// InMemoryRateLimiter implements rate limiting using in-memory token bucket.
// Guards WebSocket sends, which never pass through the HTTP middleware.
type InMemoryRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewInMemoryRateLimiter creates a new in-memory rate limiter
func NewInMemoryRateLimiter(r rate.Limit, burst int) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// NewPerMinuteRateLimiter allows perMinute events per key, all of which may
// arrive in a burst.
func NewPerMinuteRateLimiter(perMinute int) *InMemoryRateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return NewInMemoryRateLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// Allow checks if request is allowed
func (l *InMemoryRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow(), nil
}

// RedisRateLimiter implements rate limiting using Redis
type RedisRateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
}

// NewRedisRateLimiter creates a new Redis rate limiter
func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		requests: requests,
		window:   window,
	}
}

// Allow checks if request is allowed using Redis sliding window
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	pipe := l.client.Pipeline()

	now := time.Now().UnixNano()
	windowStart := now - l.window.Nanoseconds()

	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: now,
	})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}

	return count <= int64(l.requests), nil
}

// RateLimitConfig represents rate limit configuration
type RateLimitConfig struct {
	Requests int           // Number of requests allowed
	Window   time.Duration // Time window
	KeyFunc  func(*gin.Context) string
}

// userOrIPKey keys authenticated callers by user id and everyone else by IP.
func userOrIPKey(prefix string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		if userID := GetUserID(c); userID != 0 {
			return prefix + ":user:" + strconv.FormatInt(userID, 10)
		}
		return prefix + ":ip:" + c.ClientIP()
	}
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Requests: 100,
		Window:   time.Minute,
		KeyFunc:  userOrIPKey("ratelimit"),
	}
}

// RateLimit creates a rate limiting middleware
func RateLimit(limiter RateLimiter) gin.HandlerFunc {
	return RateLimitWithConfig(limiter, DefaultRateLimitConfig())
}

// RateLimitWithConfig creates a rate limiting middleware with custom configuration
func RateLimitWithConfig(limiter RateLimiter, config *RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// fail open
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			response.Error(c, apperrors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}

// APIRateLimit creates a rate limit for general API endpoints
func APIRateLimit(client *redis.Client) gin.HandlerFunc {
	limiter := NewRedisRateLimiter(client, 100, time.Minute)
	return RateLimit(limiter)
}

// MessageRateLimit creates a rate limit for message sending
func MessageRateLimit(client *redis.Client, perMinute int) gin.HandlerFunc {
	limiter := NewRedisRateLimiter(client, perMinute, time.Minute)
	config := &RateLimitConfig{
		Requests: perMinute,
		Window:   time.Minute,
		KeyFunc:  userOrIPKey("ratelimit:message"),
	}
	return RateLimitWithConfig(limiter, config)
}
