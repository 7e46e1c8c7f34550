package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"challenge_arena/internal/logger"
	"challenge_arena/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter - счетчик с фиксированным окном в redis по ip клиента.
// Без redis или при его недоступности пропускает запросы.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client, limitPerMinute int) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limitPerMinute,
		window: time.Minute,
		prefix: "arena:rl:",
		now:    time.Now,
	}
}

// NewRedisClient разбирает REDIS_URL, пустой url - nil без ошибки
func NewRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Allow увеличивает счетчик ключа в текущем окне
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	windowStart := l.now().UTC().Truncate(l.window).Unix()
	redisKey := l.prefix + key + ":" + strconv.FormatInt(windowStart, 10)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}
	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, nil
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.client == nil || l.limit <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
		allowed, remaining, err := l.Allow(ctx, c.ClientIP())
		cancel()
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			metrics.RateLimited.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
