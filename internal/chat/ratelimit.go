package chat

import (
	"context"
	"fmt"
	"time"

	"loan-assistant/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RedisLimiter is a fixed-window counter. Redis errors let the call through.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	logger logger.Logger
}

func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration, log logger.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		logger: log,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true
	}

	k := fmt.Sprintf("rl:llm:%s", key)
	res := l.client.Incr(ctx, k)
	if res.Err() != nil {
		l.logger.Warn("rate limit incr failed", map[string]interface{}{"error": res.Err()})
		return true
	}
	if res.Val() == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			l.logger.Warn("rate limit expire failed", map[string]interface{}{"error": err})
		}
	}
	return res.Val() <= l.limit
}
