package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter counts hits per key in fixed windows that start at the first hit.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow records one hit on key and reports whether it is within limit for
// the current window. A non-positive limit disables limiting.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	n, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			// a counter without TTL would block the chat for good
			_ = r.client.Del(ctx, key)
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return n <= int64(limit), nil
}

// ChatKey namespaces a limiter key by scope (message, callback) and chat.
func ChatKey(chatID int64, scope string) string {
	return fmt.Sprintf("tln:rl:%s:%d", scope, chatID)
}
