package security

import (
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit returns a middleware enforcing a fixed window of max requests
// per window per client on the wrapped route. Redis being down fails
// open: purchases must not depend on the limiter.
func (r *RateLimiter) Limit(name string, max int64, window time.Duration) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		key := fmt.Sprintf("ratelimit:%s:%s", name, r.identify(e))
		ctx := e.Request.Context()

		count, err := r.redis.Incr(ctx, key).Result()
		if err == nil {
			if count == 1 {
				r.redis.Expire(ctx, key, window)
			}
			if count > max {
				return e.JSON(429, map[string]string{
					"error": "Rate limit exceeded. Please try again later.",
				})
			}
		}

		return e.Next()
	}
}

// identify keys the window by user for authenticated requests and by IP
// otherwise.
func (r *RateLimiter) identify(e *core.RequestEvent) string {
	if e.Auth != nil {
		return fmt.Sprintf("user:%s", e.Auth.Id)
	}
	return e.RealIP()
}
