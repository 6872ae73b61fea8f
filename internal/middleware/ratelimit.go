package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/visited-regions-backend/pkg/clientip"
)

// RateLimitKeyPrefix is the Redis key prefix for rate limiting
const RateLimitKeyPrefix = "ratelimit:"

// WriteLimit configures a fixed-window limit shared by every instance through Redis.
type WriteLimit struct {
	Name        string // part of the Redis key, e.g. "visits"
	MaxRequests int
	Window      time.Duration
}

// RedisRateLimit counts requests per signed-in user (or per IP for anonymous
// callers) in Redis. It fails open when Redis is unavailable.
func RedisRateLimit(client *redis.Client, limit WriteLimit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil {
				next.ServeHTTP(w, r)
				return
			}

			subject := "ip:" + clientip.RealClientIP(r)
			if sess := SessionFromContext(r.Context()); sess != nil {
				subject = "user:" + sess.UserID.String()
			}
			key := RateLimitKeyPrefix + limit.Name + ":" + subject

			pipe := client.TxPipeline()
			incr := pipe.Incr(r.Context(), key)
			pipe.ExpireNX(r.Context(), key, limit.Window)
			if _, err := pipe.Exec(r.Context()); err != nil {
				next.ServeHTTP(w, r)
				return
			}

			count := int(incr.Val())
			remaining := limit.MaxRequests - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if count > limit.MaxRequests {
				w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
