package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimit allows limit requests per window per caller and path. The
// caller is the authenticated user when present, else the client address.
// Requests pass through when Redis is unavailable.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil || limit <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := clientIP(r)
			if identity, ok := IdentityFrom(r.Context()); ok {
				caller = identity.UserID
			}

			key := fmt.Sprintf("rate_limit:%s:%s", r.URL.Path, caller)
			ctx := r.Context()

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.Printf("[RATELIMIT] Check failed for %s, allowing: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}

			if count == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					// a counter without a TTL would lock the caller out for good
					log.Printf("[RATELIMIT] Failed to set window on %s: %v", key, err)
					if err := rdb.Del(ctx, key).Err(); err != nil {
						log.Printf("[RATELIMIT] Failed to drop counter %s: %v", key, err)
					}
				}
			}

			if count > int64(limit) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
