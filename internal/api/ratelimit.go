package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/booklog/booklog-server/internal/http/response"
	"github.com/booklog/booklog-server/internal/ratelimit"
)

// RateLimiter limits requests per client address.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a limiter allowing ratePerInterval requests per
// interval with the given burst.
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	rps := float64(ratePerInterval) / interval.Seconds()
	return ratelimit.New(rps, burst)
}

// RateLimitMiddleware rate limits requests whose path starts with prefix,
// keyed by client address. Returns 429 Too Many Requests when the limit is exceeded.
func RateLimitMiddleware(limiter *RateLimiter, prefix string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}

			key := clientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded", "ip", key, "path", r.URL.Path)
				response.TooManyRequests(w, "Too many requests. Please try again later.", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
