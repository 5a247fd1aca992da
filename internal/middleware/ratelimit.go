package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Admitter decides whether a request from identifier may proceed.
type Admitter interface {
	IsAllowed(ctx context.Context, identifier string) (bool, int)
	Limit() int
	Window() time.Duration
}

// RateLimit admits requests per authenticated user, or per client IP for
// anonymous callers. It must run after Authenticate.
func RateLimit(limiter Admitter, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := UserIDFromContext(r.Context())
			if identifier == "" {
				identifier = clientIPForRateLimit(r)
			}

			allowed, remaining := limiter.IsAllowed(r.Context(), identifier)
			limit := strconv.Itoa(limiter.Limit())
			window := int(limiter.Window() / time.Second)
			if window < 1 {
				window = 1
			}

			if !allowed {
				logger.Warn().
					Str("identifier", identifier).
					Str("country", CountryFromContext(r.Context())).
					Str("path", r.URL.Path).
					Msg("ratelimit: request denied")
				h := w.Header()
				h.Set("X-RateLimit-Limit", limit)
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Unix()+int64(window), 10))
				h.Set("Retry-After", strconv.Itoa(window))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
					fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", window))
				return
			}

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPForRateLimit(r *http.Request) string {
	if ip := ClientIP(r); ip != "" {
		return ip
	}
	return "unknown"
}
