package middleware

import (
	"net/http"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// CORS answers preflight requests and tags responses for allowed origins.
// Entries may be exact origins or glob patterns such as
// "https://*.example.com".
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	exact := make(map[string]struct{}, len(allowedOrigins))
	var patterns []string
	for _, origin := range allowedOrigins {
		if strings.ContainsAny(origin, "*?[{") && doublestar.ValidatePattern(origin) {
			patterns = append(patterns, origin)
			continue
		}
		exact[origin] = struct{}{}
	}

	allowed := func(origin string) bool {
		if _, ok := exact[origin]; ok {
			return true
		}
		for _, p := range patterns {
			if ok, err := doublestar.Match(p, origin); err == nil && ok {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
