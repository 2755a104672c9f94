package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

// Metrics records request counts, durations and in-flight requests.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPInFlight.Inc()
			defer m.HTTPInFlight.Dec()

			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern prefers the matched chi pattern and falls back to a
// normalized path for requests chi did not route.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// collections are path segments followed by an identifier.
var collections = map[string]string{
	"sessions":     "{email}",
	"participants": "{participant}",
	"products":     "{productID}",
	"debts":        "{debtID}",
	"devices":      "{email}",
	"history":      "{email}",
}

// normalizePath replaces identifiers with placeholders to bound label
// cardinality: /api/v1/sessions/a@b.c/products/01H -> /api/v1/sessions/{email}/products/{productID}
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		placeholder, ok := collections[segments[i-1]]
		if ok && segments[i] != "" {
			segments[i] = placeholder
		}
	}
	return strings.Join(segments, "/")
}
