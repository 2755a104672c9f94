package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		statusCode int
		expected   string
	}{
		{
			name:       "uses chi route pattern",
			method:     http.MethodGet,
			path:       "/api/v1/sessions/ann@example.com",
			statusCode: http.StatusTeapot,
			expected:   "/api/v1/sessions/{email}",
		},
		{
			name:       "normalizes unmatched path",
			method:     http.MethodPost,
			path:       "/api/v1/debts/01HX/unknown",
			statusCode: http.StatusNotFound,
			expected:   "/api/v1/debts/{debtID}/unknown",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())

			r := chi.NewRouter()
			r.Use(Metrics(m))
			r.Get("/api/v1/sessions/{email}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != tc.statusCode {
				t.Fatalf("expected status %d, got %d", tc.statusCode, rr.Code)
			}

			if got := testutil.ToFloat64(m.HTTPInFlight); got != 0 {
				t.Fatalf("expected in-flight gauge to return to 0, got %v", got)
			}

			counter := m.HTTPRequests.WithLabelValues(tc.method, tc.expected, strconv.Itoa(tc.statusCode))
			if got := testutil.ToFloat64(counter); got != 1 {
				t.Fatalf("expected counter to be 1, got %v", got)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "session path",
			input:    "/api/v1/sessions/ann@example.com",
			expected: "/api/v1/sessions/{email}",
		},
		{
			name:     "nested product participant",
			input:    "/api/v1/sessions/ann@example.com/products/01HX/participants/bob@example.com",
			expected: "/api/v1/sessions/{email}/products/{productID}/participants/{participant}",
		},
		{
			name:     "collection without id",
			input:    "/api/v1/products",
			expected: "/api/v1/products",
		},
		{
			name:     "non-matching path",
			input:    "/health",
			expected: "/health",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizePath(tc.input); got != tc.expected {
				t.Fatalf("normalizePath(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}
