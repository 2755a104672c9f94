package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

func TestRateLimiterBlocksPerIP(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	rl := NewRateLimiter(1, 1, m)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("1.2.3.4:1000"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send("1.2.3.4:2000"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request from same IP to be throttled, got %d", code)
	}
	if code := send("5.6.7.8:1000"); code != http.StatusOK {
		t.Fatalf("expected other IP to pass, got %d", code)
	}
	if got := testutil.ToFloat64(m.RateLimitHits); got != 1 {
		t.Fatalf("expected one rate limit hit, got %v", got)
	}
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "9.9.9.9, 10.0.0.1"}, "1.1.1.1:1", "9.9.9.9"},
		{"real ip", map[string]string{"X-Real-IP": "8.8.8.8"}, "1.1.1.1:1", "8.8.8.8"},
		{"remote addr", nil, "1.1.1.1:1234", "1.1.1.1"},
		{"remote without port", nil, "1.1.1.1", "1.1.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getIP(req); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCleanupLimitersDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	rl.getLimiter("1.1.1.1")
	rl.getLimiter("2.2.2.2")

	rl.mu.Lock()
	rl.limiters["1.1.1.1"].lastSeen = time.Now().Add(-2 * time.Hour)
	rl.mu.Unlock()

	rl.CleanupLimiters(time.Hour)

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if _, ok := rl.limiters["1.1.1.1"]; ok {
		t.Fatal("expected idle limiter to be removed")
	}
	if _, ok := rl.limiters["2.2.2.2"]; !ok {
		t.Fatal("expected active limiter to be kept")
	}
}
