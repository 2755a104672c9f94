package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/cartsplit/internal/domain"
)

func TestLoggingMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggingMiddleware(zerolog.New(&buf))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/debts/d1", nil)
	req = req.WithContext(WithProfile(req.Context(), domain.Profile{Email: "ann@example.com"}))
	rr := httptest.NewRecorder()

	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})).ServeHTTP(rr, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected warn level for 404, got %v", entry["level"])
	}
	if entry["status"] != float64(http.StatusNotFound) || entry["path"] != "/api/v1/debts/d1" {
		t.Fatalf("unexpected log entry %v", entry)
	}
	if entry["caller"] != "ann@example.com" {
		t.Fatalf("expected caller in log, got %v", entry["caller"])
	}
}

func TestRecoveryReturns500(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}
