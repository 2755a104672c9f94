package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/auth"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// ProfileContextKey is the context key for the authenticated caller
	ProfileContextKey ContextKey = "profile"
)

// AuthMiddleware requires a valid bearer token and stores the caller's
// profile in the request context.
func AuthMiddleware(verifier auth.TokenVerifier, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				observeAuthFailure(m, "missing")
				writeJSONError(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			profile, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrExpiredToken) {
					observeAuthFailure(m, "expired")
					writeJSONError(w, http.StatusUnauthorized, "token has expired")
					return
				}
				observeAuthFailure(m, "invalid")
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), profile)))
		})
	}
}

// WithProfile returns a context carrying the caller's profile.
func WithProfile(ctx context.Context, profile domain.Profile) context.Context {
	return context.WithValue(ctx, ProfileContextKey, profile)
}

// ProfileFromContext extracts the authenticated caller from context
func ProfileFromContext(ctx context.Context) (domain.Profile, bool) {
	profile, ok := ctx.Value(ProfileContextKey).(domain.Profile)
	return profile, ok
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func observeAuthFailure(m *metrics.Metrics, reason string) {
	if m != nil {
		m.AuthFailures.WithLabelValues(reason).Inc()
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
