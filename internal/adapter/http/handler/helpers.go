package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/adapter/http/middleware"
	"github.com/iho/cartsplit/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// respondError maps err to a status. Unexpected errors are logged and their
// detail is not returned to the client.
func respondError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := mapDomainError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(message)
		writeError(w, status, "internal server error", "")
		return
	}
	writeError(w, status, message, err.Error())
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrDebtNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSessionExists),
		errors.Is(err, domain.ErrParticipantExists),
		errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidValue),
		errors.Is(err, domain.ErrPaymentInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes and validates a request body. An empty body is
// accepted when optional is set and leaves req untouched.
func decodeJSON(r *http.Request, req any, optional bool) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Join(domain.ErrInvalidValue, errors.New("invalid request body: "+err.Error()))
	}
	return dto.Validate(req)
}

// caller returns the authenticated caller. Routes are mounted behind the
// auth middleware, so a missing profile is a wiring bug.
func caller(w http.ResponseWriter, r *http.Request) (domain.Profile, bool) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return domain.Profile{}, false
	}
	return profile, true
}

// emailParam reads and normalizes an email path parameter.
func emailParam(r *http.Request, name string) string {
	return domain.NormalizeEmail(chi.URLParam(r, name))
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseTimeQuery parses an optional RFC 3339 timestamp or YYYY-MM-DD date.
func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, val); err == nil {
			return &t, nil
		}
	}
	return nil, errors.Join(domain.ErrInvalidValue, errors.New("invalid "+key+": expected RFC 3339 or YYYY-MM-DD"))
}
