package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/iho/cartsplit/internal/domain"
)

// TokenVerifier authenticates websocket clients, which cannot send headers
// from browsers.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (domain.Profile, error)
}

// SocketServer upgrades a request into a realtime connection for email.
type SocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, email string) error
}

// RealtimeHandler connects clients to the change notification hub.
type RealtimeHandler struct {
	verifier TokenVerifier
	hub      SocketServer
}

// NewRealtimeHandler creates a new RealtimeHandler.
func NewRealtimeHandler(verifier TokenVerifier, hub SocketServer) *RealtimeHandler {
	return &RealtimeHandler{verifier: verifier, hub: hub}
}

// Connect authenticates ?token= and upgrades the connection.
func (h *RealtimeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing token")
		return
	}

	profile, err := h.verifier.VerifyToken(r.Context(), token)
	if err != nil {
		respondError(w, r, "unauthenticated", err)
		return
	}

	// The upgrader has already answered the client on failure.
	if err := h.hub.ServeWS(w, r, profile.Email); err != nil {
		log.Warn().Err(err).Str("email", profile.Email).Msg("websocket upgrade failed")
	}
}
