package handler

import (
	"context"
	"net/http"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/domain"
)

// UserService defines the behavior needed by UserHandler.
type UserService interface {
	SearchUsers(ctx context.Context, query string) ([]*domain.User, error)
	GetUser(ctx context.Context, email string) (*domain.User, error)
}

// UserHandler looks up users known to the identity provider.
type UserHandler struct {
	userUC UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userUC UserService) *UserHandler {
	return &UserHandler{userUC: userUC}
}

// Search returns users whose email or name matches ?q=.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.userUC.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, "failed to search users", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UsersFromDomain(users))
}

// Me returns the caller's profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, dto.ProfileFromDomain(profile))
}

// Get returns one user by email.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userUC.GetUser(r.Context(), emailParam(r, "email"))
	if err != nil {
		respondError(w, r, "failed to get user", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProfileFromDomain(user.Profile()))
}
