package handler

import (
	"context"
	"net/http"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

// SessionService defines the behavior needed by SessionHandler.
type SessionService interface {
	CreateSession(ctx context.Context, input usecase.CreateSessionInput) (*domain.Session, error)
	GetCurrentSession(ctx context.Context, caller, sessionEmail string) (*domain.Session, error)
	AddParticipant(ctx context.Context, input usecase.AddParticipantInput) (*domain.Session, error)
	RemoveParticipant(ctx context.Context, input usecase.RemoveParticipantInput) (*domain.Session, error)
	SetPayment(ctx context.Context, input usecase.SetPaymentInput) (*domain.Session, error)
	CloseSession(ctx context.Context, input usecase.CloseSessionInput) (*domain.Session, []*domain.Debt, error)
}

// SessionHandler handles session-related HTTP requests.
type SessionHandler struct {
	sessionUC SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionUC SessionService) *SessionHandler {
	return &SessionHandler{sessionUC: sessionUC}
}

// Get returns the caller's open session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	session, err := h.sessionUC.GetCurrentSession(r.Context(), profile.Email, emailParam(r, "email"))
	if err != nil {
		respondError(w, r, "failed to get session", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// Create opens a session for the caller.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.CreateSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	session, err := h.sessionUC.CreateSession(r.Context(), usecase.CreateSessionInput{
		Caller:       profile,
		SessionEmail: emailParam(r, "email"),
		CreationDate: req.CreationDate,
	})
	if err != nil {
		respondError(w, r, "failed to create session", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SessionFromDomain(session))
}

// Close ends the caller's session and returns the debts it created.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.CloseSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	session, debts, err := h.sessionUC.CloseSession(r.Context(), usecase.CloseSessionInput{
		Caller:       profile.Email,
		SessionEmail: emailParam(r, "email"),
		EndDate:      req.EndDate,
	})
	if err != nil {
		respondError(w, r, "failed to close session", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementResponse{
		Session: dto.SessionFromDomain(session),
		Debts:   dto.DebtsFromDomain(debts),
	})
}

// AddParticipant adds a user to the caller's session.
func (h *SessionHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.AddParticipantRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	session, err := h.sessionUC.AddParticipant(r.Context(), usecase.AddParticipantInput{
		Caller:       profile,
		SessionEmail: emailParam(r, "email"),
		Email:        domain.NormalizeEmail(req.Email),
	})
	if err != nil {
		respondError(w, r, "failed to add participant", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// RemoveParticipant removes a user from the caller's session. It answers
// 204 when the session was discarded because nobody is left.
func (h *SessionHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	session, err := h.sessionUC.RemoveParticipant(r.Context(), usecase.RemoveParticipantInput{
		Caller:       profile.Email,
		SessionEmail: emailParam(r, "email"),
		Email:        emailParam(r, "participant"),
	})
	if err != nil {
		respondError(w, r, "failed to remove participant", err)
		return
	}

	if len(session.Participants) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// SetPayment records what a participant paid.
func (h *SessionHandler) SetPayment(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.PaymentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	session, err := h.sessionUC.SetPayment(r.Context(), usecase.SetPaymentInput{
		Caller:       profile.Email,
		SessionEmail: emailParam(r, "email"),
		Email:        emailParam(r, "participant"),
		Payment:      req.Payment,
	})
	if err != nil {
		respondError(w, r, "failed to set payment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}
