package handler

import (
	"context"
	"net/http"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

// HistoryService defines the behavior needed by HistoryHandler.
type HistoryService interface {
	SessionHistory(ctx context.Context, input usecase.HistoryInput) ([]domain.Session, error)
	ProductHistory(ctx context.Context, input usecase.HistoryInput) (*usecase.ProductHistory, error)
}

// HistoryHandler serves closed sessions and past purchases.
type HistoryHandler struct {
	historyUC HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyUC HistoryService) *HistoryHandler {
	return &HistoryHandler{historyUC: historyUC}
}

// Sessions returns the caller's closed sessions, most recent first.
func (h *HistoryHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	input, ok := h.input(w, r)
	if !ok {
		return
	}

	sessions, err := h.historyUC.SessionHistory(r.Context(), input)
	if err != nil {
		respondError(w, r, "failed to get session history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionsFromDomain(sessions))
}

// Products returns what the caller bought, sorted by date, price or popularity.
func (h *HistoryHandler) Products(w http.ResponseWriter, r *http.Request) {
	input, ok := h.input(w, r)
	if !ok {
		return
	}

	history, err := h.historyUC.ProductHistory(r.Context(), input)
	if err != nil {
		respondError(w, r, "failed to get product history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProductHistoryFromDomain(history.Sort, history.Purchases, history.Popular))
}

func (h *HistoryHandler) input(w http.ResponseWriter, r *http.Request) (usecase.HistoryInput, bool) {
	profile, ok := caller(w, r)
	if !ok {
		return usecase.HistoryInput{}, false
	}

	begin, err := parseTimeQuery(r, "begin")
	if err != nil {
		respondError(w, r, "invalid request", err)
		return usecase.HistoryInput{}, false
	}
	end, err := parseTimeQuery(r, "end")
	if err != nil {
		respondError(w, r, "invalid request", err)
		return usecase.HistoryInput{}, false
	}

	return usecase.HistoryInput{
		Caller: profile.Email,
		Email:  emailParam(r, "email"),
		Begin:  begin,
		End:    end,
		Limit:  parseIntQuery(r, "limit", usecase.DefaultHistoryLimit),
		Sort:   r.URL.Query().Get("sort"),
	}, true
}
