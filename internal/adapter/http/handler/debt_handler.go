package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

// DebtService defines the behavior needed by DebtHandler.
type DebtService interface {
	ListDebts(ctx context.Context, caller string, begin, end *time.Time) (*usecase.DebtList, error)
	GetDebt(ctx context.Context, caller, id string) (*domain.Debt, error)
	PatchDebt(ctx context.Context, input usecase.PatchDebtInput) (*domain.Debt, error)
}

// DebtHandler handles debt-related HTTP requests.
type DebtHandler struct {
	debtUC DebtService
}

// NewDebtHandler creates a new DebtHandler.
func NewDebtHandler(debtUC DebtService) *DebtHandler {
	return &DebtHandler{debtUC: debtUC}
}

// List returns the caller's unpaid debts split by direction.
func (h *DebtHandler) List(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	begin, err := parseTimeQuery(r, "begin")
	if err != nil {
		respondError(w, r, "invalid request", err)
		return
	}
	end, err := parseTimeQuery(r, "end")
	if err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	list, err := h.debtUC.ListDebts(r.Context(), profile.Email, begin, end)
	if err != nil {
		respondError(w, r, "failed to list debts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DebtListResponse{
		OwedBy: dto.DebtsFromDomain(list.OwedBy),
		OwedTo: dto.DebtsFromDomain(list.OwedTo),
	})
}

// Get returns one debt.
func (h *DebtHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	debt, err := h.debtUC.GetDebt(r.Context(), profile.Email, chi.URLParam(r, "debtID"))
	if err != nil {
		respondError(w, r, "failed to get debt", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DebtFromDomain(debt))
}

// Patch sets the deadline or payment date of a debt.
func (h *DebtHandler) Patch(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.PatchDebtRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	debt, err := h.debtUC.PatchDebt(r.Context(), usecase.PatchDebtInput{
		Caller:   profile.Email,
		DebtID:   chi.URLParam(r, "debtID"),
		Deadline: req.Deadline,
		Payed:    req.Payed,
	})
	if err != nil {
		respondError(w, r, "failed to update debt", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DebtFromDomain(debt))
}
