package handler

import (
	"context"
	"net/http"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

// ReceiptService defines the behavior needed by ReceiptHandler.
type ReceiptService interface {
	ProcessReceipt(ctx context.Context, input usecase.ProcessReceiptInput) (*domain.Session, []*domain.Debt, error)
}

// ReceiptHandler settles whole receipts in one call.
type ReceiptHandler struct {
	receiptUC ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(receiptUC ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptUC: receiptUC}
}

// Process records a receipt as a closed session and returns its debts.
func (h *ReceiptHandler) Process(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.ReceiptRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	session, debts, err := h.receiptUC.ProcessReceipt(r.Context(), req.ToUseCaseInput(profile.Email))
	if err != nil {
		respondError(w, r, "failed to process receipt", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SettlementResponse{
		Session: dto.SessionFromDomain(session),
		Debts:   dto.DebtsFromDomain(debts),
	})
}
