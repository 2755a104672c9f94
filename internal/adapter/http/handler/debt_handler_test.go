package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

type debtServiceStub struct {
	listFn  func(ctx context.Context, caller string, begin, end *time.Time) (*usecase.DebtList, error)
	getFn   func(ctx context.Context, caller, id string) (*domain.Debt, error)
	patchFn func(ctx context.Context, input usecase.PatchDebtInput) (*domain.Debt, error)
}

func (s *debtServiceStub) ListDebts(ctx context.Context, caller string, begin, end *time.Time) (*usecase.DebtList, error) {
	return s.listFn(ctx, caller, begin, end)
}

func (s *debtServiceStub) GetDebt(ctx context.Context, caller, id string) (*domain.Debt, error) {
	return s.getFn(ctx, caller, id)
}

func (s *debtServiceStub) PatchDebt(ctx context.Context, input usecase.PatchDebtInput) (*domain.Debt, error) {
	return s.patchFn(ctx, input)
}

func testDebt() *domain.Debt {
	return &domain.Debt{
		ID:        "debt-1",
		SessionID: "sess-1",
		OwedBy:    "bob@example.com",
		OwedTo:    "alice@example.com",
		Amount:    decimal.RequireFromString("4.20"),
		CreatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestDebtHandler_List(t *testing.T) {
	var gotBegin, gotEnd *time.Time
	handler := NewDebtHandler(&debtServiceStub{
		listFn: func(ctx context.Context, caller string, begin, end *time.Time) (*usecase.DebtList, error) {
			gotBegin, gotEnd = begin, end
			return &usecase.DebtList{OwedBy: []*domain.Debt{}, OwedTo: []*domain.Debt{testDebt()}}, nil
		},
	})

	req := authedRequest(http.MethodGet, "/debts?begin=2024-03-01", nil, "alice@example.com", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotBegin == nil || gotEnd != nil {
		t.Fatalf("expected only begin to be set, got %v %v", gotBegin, gotEnd)
	}

	var resp dto.DebtListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OwedBy == nil || len(resp.OwedBy) != 0 || len(resp.OwedTo) != 1 {
		t.Fatalf("unexpected debt list %+v", resp)
	}
	if !strings.Contains(rec.Body.String(), `"owed_by":[]`) {
		t.Fatalf("expected empty list to be encoded as [], got %s", rec.Body.String())
	}
}

func TestDebtHandler_List_BadDate(t *testing.T) {
	handler := NewDebtHandler(&debtServiceStub{
		listFn: func(ctx context.Context, caller string, begin, end *time.Time) (*usecase.DebtList, error) {
			t.Fatal("ListDebts should not be called with a bad date")
			return nil, nil
		},
	})

	req := authedRequest(http.MethodGet, "/debts?end=soon", nil, "alice@example.com", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDebtHandler_Get_Forbidden(t *testing.T) {
	handler := NewDebtHandler(&debtServiceStub{
		getFn: func(ctx context.Context, caller, id string) (*domain.Debt, error) {
			if caller == "carol@example.com" {
				return nil, domain.ErrForbidden
			}
			return testDebt(), nil
		},
	})

	req := authedRequest(http.MethodGet, "/", nil, "carol@example.com", map[string]string{"debtID": "debt-1"})
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	req = authedRequest(http.MethodGet, "/", nil, "bob@example.com", map[string]string{"debtID": "debt-1"})
	rec = httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestDebtHandler_Patch(t *testing.T) {
	var captured usecase.PatchDebtInput
	handler := NewDebtHandler(&debtServiceStub{
		patchFn: func(ctx context.Context, input usecase.PatchDebtInput) (*domain.Debt, error) {
			captured = input
			d := testDebt()
			d.Payed = input.Payed
			return d, nil
		},
	})

	req := authedRequest(http.MethodPatch, "/", strings.NewReader(`{"payed":"2024-03-05T12:00:00Z"}`), "alice@example.com",
		map[string]string{"debtID": "debt-1"})
	rec := httptest.NewRecorder()

	handler.Patch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.DebtID != "debt-1" || captured.Payed == nil || captured.Deadline != nil {
		t.Fatalf("unexpected input %+v", captured)
	}

	var resp dto.DebtResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Payed == nil {
		t.Fatalf("expected payed date in response, got %+v", resp)
	}
}
