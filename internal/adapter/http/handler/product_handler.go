package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

// ProductService defines the behavior needed by ProductHandler.
type ProductService interface {
	AddProduct(ctx context.Context, input usecase.AddProductInput) (*domain.Session, error)
	PatchProduct(ctx context.Context, input usecase.PatchProductInput) (*domain.Session, error)
	RemoveProduct(ctx context.Context, input usecase.RemoveProductInput) (*domain.Session, error)
	AddProductParticipant(ctx context.Context, input usecase.ProductParticipantInput) (*domain.Session, error)
	RemoveProductParticipant(ctx context.Context, input usecase.ProductParticipantInput) (*domain.Session, error)
	SearchProduct(ctx context.Context, name string) (*domain.ProductDetails, error)
	GetProduct(ctx context.Context, id string) (*domain.ProductDetails, error)
}

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	productUC ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productUC ProductService) *ProductHandler {
	return &ProductHandler{productUC: productUC}
}

// Add adds a product instance to the caller's session.
func (h *ProductHandler) Add(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.AddProductRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	session, err := h.productUC.AddProduct(r.Context(), req.ToUseCaseInput(profile.Email, emailParam(r, "email")))
	if err != nil {
		respondError(w, r, "failed to add product", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SessionFromDomain(session))
}

// Patch edits a product instance.
func (h *ProductHandler) Patch(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.PatchProductRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	input := req.ToUseCaseInput(profile.Email, emailParam(r, "email"), chi.URLParam(r, "productID"))
	session, err := h.productUC.PatchProduct(r.Context(), input)
	if err != nil {
		respondError(w, r, "failed to update product", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// Remove deletes a product instance.
func (h *ProductHandler) Remove(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	session, err := h.productUC.RemoveProduct(r.Context(), usecase.RemoveProductInput{
		Caller:            profile.Email,
		SessionEmail:      emailParam(r, "email"),
		ProductInstanceID: chi.URLParam(r, "productID"),
	})
	if err != nil {
		respondError(w, r, "failed to remove product", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// AddParticipant tags a participant on a product instance.
func (h *ProductHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.ProductParticipantRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	session, err := h.productUC.AddProductParticipant(r.Context(), usecase.ProductParticipantInput{
		Caller:            profile.Email,
		SessionEmail:      emailParam(r, "email"),
		ProductInstanceID: chi.URLParam(r, "productID"),
		Email:             domain.NormalizeEmail(req.Email),
	})
	if err != nil {
		respondError(w, r, "failed to add product participant", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// RemoveParticipant untags a participant from a product instance.
func (h *ProductHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	session, err := h.productUC.RemoveProductParticipant(r.Context(), usecase.ProductParticipantInput{
		Caller:            profile.Email,
		SessionEmail:      emailParam(r, "email"),
		ProductInstanceID: chi.URLParam(r, "productID"),
		Email:             emailParam(r, "participant"),
	})
	if err != nil {
		respondError(w, r, "failed to remove product participant", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// Search returns the latest purchase of a product by name, or 204.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	details, err := h.productUC.SearchProduct(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		respondError(w, r, "failed to search products", err)
		return
	}
	if details == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProductDetailsFromDomain(details))
}

// Get returns a catalogue product with its last price and nutrition data.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing product ID", "")
		return
	}

	details, err := h.productUC.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, "failed to get product", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProductDetailsFromDomain(details))
}
