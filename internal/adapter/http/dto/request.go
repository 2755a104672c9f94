package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

// CreateSessionRequest represents a request to open a session.
type CreateSessionRequest struct {
	CreationDate *time.Time `json:"creation_date,omitempty"`
}

// AddParticipantRequest represents a request to add a user to a session.
type AddParticipantRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PaymentRequest records what a participant paid.
type PaymentRequest struct {
	Payment decimal.Decimal `json:"payment" validate:"nonnegative_decimal"`
}

// CloseSessionRequest represents a request to end a session.
type CloseSessionRequest struct {
	EndDate *time.Time `json:"end_date,omitempty"`
}

// ProductRef identifies a catalogue product by id, barcode or name.
type ProductRef struct {
	ID      string `json:"id,omitempty"`
	Barcode string `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Name    string `json:"name,omitempty" validate:"omitempty,max=255"`
}

// AddProductRequest represents a request to add a product instance.
type AddProductRequest struct {
	Product      ProductRef      `json:"product"`
	Quantity     int             `json:"quantity,omitempty" validate:"omitempty,min=1,max=10000"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"nonnegative_decimal"`
	Participants []string        `json:"participants,omitempty" validate:"omitempty,dive,email"`
}

// ToUseCaseInput converts to use case input.
func (r *AddProductRequest) ToUseCaseInput(caller, sessionEmail string) usecase.AddProductInput {
	return usecase.AddProductInput{
		Caller:       caller,
		SessionEmail: sessionEmail,
		ProductID:    r.Product.ID,
		Barcode:      r.Product.Barcode,
		Name:         r.Product.Name,
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice,
		Participants: normalizeEmails(r.Participants),
	}
}

// PatchProductRequest represents optional changes to a product instance.
type PatchProductRequest struct {
	Quantity     *int             `json:"quantity,omitempty" validate:"omitempty,min=1,max=10000"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,nonnegative_decimal"`
	Participants []string         `json:"participants,omitempty" validate:"omitempty,dive,email"`
}

// ToUseCaseInput converts to use case input.
func (r *PatchProductRequest) ToUseCaseInput(caller, sessionEmail, productID string) usecase.PatchProductInput {
	return usecase.PatchProductInput{
		Caller:            caller,
		SessionEmail:      sessionEmail,
		ProductInstanceID: productID,
		Quantity:          r.Quantity,
		UnitPrice:         r.UnitPrice,
		Participants:      normalizeEmails(r.Participants),
	}
}

// ProductParticipantRequest tags a participant on a product instance.
type ProductParticipantRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PatchDebtRequest represents optional changes to a debt.
type PatchDebtRequest struct {
	Deadline *time.Time `json:"deadline,omitempty"`
	Payed    *time.Time `json:"payed,omitempty"`
}

// RegisterDeviceRequest binds a push token to a user.
type RegisterDeviceRequest struct {
	RegistrationToken string `json:"registration_token" validate:"required,max=4096"`
}

// ReceiptRequest represents a whole receipt to settle.
type ReceiptRequest struct {
	Participants []ReceiptParticipantRequest `json:"participants" validate:"required,min=1,dive"`
	Products     []ReceiptProductRequest     `json:"products" validate:"dive"`
}

// ReceiptParticipantRequest is a payer on a receipt.
type ReceiptParticipantRequest struct {
	Email string          `json:"email" validate:"required,email"`
	Payed decimal.Decimal `json:"payed" validate:"nonnegative_decimal"`
}

// ReceiptProductRequest is one product line of a receipt.
type ReceiptProductRequest struct {
	Product      ProductRef      `json:"product"`
	Quantity     int             `json:"quantity,omitempty" validate:"omitempty,min=1,max=10000"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"nonnegative_decimal"`
	Participants []string        `json:"participants" validate:"required,min=1,dive,email"`
}

// ToUseCaseInput converts to use case input.
func (r *ReceiptRequest) ToUseCaseInput(caller string) usecase.ProcessReceiptInput {
	participants := make([]usecase.ReceiptParticipant, len(r.Participants))
	for i, p := range r.Participants {
		participants[i] = usecase.ReceiptParticipant{
			Email: domain.NormalizeEmail(p.Email),
			Payed: p.Payed,
		}
	}

	products := make([]usecase.ReceiptLine, len(r.Products))
	for i, p := range r.Products {
		products[i] = usecase.ReceiptLine{
			ProductID:    p.Product.ID,
			Barcode:      p.Product.Barcode,
			Name:         p.Product.Name,
			Quantity:     p.Quantity,
			UnitPrice:    p.UnitPrice,
			Participants: normalizeEmails(p.Participants),
		}
	}

	return usecase.ProcessReceiptInput{
		Caller:       caller,
		Participants: participants,
		Products:     products,
	}
}

func normalizeEmails(emails []string) []string {
	if emails == nil {
		return nil
	}
	out := make([]string, len(emails))
	for i, e := range emails {
		out[i] = domain.NormalizeEmail(e)
	}
	return out
}
