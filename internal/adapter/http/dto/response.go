package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cartsplit/internal/domain"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// PingResponse is returned by the root endpoint.
type PingResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ProfileResponse represents a user's display info.
type ProfileResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// ProfileFromDomain converts a profile. The display name falls back to one
// derived from the email.
func ProfileFromDomain(p domain.Profile) ProfileResponse {
	return ProfileResponse{
		Email:       p.Email,
		DisplayName: p.Name(),
		PhotoURL:    p.PhotoURL,
	}
}

// UsersFromDomain converts directory users.
func UsersFromDomain(users []*domain.User) []ProfileResponse {
	result := make([]ProfileResponse, len(users))
	for i, u := range users {
		result[i] = ProfileFromDomain(u.Profile())
	}
	return result
}

// ParticipantResponse represents a session participant.
type ParticipantResponse struct {
	ProfileResponse
	AmountPaid decimal.Decimal `json:"amount_paid"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
}

// ProductResponse represents a catalogue product.
type ProductResponse struct {
	ID      string  `json:"id"`
	Barcode *string `json:"barcode,omitempty"`
	Name    string  `json:"name"`
}

// ProductFromDomain converts a catalogue product.
func ProductFromDomain(p domain.Product) ProductResponse {
	return ProductResponse{ID: p.ID, Barcode: p.Barcode, Name: p.Name}
}

// ProductInstanceResponse represents a priced line of a session.
type ProductInstanceResponse struct {
	ID           string          `json:"id"`
	Product      ProductResponse `json:"product"`
	Participants []string        `json:"participants"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// ProductInstanceFromDomain converts a product instance.
func ProductInstanceFromDomain(p domain.ProductInstance) ProductInstanceResponse {
	participants := p.Participants
	if participants == nil {
		participants = []string{}
	}
	return ProductInstanceResponse{
		ID:           p.ID,
		Product:      ProductFromDomain(p.Product),
		Participants: participants,
		Quantity:     p.Quantity,
		UnitPrice:    p.UnitPrice,
		TotalPrice:   p.TotalPrice(),
	}
}

// SessionResponse represents a session in API responses.
type SessionResponse struct {
	ID           string                    `json:"id"`
	Participants []ParticipantResponse     `json:"participants"`
	Products     []ProductInstanceResponse `json:"products"`
	CreationDate time.Time                 `json:"creation_date"`
	EndDate      *time.Time                `json:"end_date,omitempty"`
	TotalCost    decimal.Decimal           `json:"total_cost"`
	TotalPayed   decimal.Decimal           `json:"total_payed"`
}

// SessionFromDomain converts a session.
func SessionFromDomain(s *domain.Session) *SessionResponse {
	participants := make([]ParticipantResponse, len(s.Participants))
	for i, p := range s.Participants {
		profile := p.Profile
		if profile.Email == "" {
			profile.Email = p.Email
		}
		participants[i] = ParticipantResponse{
			ProfileResponse: ProfileFromDomain(profile),
			AmountPaid:      p.AmountPaid,
			AmountOwed:      p.AmountOwed,
		}
	}

	products := make([]ProductInstanceResponse, len(s.Products))
	for i, p := range s.Products {
		products[i] = ProductInstanceFromDomain(p)
	}

	return &SessionResponse{
		ID:           s.ID,
		Participants: participants,
		Products:     products,
		CreationDate: s.CreationDate,
		EndDate:      s.EndDate,
		TotalCost:    s.TotalCost(),
		TotalPayed:   s.TotalPaid(),
	}
}

// SessionsFromDomain converts sessions.
func SessionsFromDomain(sessions []domain.Session) []*SessionResponse {
	result := make([]*SessionResponse, len(sessions))
	for i := range sessions {
		result[i] = SessionFromDomain(&sessions[i])
	}
	return result
}

// DebtResponse represents a debt in API responses.
type DebtResponse struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	OwedBy    string          `json:"owed_by"`
	OwedTo    string          `json:"owed_to"`
	Amount    decimal.Decimal `json:"amount"`
	Deadline  *time.Time      `json:"deadline,omitempty"`
	Payed     *time.Time      `json:"payed,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DebtFromDomain converts a debt.
func DebtFromDomain(d *domain.Debt) *DebtResponse {
	return &DebtResponse{
		ID:        d.ID,
		SessionID: d.SessionID,
		OwedBy:    d.OwedBy,
		OwedTo:    d.OwedTo,
		Amount:    d.Amount,
		Deadline:  d.Deadline,
		Payed:     d.Payed,
		CreatedAt: d.CreatedAt,
	}
}

// DebtsFromDomain converts debts.
func DebtsFromDomain(debts []*domain.Debt) []*DebtResponse {
	result := make([]*DebtResponse, len(debts))
	for i, d := range debts {
		result[i] = DebtFromDomain(d)
	}
	return result
}

// DebtListResponse splits a user's unpaid debts by direction.
type DebtListResponse struct {
	OwedBy []*DebtResponse `json:"owed_by"`
	OwedTo []*DebtResponse `json:"owed_to"`
}

// SettlementResponse is returned when a session closes or a receipt is processed.
type SettlementResponse struct {
	Session *SessionResponse `json:"session"`
	Debts   []*DebtResponse  `json:"debts"`
}

// ProductDetailsResponse represents a catalogue product with its last price.
type ProductDetailsResponse struct {
	Product       ProductResponse   `json:"product"`
	LastUnitPrice decimal.Decimal   `json:"last_unit_price"`
	LastQuantity  int               `json:"last_quantity"`
	LastSeen      *time.Time        `json:"last_seen,omitempty"`
	Nutrition     *domain.Nutrition `json:"nutrition,omitempty"`
}

// ProductDetailsFromDomain converts product details.
func ProductDetailsFromDomain(d *domain.ProductDetails) *ProductDetailsResponse {
	return &ProductDetailsResponse{
		Product:       ProductFromDomain(d.Product),
		LastUnitPrice: d.LastUnitPrice,
		LastQuantity:  d.LastQuantity,
		LastSeen:      d.LastSeen,
		Nutrition:     d.Nutrition,
	}
}

// DeviceResponse represents a registered device.
type DeviceResponse struct {
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PurchaseResponse is a product instance bought in a closed session.
type PurchaseResponse struct {
	SessionID string                  `json:"session_id"`
	EndDate   time.Time               `json:"end_date"`
	Instance  ProductInstanceResponse `json:"product_instance"`
}

// PopularProductResponse counts how often a product was bought.
type PopularProductResponse struct {
	Product       ProductResponse `json:"product"`
	Count         int             `json:"count"`
	LastUnitPrice decimal.Decimal `json:"last_unit_price"`
}

// ProductHistoryResponse holds purchases or popular products depending on sort.
type ProductHistoryResponse struct {
	Sort      string                   `json:"sort"`
	Purchases []PurchaseResponse       `json:"purchases,omitempty"`
	Popular   []PopularProductResponse `json:"popular,omitempty"`
}

// ProductHistoryFromDomain converts a product history.
func ProductHistoryFromDomain(sort domain.HistorySort, purchases []domain.Purchase, popular []domain.PopularProduct) *ProductHistoryResponse {
	resp := &ProductHistoryResponse{Sort: string(sort)}
	if sort == domain.SortByPopular {
		resp.Popular = make([]PopularProductResponse, len(popular))
		for i, p := range popular {
			resp.Popular[i] = PopularProductResponse{
				Product:       ProductFromDomain(p.Product),
				Count:         p.Count,
				LastUnitPrice: p.LastUnitPrice,
			}
		}
		return resp
	}

	resp.Purchases = make([]PurchaseResponse, len(purchases))
	for i, p := range purchases {
		resp.Purchases[i] = PurchaseResponse{
			SessionID: p.SessionID,
			EndDate:   p.EndDate,
			Instance:  ProductInstanceFromDomain(p.Instance),
		}
	}
	return resp
}
