package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Participant is a user attached to a session with its balances.
type Participant struct {
	Email      string
	Profile    Profile
	AmountPaid decimal.Decimal
	AmountOwed decimal.Decimal
}

// Product is a canonical catalogue entry.
type Product struct {
	ID      string
	Barcode *string
	Name    string
}

// ProductInstance is a priced line item split across a subset of the session.
type ProductInstance struct {
	ID           string
	Product      Product
	Participants []string
	Quantity     int
	UnitPrice    decimal.Decimal
	CreatedAt    time.Time
}

// TotalPrice returns unit price times quantity.
func (p ProductInstance) TotalPrice() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// Share returns the amount each tagged participant owes for this item.
func (p ProductInstance) Share() decimal.Decimal {
	if len(p.Participants) == 0 {
		return decimal.Zero
	}
	return p.TotalPrice().Div(decimal.NewFromInt(int64(len(p.Participants))))
}

// HasParticipant reports whether email is tagged on the item.
func (p ProductInstance) HasParticipant(email string) bool {
	return slices.Contains(p.Participants, email)
}

// Validate checks quantity and price.
func (p ProductInstance) Validate() error {
	if p.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidValue)
	}
	if p.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidValue)
	}
	if p.Product.Name == "" && p.Product.ID == "" {
		return fmt.Errorf("%w: product has no name", ErrInvalidValue)
	}
	return nil
}

func (p ProductInstance) clone() ProductInstance {
	p.Participants = slices.Clone(p.Participants)
	return p
}

// ProductPatch holds optional changes to a product instance.
type ProductPatch struct {
	Quantity     *int
	UnitPrice    *decimal.Decimal
	Participants []string
}

// Session is a shopping period shared by its participants.
// Methods never mutate the receiver; transforms return a new value.
type Session struct {
	ID           string
	Participants []Participant
	Products     []ProductInstance
	CreationDate time.Time
	EndDate      *time.Time
}

// NewSession opens a session owned by its creator.
func NewSession(id string, creator Profile, creationDate time.Time) Session {
	return Session{
		ID: id,
		Participants: []Participant{{
			Email:      creator.Email,
			Profile:    creator,
			AmountPaid: decimal.Zero,
			AmountOwed: decimal.Zero,
		}},
		Products:     []ProductInstance{},
		CreationDate: creationDate,
	}
}

// IsOpen reports whether the session has not been closed.
func (s Session) IsOpen() bool {
	return s.EndDate == nil
}

// TotalCost is the sum of every product's total price.
func (s Session) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Products {
		total = total.Add(p.TotalPrice())
	}
	return total
}

// TotalPaid is the sum of every participant's payment.
func (s Session) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Participants {
		total = total.Add(p.AmountPaid)
	}
	return total
}

// CanClose reports whether payments cover the cost to the cent.
func (s Session) CanClose() bool {
	return s.TotalPaid().Round(2).Equal(s.TotalCost().Round(2))
}

// Emails returns participant identities in order.
func (s Session) Emails() []string {
	emails := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		emails[i] = p.Email
	}
	return emails
}

// EmailsExcept returns participant identities other than email.
func (s Session) EmailsExcept(email string) []string {
	emails := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.Email != email {
			emails = append(emails, p.Email)
		}
	}
	return emails
}

// HasParticipant reports whether email takes part in the session.
func (s Session) HasParticipant(email string) bool {
	return s.participantIndex(email) >= 0
}

// Participant returns the participant with the given email.
func (s Session) Participant(email string) (Participant, bool) {
	i := s.participantIndex(email)
	if i < 0 {
		return Participant{}, false
	}
	return s.Participants[i], true
}

// Product returns the product instance with the given id.
func (s Session) Product(id string) (ProductInstance, bool) {
	i := s.productIndex(id)
	if i < 0 {
		return ProductInstance{}, false
	}
	return s.Products[i], true
}

// Balances returns the settlement snapshot of every participant.
func (s Session) Balances() []Balance {
	balances := make([]Balance, len(s.Participants))
	for i, p := range s.Participants {
		balances[i] = Balance{Email: p.Email, AmountPaid: p.AmountPaid, AmountOwed: p.AmountOwed}
	}
	return balances
}

// RecomputeOwed derives every participant's owed amount from the products.
func (s Session) RecomputeOwed() Session {
	next := s.clone()
	for i := range next.Participants {
		next.Participants[i].AmountOwed = ComputeTotalCost(next.Participants[i].Email, next.Products)
	}
	return next
}

// WithParticipant adds a participant with zero balances.
func (s Session) WithParticipant(profile Profile) (Session, error) {
	if !s.IsOpen() {
		return Session{}, ErrSessionClosed
	}
	if s.HasParticipant(profile.Email) {
		return Session{}, ErrParticipantExists
	}

	next := s.clone()
	next.Participants = append(next.Participants, Participant{
		Email:      profile.Email,
		Profile:    profile,
		AmountPaid: decimal.Zero,
		AmountOwed: decimal.Zero,
	})
	return next, nil
}

// WithoutParticipant removes a participant from the session and all of its products.
func (s Session) WithoutParticipant(email string) (Session, error) {
	if !s.IsOpen() {
		return Session{}, ErrSessionClosed
	}
	i := s.participantIndex(email)
	if i < 0 {
		return Session{}, ErrParticipantNotFound
	}

	next := s.clone()
	next.Participants = slices.Delete(next.Participants, i, i+1)
	for j := range next.Products {
		next.Products[j].Participants = slices.DeleteFunc(next.Products[j].Participants, func(e string) bool {
			return e == email
		})
	}
	return next.RecomputeOwed(), nil
}

// WithPayment sets what email has paid. Total payments may not exceed the cost.
func (s Session) WithPayment(email string, payment decimal.Decimal) (Session, error) {
	if !s.IsOpen() {
		return Session{}, ErrSessionClosed
	}
	if payment.IsNegative() {
		return Session{}, fmt.Errorf("%w: payment must not be negative", ErrInvalidValue)
	}
	i := s.participantIndex(email)
	if i < 0 {
		return Session{}, ErrParticipantNotFound
	}

	next := s.clone()
	next.Participants[i].AmountPaid = payment
	if next.TotalPaid().Round(2).GreaterThan(next.TotalCost().Round(2)) {
		return Session{}, fmt.Errorf("%w: total payed exceeds total cost", ErrInvalidValue)
	}
	return next, nil
}

// WithProduct appends a product instance tagged on session participants.
func (s Session) WithProduct(p ProductInstance) (Session, error) {
	if !s.IsOpen() {
		return Session{}, ErrSessionClosed
	}
	if err := p.Validate(); err != nil {
		return Session{}, err
	}
	if err := s.checkMembers(p.Participants); err != nil {
		return Session{}, err
	}

	next := s.clone()
	next.Products = append(next.Products, p.clone())
	return next.RecomputeOwed(), nil
}

// WithProductPatched applies patch to the product instance id.
func (s Session) WithProductPatched(id string, patch ProductPatch) (Session, error) {
	if !s.IsOpen() {
		return Session{}, ErrSessionClosed
	}
	i := s.productIndex(id)
	if i < 0 {
		return Session{}, ErrProductNotFound
	}

	next := s.clone()
	p := next.Products[i]
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		p.UnitPrice = *patch.UnitPrice
	}
	if patch.Participants != nil {
		if err := s.checkMembers(patch.Participants); err != nil {
			return Session{}, err
		}
		p.Participants = slices.Clone(patch.Participants)
	}
	if err := p.Validate(); err != nil {
		return Session{}, err
	}
	next.Products[i] = p
	return next.RecomputeOwed(), nil
}

// WithoutProduct removes the product instance id.
func (s Session) WithoutProduct(id string) (Session, error) {
	if !s.IsOpen() {
		return Session{}, ErrSessionClosed
	}
	i := s.productIndex(id)
	if i < 0 {
		return Session{}, ErrProductNotFound
	}

	next := s.clone()
	next.Products = slices.Delete(next.Products, i, i+1)
	return next.RecomputeOwed(), nil
}

// WithProductParticipant tags email on the product instance id.
func (s Session) WithProductParticipant(id, email string) (Session, error) {
	if !s.IsOpen() {
		return Session{}, ErrSessionClosed
	}
	i := s.productIndex(id)
	if i < 0 {
		return Session{}, ErrProductNotFound
	}
	if s.Products[i].HasParticipant(email) {
		return Session{}, ErrParticipantExists
	}
	if !s.HasParticipant(email) {
		return Session{}, ErrParticipantNotFound
	}

	next := s.clone()
	next.Products[i].Participants = append(next.Products[i].Participants, email)
	return next.RecomputeOwed(), nil
}

// WithoutProductParticipant untags email from the product instance id.
func (s Session) WithoutProductParticipant(id, email string) (Session, error) {
	if !s.IsOpen() {
		return Session{}, ErrSessionClosed
	}
	i := s.productIndex(id)
	if i < 0 {
		return Session{}, ErrProductNotFound
	}
	if !s.Products[i].HasParticipant(email) {
		return Session{}, ErrParticipantNotFound
	}

	next := s.clone()
	next.Products[i].Participants = slices.DeleteFunc(next.Products[i].Participants, func(e string) bool {
		return e == email
	})
	return next.RecomputeOwed(), nil
}

// Close ends the session and settles it. Closing requires payments to match
// the cost after rounding to cents and an end date not before creation.
func (s Session) Close(endDate time.Time) (Session, []DebtEdge, error) {
	if !s.IsOpen() {
		return Session{}, nil, ErrSessionClosed
	}
	if !s.CanClose() {
		return Session{}, nil, ErrPaymentInvalid
	}
	if endDate.Before(s.CreationDate) {
		return Session{}, nil, fmt.Errorf("%w: end date precedes creation date", ErrInvalidValue)
	}

	next := s.clone()
	next.EndDate = &endDate
	return next, ComputeDebts(next.Balances()), nil
}

func (s Session) checkMembers(emails []string) error {
	for _, e := range emails {
		if !s.HasParticipant(e) {
			return fmt.Errorf("%w: %s", ErrParticipantNotFound, e)
		}
	}
	if hasDuplicates(emails) {
		return fmt.Errorf("%w: duplicate participant", ErrInvalidValue)
	}
	return nil
}

func (s Session) participantIndex(email string) int {
	return slices.IndexFunc(s.Participants, func(p Participant) bool { return p.Email == email })
}

func (s Session) productIndex(id string) int {
	return slices.IndexFunc(s.Products, func(p ProductInstance) bool { return p.ID == id })
}

func (s Session) clone() Session {
	next := s
	next.Participants = slices.Clone(s.Participants)
	next.Products = make([]ProductInstance, len(s.Products))
	for i, p := range s.Products {
		next.Products[i] = p.clone()
	}
	if s.EndDate != nil {
		end := *s.EndDate
		next.EndDate = &end
	}
	return next
}

func hasDuplicates(values []string) bool {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}
