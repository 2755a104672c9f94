package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Debt is a settlement obligation created when a session closes.
// Only the owed-to party may set its deadline or payment date.
type Debt struct {
	ID        string
	SessionID string
	OwedBy    string
	OwedTo    string
	Amount    decimal.Decimal
	Deadline  *time.Time
	Payed     *time.Time
	CreatedAt time.Time
}

// DebtPatch holds optional changes to a debt.
type DebtPatch struct {
	Deadline *time.Time
	Payed    *time.Time
}

// DebtFilter selects unpaid debts of a user by session creation date.
type DebtFilter struct {
	Email string
	Begin *time.Time
	End   *time.Time
}

// DebtsFromEdges turns settlement output into debts of a session.
// Edges worth less than a cent are dropped.
func DebtsFromEdges(sessionID string, edges []DebtEdge, newID func() string, now time.Time) []*Debt {
	debts := make([]*Debt, 0, len(edges))
	for _, e := range SignificantEdges(edges) {
		debts = append(debts, &Debt{
			ID:        newID(),
			SessionID: sessionID,
			OwedBy:    e.OwedBy,
			OwedTo:    e.OwedTo,
			Amount:    e.Amount,
			CreatedAt: now,
		})
	}
	return debts
}

// SignificantEdges returns the edges that amount to at least one cent.
func SignificantEdges(edges []DebtEdge) []DebtEdge {
	out := make([]DebtEdge, 0, len(edges))
	for _, e := range edges {
		if e.Amount.Round(2).IsZero() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// IsPayed reports whether a payment date is set.
func (d Debt) IsPayed() bool {
	return d.Payed != nil
}

// Involves reports whether email is either side of the debt.
func (d Debt) Involves(email string) bool {
	return d.OwedBy == email || d.OwedTo == email
}

// Apply returns the debt with patch applied on behalf of caller.
func (d Debt) Apply(caller string, patch DebtPatch, now time.Time) (Debt, error) {
	if caller != d.OwedTo {
		return Debt{}, fmt.Errorf("%w: only the owed party can update a debt", ErrForbidden)
	}

	next := d
	if patch.Deadline != nil {
		if !patch.Deadline.After(now) {
			return Debt{}, fmt.Errorf("%w: deadline must be in the future", ErrInvalidValue)
		}
		deadline := *patch.Deadline
		next.Deadline = &deadline
	}
	if patch.Payed != nil {
		if patch.Payed.After(now) {
			return Debt{}, fmt.Errorf("%w: payment date must not be in the future", ErrInvalidValue)
		}
		payed := *patch.Payed
		next.Payed = &payed
	}
	return next, nil
}
