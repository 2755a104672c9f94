package domain

import "github.com/shopspring/decimal"

// Balance is the paid/owed snapshot of one participant.
type Balance struct {
	Email      string
	AmountPaid decimal.Decimal
	AmountOwed decimal.Decimal
}

// DebtEdge is a directed settlement obligation.
type DebtEdge struct {
	OwedBy string
	OwedTo string
	Amount decimal.Decimal
}

// ComputeDebts settles a group by making every debtor pay every creditor a
// share of its deficit proportional to the creditor's share of the total surplus.
//
// Edges are emitted debtor-major, both sides in input order. The result is
// empty when there is no creditor, no debtor or the surplus pool is zero.
func ComputeDebts(balances []Balance) []DebtEdge {
	type side struct {
		email  string
		amount decimal.Decimal
	}

	var creditors, debtors []side
	totalSurplus := decimal.Zero

	for _, b := range balances {
		switch b.AmountPaid.Cmp(b.AmountOwed) {
		case 1:
			surplus := b.AmountPaid.Sub(b.AmountOwed)
			creditors = append(creditors, side{email: b.Email, amount: surplus})
			totalSurplus = totalSurplus.Add(surplus)
		case -1:
			debtors = append(debtors, side{email: b.Email, amount: b.AmountOwed.Sub(b.AmountPaid)})
		}
	}

	if len(creditors) == 0 || len(debtors) == 0 || totalSurplus.IsZero() {
		return []DebtEdge{}
	}

	edges := make([]DebtEdge, 0, len(creditors)*len(debtors))
	for _, d := range debtors {
		for _, c := range creditors {
			edges = append(edges, DebtEdge{
				OwedBy: d.email,
				OwedTo: c.email,
				Amount: c.amount.Mul(d.amount).Div(totalSurplus),
			})
		}
	}

	return edges
}

// ComputeTotalCost returns what email owes for products: an even split of
// every product it is tagged on. Untagged products cost nobody anything.
func ComputeTotalCost(email string, products []ProductInstance) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		if len(p.Participants) == 0 || !p.HasParticipant(email) {
			continue
		}
		total = total.Add(p.Share())
	}
	return total
}
