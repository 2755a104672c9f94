package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

var epsilon = decimal.New(1, -9)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bal(email, paid, owed string) Balance {
	return Balance{Email: email, AmountPaid: d(paid), AmountOwed: d(owed)}
}

func findEdge(edges []DebtEdge, by, to string) (DebtEdge, bool) {
	for _, e := range edges {
		if e.OwedBy == by && e.OwedTo == to {
			return e, true
		}
	}
	return DebtEdge{}, false
}

func TestComputeDebts_Scenarios(t *testing.T) {
	type edge struct {
		by, to, amount string
	}

	tests := []struct {
		name     string
		balances []Balance
		want     []edge
	}{
		{
			name:     "one creditor one debtor",
			balances: []Balance{bal("a", "30", "10"), bal("b", "0", "20")},
			want:     []edge{{"b", "a", "20"}},
		},
		{
			name:     "one creditor two debtors",
			balances: []Balance{bal("a", "0", "20"), bal("b", "30", "0"), bal("c", "0", "10")},
			want:     []edge{{"a", "b", "20"}, {"c", "b", "10"}},
		},
		{
			name:     "two creditors two debtors fan out proportionally",
			balances: []Balance{bal("a", "60", "20"), bal("b", "20", "0"), bal("c", "0", "45"), bal("d", "0", "15")},
			want: []edge{
				{"c", "a", "30"}, {"c", "b", "15"},
				{"d", "a", "10"}, {"d", "b", "5"},
			},
		},
		{
			name:     "balanced participants produce nothing",
			balances: []Balance{bal("a", "12.50", "12.50"), bal("b", "0", "0")},
			want:     nil,
		},
		{
			name:     "debtors without creditors",
			balances: []Balance{bal("a", "0", "10"), bal("b", "0", "5")},
			want:     nil,
		},
		{
			name:     "creditors without debtors",
			balances: []Balance{bal("a", "10", "0")},
			want:     nil,
		},
		{
			name:     "empty input",
			balances: nil,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDebts(tt.balances)
			if got == nil {
				t.Fatalf("expected non-nil result")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d edges, got %d: %+v", len(tt.want), len(got), got)
			}
			for _, w := range tt.want {
				e, ok := findEdge(got, w.by, w.to)
				if !ok {
					t.Fatalf("missing edge %s -> %s in %+v", w.by, w.to, got)
				}
				if e.Amount.Sub(d(w.amount)).Abs().GreaterThan(epsilon) {
					t.Fatalf("edge %s -> %s: expected %s, got %s", w.by, w.to, w.amount, e.Amount)
				}
			}
		})
	}
}

func TestComputeDebts_SettlesEveryBalance(t *testing.T) {
	balances := []Balance{
		bal("a", "100", "33.33"),
		bal("b", "0", "41.17"),
		bal("c", "25.10", "0"),
		bal("d", "0", "27.30"),
		bal("e", "10", "33.30"),
	}

	edges := ComputeDebts(balances)

	paidOut := map[string]decimal.Decimal{}
	received := map[string]decimal.Decimal{}
	for _, e := range edges {
		if !e.Amount.IsPositive() {
			t.Fatalf("expected positive amount, got %s", e.Amount)
		}
		paidOut[e.OwedBy] = paidOut[e.OwedBy].Add(e.Amount)
		received[e.OwedTo] = received[e.OwedTo].Add(e.Amount)
	}

	for _, b := range balances {
		net := b.AmountPaid.Sub(b.AmountOwed)
		switch {
		case net.IsPositive():
			if received[b.Email].Sub(net).Abs().GreaterThan(epsilon) {
				t.Fatalf("%s: expected to receive %s, got %s", b.Email, net, received[b.Email])
			}
		case net.IsNegative():
			if paidOut[b.Email].Sub(net.Neg()).Abs().GreaterThan(epsilon) {
				t.Fatalf("%s: expected to pay %s, got %s", b.Email, net.Neg(), paidOut[b.Email])
			}
		}
	}

	if len(edges) != 2*3 {
		t.Fatalf("expected full bipartite fan-out of 6 edges, got %d", len(edges))
	}
}

func TestComputeTotalCost(t *testing.T) {
	products := []ProductInstance{
		{ID: "p1", Participants: []string{"a", "b", "c"}, Quantity: 3, UnitPrice: d("9.99")},
		{ID: "p2", Participants: []string{"a"}, Quantity: 1, UnitPrice: d("5")},
		{ID: "p3", Participants: []string{}, Quantity: 2, UnitPrice: d("100")},
	}

	tests := []struct {
		email string
		want  string
	}{
		{"a", "14.99"},
		{"b", "9.99"},
		{"c", "9.99"},
		{"z", "0"},
	}

	for _, tt := range tests {
		if got := ComputeTotalCost(tt.email, products); !got.Equal(d(tt.want)) {
			t.Fatalf("ComputeTotalCost(%q) = %s, want %s", tt.email, got, tt.want)
		}
	}

	first := ComputeTotalCost("a", products)
	second := ComputeTotalCost("a", products)
	if !first.Equal(second) {
		t.Fatalf("expected repeated calls to agree, got %s and %s", first, second)
	}
}

func TestComputeTotalCost_ConservesCost(t *testing.T) {
	products := []ProductInstance{
		{ID: "p1", Participants: []string{"a", "b", "c"}, Quantity: 1, UnitPrice: d("10")},
		{ID: "p2", Participants: []string{"b", "c"}, Quantity: 7, UnitPrice: d("0.33")},
		{ID: "p3", Participants: []string{"a", "b", "c"}, Quantity: 2, UnitPrice: d("1.01")},
	}

	sum := decimal.Zero
	for _, email := range []string{"a", "b", "c"} {
		sum = sum.Add(ComputeTotalCost(email, products))
	}

	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.TotalPrice())
	}

	if sum.Sub(total).Abs().GreaterThan(epsilon) {
		t.Fatalf("expected shares to add up to %s, got %s", total, sum)
	}
}
