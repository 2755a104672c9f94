package domain

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// HistorySort orders a user's product history.
type HistorySort string

const (
	SortByDate    HistorySort = "date"
	SortByPrice   HistorySort = "price"
	SortByPopular HistorySort = "popular"
)

// ParseHistorySort validates a sort key. Empty means date.
func ParseHistorySort(s string) (HistorySort, error) {
	switch HistorySort(s) {
	case "":
		return SortByDate, nil
	case SortByDate, SortByPrice, SortByPopular:
		return HistorySort(s), nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidValue, s)
	}
}

// HistoryFilter bounds a history query by session end date.
type HistoryFilter struct {
	Email string
	Begin *time.Time
	End   *time.Time
	Limit int
}

// Purchase is a product instance a user took part in within a closed session.
type Purchase struct {
	SessionID string
	EndDate   time.Time
	Instance  ProductInstance
}

// PopularProduct counts how often a user bought a product.
type PopularProduct struct {
	Product       Product
	Count         int
	LastUnitPrice decimal.Decimal
}

// Purchases flattens closed sessions into the items email was tagged on.
func Purchases(email string, sessions []Session) []Purchase {
	var out []Purchase
	for _, s := range sessions {
		if s.EndDate == nil {
			continue
		}
		for _, p := range s.Products {
			if p.HasParticipant(email) {
				out = append(out, Purchase{SessionID: s.ID, EndDate: *s.EndDate, Instance: p})
			}
		}
	}
	return out
}

// SortPurchases orders purchases by most recent or by highest unit price.
func SortPurchases(items []Purchase, by HistorySort) []Purchase {
	sorted := slices.Clone(items)
	switch by {
	case SortByPrice:
		slices.SortStableFunc(sorted, func(a, b Purchase) int {
			return b.Instance.UnitPrice.Cmp(a.Instance.UnitPrice)
		})
	default:
		slices.SortStableFunc(sorted, func(a, b Purchase) int {
			return b.EndDate.Compare(a.EndDate)
		})
	}
	return sorted
}

// RankPopular groups purchases by product, most bought first.
func RankPopular(items []Purchase) []PopularProduct {
	byID := make(map[string]*PopularProduct)
	latest := make(map[string]time.Time)
	order := make([]string, 0)

	for _, it := range items {
		id := it.Instance.Product.ID
		pp, ok := byID[id]
		if !ok {
			pp = &PopularProduct{Product: it.Instance.Product}
			byID[id] = pp
			order = append(order, id)
		}
		pp.Count++
		if it.EndDate.After(latest[id]) || !ok {
			latest[id] = it.EndDate
			pp.LastUnitPrice = it.Instance.UnitPrice
		}
	}

	ranked := make([]PopularProduct, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *byID[id])
	}
	slices.SortStableFunc(ranked, func(a, b PopularProduct) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Product.Name, b.Product.Name)
	})
	return ranked
}
