package usecase

import (
	"context"
	"time"

	"github.com/iho/cartsplit/internal/domain"
)

// HistoryUseCase answers questions about a user's closed sessions.
type HistoryUseCase struct {
	sessionRepo SessionRepository
}

// NewHistoryUseCase creates a new HistoryUseCase.
func NewHistoryUseCase(sessionRepo SessionRepository) *HistoryUseCase {
	return &HistoryUseCase{sessionRepo: sessionRepo}
}

// HistoryInput bounds a history query.
type HistoryInput struct {
	Caller string
	Email  string
	Begin  *time.Time
	End    *time.Time
	Limit  int
	Sort   string
}

// ProductHistory is the caller's purchase history in one of its orderings.
// Popular is set when sorted by popularity, Purchases otherwise.
type ProductHistory struct {
	Sort      domain.HistorySort
	Purchases []domain.Purchase
	Popular   []domain.PopularProduct
}

// SessionHistory returns the caller's closed sessions, most recent first.
func (uc *HistoryUseCase) SessionHistory(ctx context.Context, input HistoryInput) ([]domain.Session, error) {
	limit := domain.ValidateLimit(input.Limit, DefaultHistoryLimit, MaxHistoryLimit)
	return uc.closedSessions(ctx, input, limit)
}

// ProductHistory returns what the caller bought, ordered by date, price or popularity.
func (uc *HistoryUseCase) ProductHistory(ctx context.Context, input HistoryInput) (*ProductHistory, error) {
	sort, err := domain.ParseHistorySort(input.Sort)
	if err != nil {
		return nil, err
	}

	// Every session in range is needed; the limit applies after flattening.
	sessions, err := uc.closedSessions(ctx, input, 0)
	if err != nil {
		return nil, err
	}

	limit := domain.ValidateLimit(input.Limit, DefaultHistoryLimit, MaxHistoryLimit)
	purchases := domain.Purchases(input.Email, sessions)

	if sort == domain.SortByPopular {
		popular := domain.RankPopular(purchases)
		if len(popular) > limit {
			popular = popular[:limit]
		}
		return &ProductHistory{Sort: sort, Popular: popular}, nil
	}

	sorted := domain.SortPurchases(purchases, sort)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	if sorted == nil {
		sorted = []domain.Purchase{}
	}
	return &ProductHistory{Sort: sort, Purchases: sorted}, nil
}

// closedSessions lists the caller's closed sessions, most recent first.
// A zero limit loads every session in range.
func (uc *HistoryUseCase) closedSessions(ctx context.Context, input HistoryInput, limit int) ([]domain.Session, error) {
	if input.Caller != input.Email {
		return nil, domain.ErrForbidden
	}

	found, err := uc.sessionRepo.ListClosedByEmail(ctx, domain.HistoryFilter{
		Email: input.Email,
		Begin: input.Begin,
		End:   input.End,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(found))
	for _, s := range found {
		sessions = append(sessions, *s)
	}
	return sessions, nil
}
