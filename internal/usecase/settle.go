package usecase

import (
	"context"
	"time"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

// persistSettlement stores the debts of a closed session and queues a
// debt.created event for each of them.
func persistSettlement(
	ctx context.Context,
	tx Transaction,
	debtRepo DebtRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	session domain.Session,
	edges []domain.DebtEdge,
	now time.Time,
) ([]*domain.Debt, error) {
	debts := domain.DebtsFromEdges(session.ID, edges, idGen.Generate, now)
	if len(debts) == 0 {
		return debts, nil
	}

	if err := debtRepo.CreateBatch(ctx, tx, debts); err != nil {
		return nil, err
	}

	for _, debt := range debts {
		owedTo, _ := session.Participant(debt.OwedTo)
		event := &domain.OutboxEvent{
			ID:            idGen.Generate(),
			AggregateID:   debt.ID,
			AggregateType: domain.AggregateTypeDebt,
			EventType:     domain.EventTypeDebtCreated,
			Payload: domain.DebtCreatedEvent{
				DebtID:     debt.ID,
				SessionID:  session.ID,
				OwedBy:     debt.OwedBy,
				OwedTo:     debt.OwedTo,
				OwedToName: owedTo.Profile.Name(),
				Amount:     debt.Amount.StringFixed(2),
			}.Payload(),
			CreatedAt: now,
		}
		if err := outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	return debts, nil
}

func observeDebts(m *metrics.Metrics, debts []*domain.Debt) {
	if m == nil {
		return
	}
	m.DebtsCreated.Add(float64(len(debts)))
	for _, debt := range debts {
		amount, _ := debt.Amount.Float64()
		m.DebtAmount.Observe(amount)
	}
}
