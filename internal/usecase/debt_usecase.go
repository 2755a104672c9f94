package usecase

import (
	"context"
	"time"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

// DebtUseCase handles reading and settling debts.
type DebtUseCase struct {
	txManager   TransactionManager
	debtRepo    DebtRepository
	retrier     Retrier
	broadcaster Broadcaster
	metrics     *metrics.Metrics
}

// NewDebtUseCase creates a new DebtUseCase.
func NewDebtUseCase(
	txManager TransactionManager,
	debtRepo DebtRepository,
	retrier Retrier,
	broadcaster Broadcaster,
	metrics *metrics.Metrics,
) *DebtUseCase {
	return &DebtUseCase{
		txManager:   txManager,
		debtRepo:    debtRepo,
		retrier:     retrier,
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

// DebtList splits a user's unpaid debts by direction.
type DebtList struct {
	OwedBy []*domain.Debt
	OwedTo []*domain.Debt
}

// ListDebts returns the caller's unpaid debts, optionally bounded by the
// creation date of the session they came from.
func (uc *DebtUseCase) ListDebts(ctx context.Context, caller string, begin, end *time.Time) (*DebtList, error) {
	owedBy, owedTo, err := uc.debtRepo.ListUnpaid(ctx, domain.DebtFilter{
		Email: caller,
		Begin: begin,
		End:   end,
	})
	if err != nil {
		return nil, err
	}

	if owedBy == nil {
		owedBy = []*domain.Debt{}
	}
	if owedTo == nil {
		owedTo = []*domain.Debt{}
	}
	return &DebtList{OwedBy: owedBy, OwedTo: owedTo}, nil
}

// GetDebt returns a debt the caller is a party of.
func (uc *DebtUseCase) GetDebt(ctx context.Context, caller, id string) (*domain.Debt, error) {
	debt, err := uc.debtRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !debt.Involves(caller) {
		return nil, domain.ErrForbidden
	}
	return debt, nil
}

// PatchDebtInput represents input for updating a debt.
type PatchDebtInput struct {
	Caller   string
	DebtID   string
	Deadline *time.Time
	Payed    *time.Time
}

// PatchDebt sets the deadline or payment date of a debt owed to the caller.
func (uc *DebtUseCase) PatchDebt(ctx context.Context, input PatchDebtInput) (*domain.Debt, error) {
	var updated domain.Debt
	var wasPayed bool

	op := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		debt, err := uc.debtRepo.GetByIDForUpdate(txCtx, tx, input.DebtID)
		if err != nil {
			return err
		}

		next, err := debt.Apply(input.Caller, domain.DebtPatch{
			Deadline: input.Deadline,
			Payed:    input.Payed,
		}, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := uc.debtRepo.Update(txCtx, tx, &next); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		updated, wasPayed = next, debt.IsPayed()
		return nil
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, op)
	} else {
		err = op()
	}
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil && !wasPayed && updated.IsPayed() {
		uc.metrics.DebtsSettled.Inc()
	}
	if uc.broadcaster != nil {
		uc.broadcaster.Notify(ctx, []string{updated.OwedBy})
	}

	return &updated, nil
}
