package usecase

import (
	"context"
	"slices"

	"github.com/iho/cartsplit/internal/domain"
)

// sessionChange derives the next state of a locked open session. It may write
// related records through tx; the session itself is persisted by the writer.
type sessionChange func(ctx context.Context, tx Transaction, current domain.Session) (domain.Session, error)

// sessionWriter serializes mutations of one open session: lock, transform,
// persist, commit, then signal the other participants.
type sessionWriter struct {
	txManager   TransactionManager
	sessionRepo SessionRepository
	retrier     Retrier
	broadcaster Broadcaster
}

func (w sessionWriter) update(ctx context.Context, caller, owner string, change sessionChange) (*domain.Session, error) {
	if caller != owner {
		return nil, domain.ErrForbidden
	}

	var before, after domain.Session
	op := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := w.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		current, err := w.sessionRepo.GetOpenByEmailForUpdate(txCtx, tx, owner)
		if err != nil {
			return err
		}

		next, err := change(txCtx, tx, *current)
		if err != nil {
			return err
		}

		// The last participant leaving discards the session.
		if len(next.Participants) == 0 {
			err = w.sessionRepo.Delete(txCtx, tx, next.ID)
		} else {
			err = w.sessionRepo.Save(txCtx, tx, &next)
		}
		if err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		before, after = *current, next
		return nil
	}

	if err := w.retry(ctx, op); err != nil {
		return nil, err
	}

	w.notify(ctx, caller, before, after)
	return &after, nil
}

func (w sessionWriter) retry(ctx context.Context, op func() error) error {
	if w.retrier == nil {
		return op()
	}
	return w.retrier.Retry(ctx, op)
}

// notify signals everyone who was or is in the session, except the caller.
func (w sessionWriter) notify(ctx context.Context, caller string, sessions ...domain.Session) {
	if w.broadcaster == nil {
		return
	}

	var emails []string
	for _, s := range sessions {
		for _, e := range s.EmailsExcept(caller) {
			if !slices.Contains(emails, e) {
				emails = append(emails, e)
			}
		}
	}
	if len(emails) > 0 {
		w.broadcaster.Notify(ctx, emails)
	}
}
