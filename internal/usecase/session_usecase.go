package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

// SessionUseCase handles the lifecycle of shopping sessions.
type SessionUseCase struct {
	writer     sessionWriter
	txManager  TransactionManager
	sessions   SessionRepository
	debtRepo   DebtRepository
	outboxRepo OutboxRepository
	identity   IdentityProvider
	idGen      IDGenerator
	metrics    *metrics.Metrics
}

// NewSessionUseCase creates a new SessionUseCase.
func NewSessionUseCase(
	txManager TransactionManager,
	sessionRepo SessionRepository,
	debtRepo DebtRepository,
	outboxRepo OutboxRepository,
	identity IdentityProvider,
	broadcaster Broadcaster,
	retrier Retrier,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *SessionUseCase {
	return &SessionUseCase{
		writer: sessionWriter{
			txManager:   txManager,
			sessionRepo: sessionRepo,
			retrier:     retrier,
			broadcaster: broadcaster,
		},
		txManager:  txManager,
		sessions:   sessionRepo,
		debtRepo:   debtRepo,
		outboxRepo: outboxRepo,
		identity:   identity,
		idGen:      idGen,
		metrics:    metrics,
	}
}

// CreateSessionInput represents input for opening a session.
type CreateSessionInput struct {
	Caller       domain.Profile
	SessionEmail string
	CreationDate *time.Time
}

// CreateSession opens a session with the caller as its only participant.
func (uc *SessionUseCase) CreateSession(ctx context.Context, input CreateSessionInput) (*domain.Session, error) {
	if input.Caller.Email != input.SessionEmail {
		return nil, domain.ErrForbidden
	}

	creationDate := time.Now().UTC()
	if input.CreationDate != nil {
		creationDate = input.CreationDate.UTC()
	}

	session := domain.NewSession(uc.idGen.Generate(), input.Caller, creationDate)

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.sessions.Create(txCtx, tx, &session); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SessionsCreated.Inc()
	}

	return &session, nil
}

// GetCurrentSession returns the open session of the caller.
func (uc *SessionUseCase) GetCurrentSession(ctx context.Context, caller, sessionEmail string) (*domain.Session, error) {
	if caller != sessionEmail {
		return nil, domain.ErrForbidden
	}
	return uc.sessions.GetOpenByEmail(ctx, sessionEmail)
}

// AddParticipantInput represents input for adding a user to a session.
type AddParticipantInput struct {
	Caller       domain.Profile
	SessionEmail string
	Email        string
}

// AddParticipant adds a known user without an open session to the caller's session.
func (uc *SessionUseCase) AddParticipant(ctx context.Context, input AddParticipantInput) (*domain.Session, error) {
	if input.Caller.Email != input.SessionEmail {
		return nil, domain.ErrForbidden
	}

	user, err := uc.identity.LookupByEmail(ctx, domain.NormalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	return uc.writer.update(ctx, input.Caller.Email, input.SessionEmail,
		func(ctx context.Context, tx Transaction, current domain.Session) (domain.Session, error) {
			other, err := uc.sessions.GetOpenByEmail(ctx, user.Email)
			switch {
			case err == nil && other != nil:
				return domain.Session{}, domain.ErrSessionExists
			case err != nil && !errors.Is(err, domain.ErrSessionNotFound):
				return domain.Session{}, err
			}

			next, err := current.WithParticipant(user.Profile())
			if err != nil {
				return domain.Session{}, err
			}

			event := &domain.OutboxEvent{
				ID:            uc.idGen.Generate(),
				AggregateID:   current.ID,
				AggregateType: domain.AggregateTypeSession,
				EventType:     domain.EventTypeParticipantAdded,
				Payload: domain.ParticipantAddedEvent{
					SessionID:   current.ID,
					AddedBy:     input.Caller.Email,
					AddedByName: input.Caller.Name(),
					Participant: user.Email,
				}.Payload(),
				CreatedAt: time.Now().UTC(),
			}
			if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
				return domain.Session{}, err
			}

			return next, nil
		})
}

// RemoveParticipantInput represents input for removing a user from a session.
type RemoveParticipantInput struct {
	Caller       string
	SessionEmail string
	Email        string
}

// RemoveParticipant removes a participant from the session and from all of
// its products. The session is deleted once nobody is left.
func (uc *SessionUseCase) RemoveParticipant(ctx context.Context, input RemoveParticipantInput) (*domain.Session, error) {
	return uc.writer.update(ctx, input.Caller, input.SessionEmail,
		func(_ context.Context, _ Transaction, current domain.Session) (domain.Session, error) {
			return current.WithoutParticipant(input.Email)
		})
}

// SetPaymentInput represents input for recording what a participant paid.
type SetPaymentInput struct {
	Caller       string
	SessionEmail string
	Email        string
	Payment      decimal.Decimal
}

// SetPayment records a participant's payment.
func (uc *SessionUseCase) SetPayment(ctx context.Context, input SetPaymentInput) (*domain.Session, error) {
	if err := domain.ValidateMoney(input.Payment); err != nil {
		return nil, err
	}

	return uc.writer.update(ctx, input.Caller, input.SessionEmail,
		func(_ context.Context, _ Transaction, current domain.Session) (domain.Session, error) {
			return current.WithPayment(input.Email, input.Payment)
		})
}

// CloseSessionInput represents input for ending a session.
type CloseSessionInput struct {
	Caller       string
	SessionEmail string
	EndDate      *time.Time
}

// CloseSession ends the caller's session and creates its debts.
func (uc *SessionUseCase) CloseSession(ctx context.Context, input CloseSessionInput) (*domain.Session, []*domain.Debt, error) {
	now := time.Now().UTC()
	endDate := now
	if input.EndDate != nil {
		endDate = input.EndDate.UTC()
	}

	var debts []*domain.Debt
	session, err := uc.writer.update(ctx, input.Caller, input.SessionEmail,
		func(ctx context.Context, tx Transaction, current domain.Session) (domain.Session, error) {
			closed, edges, err := current.Close(endDate)
			if err != nil {
				return domain.Session{}, err
			}

			debts, err = persistSettlement(ctx, tx, uc.debtRepo, uc.outboxRepo, uc.idGen, closed, edges, now)
			if err != nil {
				return domain.Session{}, err
			}

			return closed, nil
		})
	if err != nil {
		return nil, nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SessionsClosed.Inc()
	}
	observeDebts(uc.metrics, debts)

	return session, debts, nil
}
