package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

// ReceiptUseCase settles a whole receipt in one step.
type ReceiptUseCase struct {
	txManager   TransactionManager
	sessionRepo SessionRepository
	productRepo ProductRepository
	debtRepo    DebtRepository
	outboxRepo  OutboxRepository
	identity    IdentityProvider
	broadcaster Broadcaster
	retrier     Retrier
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewReceiptUseCase creates a new ReceiptUseCase.
func NewReceiptUseCase(
	txManager TransactionManager,
	sessionRepo SessionRepository,
	productRepo ProductRepository,
	debtRepo DebtRepository,
	outboxRepo OutboxRepository,
	identity IdentityProvider,
	broadcaster Broadcaster,
	retrier Retrier,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *ReceiptUseCase {
	return &ReceiptUseCase{
		txManager:   txManager,
		sessionRepo: sessionRepo,
		productRepo: productRepo,
		debtRepo:    debtRepo,
		outboxRepo:  outboxRepo,
		identity:    identity,
		broadcaster: broadcaster,
		retrier:     retrier,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// ReceiptParticipant is a payer on a receipt.
type ReceiptParticipant struct {
	Email string
	Payed decimal.Decimal
}

// ReceiptLine is one product line of a receipt.
type ReceiptLine struct {
	ProductID    string
	Barcode      string
	Name         string
	Quantity     int
	UnitPrice    decimal.Decimal
	Participants []string
}

// ProcessReceiptInput represents a receipt to settle.
type ProcessReceiptInput struct {
	Caller       string
	Participants []ReceiptParticipant
	Products     []ReceiptLine
}

// ProcessReceipt records a receipt as a closed session and creates its debts.
// Owed amounts are computed here; payments must match the receipt total.
func (uc *ReceiptUseCase) ProcessReceipt(ctx context.Context, input ProcessReceiptInput) (*domain.Session, []*domain.Debt, error) {
	if len(input.Participants) == 0 {
		return nil, nil, fmt.Errorf("%w: receipt has no participants", domain.ErrInvalidValue)
	}

	now := time.Now().UTC()
	draft, err := uc.draft(ctx, input, now)
	if err != nil {
		return nil, nil, err
	}

	var (
		closed domain.Session
		debts  []*domain.Debt
	)
	op := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		session := draft
		for _, line := range input.Products {
			product, err := uc.productRepo.Resolve(txCtx, tx, domain.ProductLookup{
				ID:      line.ProductID,
				Barcode: line.Barcode,
				Name:    strings.TrimSpace(line.Name),
			}, uc.idGen.Generate())
			if err != nil {
				return err
			}

			quantity := line.Quantity
			if quantity == 0 {
				quantity = 1
			}
			session, err = session.WithProduct(domain.ProductInstance{
				ID:           uc.idGen.Generate(),
				Product:      *product,
				Participants: line.Participants,
				Quantity:     quantity,
				UnitPrice:    line.UnitPrice,
				CreatedAt:    now,
			})
			if err != nil {
				return err
			}
		}

		next, edges, err := session.Close(now)
		if err != nil {
			return err
		}

		if err := uc.sessionRepo.Create(txCtx, tx, &next); err != nil {
			return err
		}

		created, err := persistSettlement(txCtx, tx, uc.debtRepo, uc.outboxRepo, uc.idGen, next, edges, now)
		if err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		closed, debts = next, created
		return nil
	}

	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, op)
	} else {
		err = op()
	}
	if err != nil {
		return nil, nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ReceiptsProcessed.Inc()
	}
	observeDebts(uc.metrics, debts)

	if uc.broadcaster != nil {
		if emails := closed.EmailsExcept(input.Caller); len(emails) > 0 {
			uc.broadcaster.Notify(ctx, emails)
		}
	}

	return &closed, debts, nil
}

// draft builds the unsettled session holding the receipt's payers.
func (uc *ReceiptUseCase) draft(ctx context.Context, input ProcessReceiptInput, now time.Time) (domain.Session, error) {
	session := domain.Session{
		ID:           uc.idGen.Generate(),
		Participants: make([]domain.Participant, 0, len(input.Participants)),
		Products:     []domain.ProductInstance{},
		CreationDate: now,
	}

	for _, rp := range input.Participants {
		if err := domain.ValidateMoney(rp.Payed); err != nil {
			return domain.Session{}, err
		}

		user, err := uc.identity.LookupByEmail(ctx, domain.NormalizeEmail(rp.Email))
		if err != nil {
			return domain.Session{}, err
		}
		if user == nil {
			return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrUserNotFound, rp.Email)
		}

		profile := user.Profile()
		if session.HasParticipant(profile.Email) {
			return domain.Session{}, fmt.Errorf("%w: %s listed twice", domain.ErrInvalidValue, profile.Email)
		}
		session.Participants = append(session.Participants, domain.Participant{
			Email:      profile.Email,
			Profile:    profile,
			AmountPaid: rp.Payed,
			AmountOwed: decimal.Zero,
		})
	}

	for _, line := range input.Products {
		if err := domain.ValidateMoney(line.UnitPrice); err != nil {
			return domain.Session{}, err
		}
		if line.ProductID == "" && line.Barcode == "" {
			if err := domain.ValidateProductName(line.Name); err != nil {
				return domain.Session{}, err
			}
		}
	}

	return session, nil
}
