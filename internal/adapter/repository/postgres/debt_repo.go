package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

// DebtRepository implements usecase.DebtRepository.
type DebtRepository struct {
	db dbtx
}

// NewDebtRepository creates a new DebtRepository.
func NewDebtRepository(pool *pgxpool.Pool) *DebtRepository {
	return newDebtRepositoryWithDB(pool)
}

func newDebtRepositoryWithDB(db dbtx) *DebtRepository {
	return &DebtRepository{db: db}
}

const debtColumns = `d.id, d.session_id, d.owed_by, d.owed_to, d.amount, d.deadline, d.payed, d.created_at`

// CreateBatch inserts the debts of a settled session.
func (r *DebtRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, debts []*domain.Debt) error {
	if len(debts) == 0 {
		return nil
	}

	q := pgxTx(tx)
	batch := &pgx.Batch{}
	for _, d := range debts {
		batch.Queue(`
			INSERT INTO debts (id, session_id, owed_by, owed_to, amount, deadline, payed, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, d.ID, d.SessionID, d.OwedBy, d.OwedTo, decimalToNumeric(d.Amount),
			optionalTimestamptz(d.Deadline), optionalTimestamptz(d.Payed), d.CreatedAt)
	}

	return q.SendBatch(ctx, batch).Close()
}

// GetByID retrieves a debt by ID.
func (r *DebtRepository) GetByID(ctx context.Context, id string) (*domain.Debt, error) {
	return scanDebt(r.db.QueryRow(ctx, `SELECT `+debtColumns+` FROM debts d WHERE d.id = $1`, id))
}

// GetByIDForUpdate retrieves a debt by ID with a FOR UPDATE lock.
func (r *DebtRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Debt, error) {
	return scanDebt(pgxTx(tx).QueryRow(ctx, `SELECT `+debtColumns+` FROM debts d WHERE d.id = $1 FOR UPDATE`, id))
}

// Update stores the deadline and payment date of a debt.
func (r *DebtRepository) Update(ctx context.Context, tx usecase.Transaction, debt *domain.Debt) error {
	tag, err := pgxTx(tx).Exec(ctx, `
		UPDATE debts SET deadline = $2, payed = $3 WHERE id = $1
	`, debt.ID, optionalTimestamptz(debt.Deadline), optionalTimestamptz(debt.Payed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDebtNotFound
	}
	return nil
}

// ListUnpaid returns the unpaid debts of filter.Email, split by direction,
// bounded by the creation date of their session.
func (r *DebtRepository) ListUnpaid(ctx context.Context, filter domain.DebtFilter) (owedBy, owedTo []*domain.Debt, err error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+debtColumns+`
		FROM debts d
		JOIN sessions s ON s.id = d.session_id
		WHERE d.payed IS NULL
		  AND (d.owed_by = $1 OR d.owed_to = $1)
		  AND ($2::timestamptz IS NULL OR s.creation_date >= $2)
		  AND ($3::timestamptz IS NULL OR s.creation_date <= $3)
		ORDER BY d.created_at DESC, d.id
	`, filter.Email, optionalTimestamptz(filter.Begin), optionalTimestamptz(filter.End))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	owedBy = []*domain.Debt{}
	owedTo = []*domain.Debt{}
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, nil, err
		}
		if debt.OwedBy == filter.Email {
			owedBy = append(owedBy, debt)
		} else {
			owedTo = append(owedTo, debt)
		}
	}

	return owedBy, owedTo, rows.Err()
}

func scanDebt(row pgx.Row) (*domain.Debt, error) {
	var (
		d               domain.Debt
		amount          pgtype.Numeric
		deadline, payed pgtype.Timestamptz
	)
	err := row.Scan(&d.ID, &d.SessionID, &d.OwedBy, &d.OwedTo, &amount, &deadline, &payed, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDebtNotFound
		}
		return nil, err
	}

	d.Amount = numericToDecimal(amount)
	d.Deadline = timestamptzPtr(deadline)
	d.Payed = timestamptzPtr(payed)
	return &d, nil
}
