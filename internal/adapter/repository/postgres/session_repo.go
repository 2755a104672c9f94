package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/usecase"
)

// SessionRepository implements usecase.SessionRepository.
//
// A session is stored across sessions, session_participants,
// product_instances and product_instance_participants. Open sessions also
// own one open_session_members row per participant; its primary key keeps
// a user in at most one open session.
type SessionRepository struct {
	db dbtx
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return newSessionRepositoryWithDB(pool)
}

func newSessionRepositoryWithDB(db dbtx) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session with its participants and products.
func (r *SessionRepository) Create(ctx context.Context, tx usecase.Transaction, session *domain.Session) error {
	q := pgxTx(tx)

	_, err := q.Exec(ctx, `
		INSERT INTO sessions (id, creation_date, end_date, updated_at)
		VALUES ($1, $2, $3, $4)
	`, session.ID, session.CreationDate, optionalTimestamptz(session.EndDate), time.Now().UTC())
	if err != nil {
		return err
	}

	return r.writeContent(ctx, q, session)
}

// GetOpenByEmail returns the open session email participates in.
func (r *SessionRepository) GetOpenByEmail(ctx context.Context, email string) (*domain.Session, error) {
	var id string
	err := r.db.QueryRow(ctx, `
		SELECT session_id FROM open_session_members WHERE email = $1
	`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	return r.load(ctx, r.db, id)
}

// GetOpenByEmailForUpdate locks and returns the open session of email.
func (r *SessionRepository) GetOpenByEmailForUpdate(ctx context.Context, tx usecase.Transaction, email string) (*domain.Session, error) {
	q := pgxTx(tx)

	var id string
	err := q.QueryRow(ctx, `
		SELECT s.id
		FROM open_session_members m
		JOIN sessions s ON s.id = m.session_id
		WHERE m.email = $1
		FOR UPDATE OF s
	`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	return r.load(ctx, q, id)
}

// Save replaces the participants and products of an existing session.
func (r *SessionRepository) Save(ctx context.Context, tx usecase.Transaction, session *domain.Session) error {
	q := pgxTx(tx)

	tag, err := q.Exec(ctx, `
		UPDATE sessions SET end_date = $2, updated_at = $3 WHERE id = $1
	`, session.ID, optionalTimestamptz(session.EndDate), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}

	for _, stmt := range []string{
		`DELETE FROM open_session_members WHERE session_id = $1`,
		`DELETE FROM product_instances WHERE session_id = $1`,
		`DELETE FROM session_participants WHERE session_id = $1`,
	} {
		if _, err := q.Exec(ctx, stmt, session.ID); err != nil {
			return err
		}
	}

	return r.writeContent(ctx, q, session)
}

// Delete removes a session and everything attached to it.
func (r *SessionRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := pgxTx(tx).Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ListClosedByEmail returns closed sessions email took part in, most recent first.
func (r *SessionRepository) ListClosedByEmail(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Session, error) {
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	rows, err := r.db.Query(ctx, `
		SELECT s.id
		FROM sessions s
		JOIN session_participants p ON p.session_id = s.id
		WHERE p.email = $1
		  AND s.end_date IS NOT NULL
		  AND ($2::timestamptz IS NULL OR s.end_date >= $2)
		  AND ($3::timestamptz IS NULL OR s.end_date <= $3)
		ORDER BY s.end_date DESC
		LIMIT $4
	`, filter.Email, optionalTimestamptz(filter.Begin), optionalTimestamptz(filter.End), limit)
	if err != nil {
		return nil, err
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	sessions := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.load(ctx, r.db, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, nil
}

func (r *SessionRepository) writeContent(ctx context.Context, q dbtx, session *domain.Session) error {
	for i, p := range session.Participants {
		_, err := q.Exec(ctx, `
			INSERT INTO session_participants
				(session_id, email, position, display_name, photo_url, amount_paid, amount_owed)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, session.ID, p.Email, i, p.Profile.DisplayName, p.Profile.PhotoURL,
			decimalToNumeric(p.AmountPaid), decimalToNumeric(p.AmountOwed))
		if err != nil {
			return err
		}

		if session.IsOpen() {
			_, err := q.Exec(ctx, `
				INSERT INTO open_session_members (email, session_id) VALUES ($1, $2)
			`, p.Email, session.ID)
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrSessionExists, p.Email)
			}
			if err != nil {
				return err
			}
		}
	}

	for i, pi := range session.Products {
		_, err := q.Exec(ctx, `
			INSERT INTO product_instances (id, session_id, product_id, position, quantity, unit_price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, pi.ID, session.ID, pi.Product.ID, i, pi.Quantity, decimalToNumeric(pi.UnitPrice), pi.CreatedAt)
		if err != nil {
			return err
		}

		for j, email := range pi.Participants {
			_, err := q.Exec(ctx, `
				INSERT INTO product_instance_participants (instance_id, email, position)
				VALUES ($1, $2, $3)
			`, pi.ID, email, j)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *SessionRepository) load(ctx context.Context, q dbtx, id string) (*domain.Session, error) {
	session := domain.Session{ID: id}

	var endDate pgtype.Timestamptz
	err := q.QueryRow(ctx, `
		SELECT creation_date, end_date FROM sessions WHERE id = $1
	`, id).Scan(&session.CreationDate, &endDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	session.EndDate = timestamptzPtr(endDate)

	if session.Participants, err = loadParticipants(ctx, q, id); err != nil {
		return nil, err
	}
	if session.Products, err = loadProducts(ctx, q, id); err != nil {
		return nil, err
	}

	return &session, nil
}

func loadParticipants(ctx context.Context, q dbtx, sessionID string) ([]domain.Participant, error) {
	rows, err := q.Query(ctx, `
		SELECT email, display_name, photo_url, amount_paid, amount_owed
		FROM session_participants
		WHERE session_id = $1
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]domain.Participant, 0)
	for rows.Next() {
		var (
			p          domain.Participant
			paid, owed pgtype.Numeric
		)
		if err := rows.Scan(&p.Email, &p.Profile.DisplayName, &p.Profile.PhotoURL, &paid, &owed); err != nil {
			return nil, err
		}
		p.Profile.Email = p.Email
		p.AmountPaid = numericToDecimal(paid)
		p.AmountOwed = numericToDecimal(owed)
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

func loadProducts(ctx context.Context, q dbtx, sessionID string) ([]domain.ProductInstance, error) {
	rows, err := q.Query(ctx, `
		SELECT pi.id, pi.quantity, pi.unit_price, pi.created_at, p.id, p.barcode, p.name
		FROM product_instances pi
		JOIN products p ON p.id = pi.product_id
		WHERE pi.session_id = $1
		ORDER BY pi.position
	`, sessionID)
	if err != nil {
		return nil, err
	}

	products := make([]domain.ProductInstance, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			pi    domain.ProductInstance
			price pgtype.Numeric
		)
		if err := rows.Scan(&pi.ID, &pi.Quantity, &price, &pi.CreatedAt,
			&pi.Product.ID, &pi.Product.Barcode, &pi.Product.Name); err != nil {
			rows.Close()
			return nil, err
		}
		pi.UnitPrice = numericToDecimal(price)
		pi.Participants = []string{}
		index[pi.ID] = len(products)
		products = append(products, pi)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(products) == 0 {
		return products, nil
	}

	tagRows, err := q.Query(ctx, `
		SELECT ip.instance_id, ip.email
		FROM product_instance_participants ip
		JOIN product_instances pi ON pi.id = ip.instance_id
		WHERE pi.session_id = $1
		ORDER BY ip.instance_id, ip.position
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var instanceID, email string
		if err := tagRows.Scan(&instanceID, &email); err != nil {
			return nil, err
		}
		if i, ok := index[instanceID]; ok {
			products[i].Participants = append(products[i].Participants, email)
		}
	}

	return products, tagRows.Err()
}
