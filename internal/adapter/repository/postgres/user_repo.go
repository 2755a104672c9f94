package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cartsplit/internal/domain"
)

// UserRepository is the user directory. It implements usecase.IdentityProvider
// and is refreshed from verified identity tokens.
type UserRepository struct {
	db dbtx
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return newUserRepositoryWithDB(pool)
}

func newUserRepositoryWithDB(db dbtx) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert records the latest profile of a user.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (email, display_name, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (email) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    photo_url = EXCLUDED.photo_url,
		    updated_at = EXCLUDED.updated_at
		WHERE users.display_name IS DISTINCT FROM EXCLUDED.display_name
		   OR users.photo_url IS DISTINCT FROM EXCLUDED.photo_url
	`

	_, err := r.db.Exec(ctx, query, user.Email, user.DisplayName, user.PhotoURL, now)
	return err
}

// LookupByEmail retrieves a user by email
func (r *UserRepository) LookupByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT email, display_name, photo_url, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var user domain.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.Email,
		&user.DisplayName,
		&user.PhotoURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// SearchUsers returns users whose email or display name starts with query.
func (r *UserRepository) SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	sql := `
		SELECT email, display_name, photo_url, created_at, updated_at
		FROM users
		WHERE email LIKE $1 ESCAPE '\' OR lower(display_name) LIKE $1 ESCAPE '\'
		ORDER BY email
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, sql, likePrefix(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		var user domain.User
		err := rows.Scan(
			&user.Email,
			&user.DisplayName,
			&user.PhotoURL,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}
