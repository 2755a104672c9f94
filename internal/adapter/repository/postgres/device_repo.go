package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cartsplit/internal/domain"
)

// DeviceRepository implements usecase.DeviceRepository.
type DeviceRepository struct {
	db dbtx
}

// NewDeviceRepository creates a new DeviceRepository.
func NewDeviceRepository(pool *pgxpool.Pool) *DeviceRepository {
	return newDeviceRepositoryWithDB(pool)
}

func newDeviceRepositoryWithDB(db dbtx) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert replaces the registration token of a user.
func (r *DeviceRepository) Upsert(ctx context.Context, device *domain.Device) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO devices (email, registration_token, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET registration_token = EXCLUDED.registration_token,
		    updated_at = EXCLUDED.updated_at
	`, device.Email, device.RegistrationToken, device.UpdatedAt)
	return err
}

// GetByEmail returns the device of a user, or nil when none is registered.
func (r *DeviceRepository) GetByEmail(ctx context.Context, email string) (*domain.Device, error) {
	var d domain.Device
	err := r.db.QueryRow(ctx, `
		SELECT email, registration_token, updated_at FROM devices WHERE email = $1
	`, email).Scan(&d.Email, &d.RegistrationToken, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
