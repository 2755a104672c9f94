package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iho/cartsplit/internal/domain"
)

// DeviceUseCase stores push registration tokens.
type DeviceUseCase struct {
	deviceRepo DeviceRepository
}

// NewDeviceUseCase creates a new DeviceUseCase.
func NewDeviceUseCase(deviceRepo DeviceRepository) *DeviceUseCase {
	return &DeviceUseCase{deviceRepo: deviceRepo}
}

// RegisterDevice replaces the caller's push registration token.
func (uc *DeviceUseCase) RegisterDevice(ctx context.Context, caller, email, token string) (*domain.Device, error) {
	if caller != email {
		return nil, domain.ErrForbidden
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: registration token is required", domain.ErrInvalidValue)
	}

	device := &domain.Device{
		Email:             email,
		RegistrationToken: token,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := uc.deviceRepo.Upsert(ctx, device); err != nil {
		return nil, err
	}

	return device, nil
}
