package handler

import (
	"context"
	"net/http"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
	"github.com/iho/cartsplit/internal/domain"
)

// DeviceService defines the behavior needed by DeviceHandler.
type DeviceService interface {
	RegisterDevice(ctx context.Context, caller, email, token string) (*domain.Device, error)
}

// DeviceHandler registers push notification tokens.
type DeviceHandler struct {
	deviceUC DeviceService
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(deviceUC DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceUC: deviceUC}
}

// Register binds a registration token to the caller, replacing any previous one.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	profile, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.RegisterDeviceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, "invalid request", err)
		return
	}

	device, err := h.deviceUC.RegisterDevice(r.Context(), profile.Email, emailParam(r, "email"), req.RegistrationToken)
	if err != nil {
		respondError(w, r, "failed to register device", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeviceResponse{
		Email:     device.Email,
		UpdatedAt: device.UpdatedAt,
	})
}
