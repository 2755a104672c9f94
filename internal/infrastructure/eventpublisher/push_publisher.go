package eventpublisher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
	"github.com/iho/cartsplit/internal/infrastructure/push"
	"github.com/iho/cartsplit/internal/usecase"
)

// PushPublisher turns outbox events into push notifications for the
// receiving user's device.
type PushPublisher struct {
	devices  usecase.DeviceRepository
	notifier push.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewPushPublisher creates a new PushPublisher.
func NewPushPublisher(devices usecase.DeviceRepository, notifier push.Notifier, m *metrics.Metrics, logger zerolog.Logger) *PushPublisher {
	return &PushPublisher{devices: devices, notifier: notifier, metrics: m, logger: logger}
}

// Publish implements Publisher. Only a failed device lookup is returned;
// unknown events, users without a device and delivery failures are logged
// and the event counts as handled.
func (p *PushPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	receiver, msg, ok := buildMessage(event)
	if !ok {
		p.logger.Warn().Str("event_type", event.EventType).Str("event_id", event.ID).Msg("no notification for event")
		return nil
	}

	device, err := p.devices.GetByEmail(ctx, receiver)
	if err != nil {
		return fmt.Errorf("failed to load device of %s: %w", receiver, err)
	}
	if device == nil || device.RegistrationToken == "" {
		p.observe("skipped")
		return nil
	}

	if err := p.notifier.Notify(ctx, device.RegistrationToken, msg); err != nil {
		p.observe("failed")
		p.logger.Warn().Err(err).Str("email", receiver).Str("event_id", event.ID).Msg("push notification failed")
		return nil
	}

	p.observe("sent")
	return nil
}

func (p *PushPublisher) observe(status string) {
	if p.metrics != nil {
		p.metrics.PushNotifications.WithLabelValues(status).Inc()
	}
}

// buildMessage returns the receiver and the notification for an event.
func buildMessage(event *domain.OutboxEvent) (string, push.Message, bool) {
	switch event.EventType {
	case domain.EventTypeParticipantAdded:
		receiver := payloadString(event.Payload, "participant")
		sender := senderName(event.Payload, "added_by_name", "added_by")
		return receiver, push.Message{
			Title: "New shopping session",
			Body:  sender + " added you to their shopping session.",
			Data:  map[string]string{"screen": "session"},
		}, receiver != ""

	case domain.EventTypeDebtCreated:
		receiver := payloadString(event.Payload, "owed_by")
		sender := senderName(event.Payload, "owed_to_name", "owed_to")
		return receiver, push.Message{
			Title: "A Lannister always pays his debts!",
			Body:  sender + " says you owe them money.",
			Data:  map[string]string{"screen": "debts"},
		}, receiver != ""
	}

	return "", push.Message{}, false
}

func senderName(payload map[string]any, nameKey, emailKey string) string {
	if name := payloadString(payload, nameKey); name != "" {
		return name
	}
	return domain.DisplayNameFromEmail(payloadString(payload, emailKey))
}

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
