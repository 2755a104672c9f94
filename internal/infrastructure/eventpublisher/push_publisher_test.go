package eventpublisher

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
	"github.com/iho/cartsplit/internal/infrastructure/push"
)

type stubDevices struct {
	GetByEmailFn func(ctx context.Context, email string) (*domain.Device, error)
}

func (s stubDevices) Upsert(context.Context, *domain.Device) error { return nil }

func (s stubDevices) GetByEmail(ctx context.Context, email string) (*domain.Device, error) {
	return s.GetByEmailFn(ctx, email)
}

type sentMessage struct {
	token string
	msg   push.Message
}

type stubNotifier struct {
	sent []sentMessage
	err  error
}

func (s *stubNotifier) Notify(_ context.Context, token string, msg push.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{token: token, msg: msg})
	return nil
}

func devicesFor(tokens map[string]string) stubDevices {
	return stubDevices{GetByEmailFn: func(_ context.Context, email string) (*domain.Device, error) {
		token, ok := tokens[email]
		if !ok {
			return nil, nil
		}
		return &domain.Device{Email: email, RegistrationToken: token}, nil
	}}
}

func TestPushPublisherMessages(t *testing.T) {
	tests := []struct {
		name      string
		event     *domain.OutboxEvent
		wantToken string
		want      push.Message
	}{
		{
			name: "participant added",
			event: &domain.OutboxEvent{
				ID:        "evt-1",
				EventType: domain.EventTypeParticipantAdded,
				Payload: domain.ParticipantAddedEvent{
					SessionID:   "s1",
					AddedBy:     "ann@example.com",
					AddedByName: "Ann Lee",
					Participant: "bob@example.com",
				}.Payload(),
			},
			wantToken: "bob-token",
			want: push.Message{
				Title: "New shopping session",
				Body:  "Ann Lee added you to their shopping session.",
				Data:  map[string]string{"screen": "session"},
			},
		},
		{
			name: "debt created with derived name",
			event: &domain.OutboxEvent{
				ID:        "evt-2",
				EventType: domain.EventTypeDebtCreated,
				Payload: domain.DebtCreatedEvent{
					DebtID: "d1",
					OwedBy: "bob@example.com",
					OwedTo: "john.doe42@example.com",
					Amount: "10.00",
				}.Payload(),
			},
			wantToken: "bob-token",
			want: push.Message{
				Title: "A Lannister always pays his debts!",
				Body:  "John Doe says you owe them money.",
				Data:  map[string]string{"screen": "debts"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &stubNotifier{}
			m := metrics.New(prometheus.NewRegistry())
			p := NewPushPublisher(devicesFor(map[string]string{"bob@example.com": "bob-token"}), notifier, m, zerolog.Nop())

			if err := p.Publish(context.Background(), tt.event); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(notifier.sent) != 1 {
				t.Fatalf("expected one notification, got %d", len(notifier.sent))
			}
			got := notifier.sent[0]
			if got.token != tt.wantToken {
				t.Fatalf("expected token %q, got %q", tt.wantToken, got.token)
			}
			if got.msg.Title != tt.want.Title || got.msg.Body != tt.want.Body || got.msg.Data["screen"] != tt.want.Data["screen"] {
				t.Fatalf("expected %+v, got %+v", tt.want, got.msg)
			}
			if v := testutil.ToFloat64(m.PushNotifications.WithLabelValues("sent")); v != 1 {
				t.Fatalf("expected sent metric 1, got %v", v)
			}
		})
	}
}

func TestPushPublisherSkipsUserWithoutDevice(t *testing.T) {
	notifier := &stubNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	p := NewPushPublisher(devicesFor(nil), notifier, m, zerolog.Nop())

	event := &domain.OutboxEvent{
		EventType: domain.EventTypeParticipantAdded,
		Payload:   map[string]any{"participant": "bob@example.com", "added_by": "ann@example.com"},
	}
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notification, got %d", len(notifier.sent))
	}
	if v := testutil.ToFloat64(m.PushNotifications.WithLabelValues("skipped")); v != 1 {
		t.Fatalf("expected skipped metric 1, got %v", v)
	}
}

func TestPushPublisherSwallowsDeliveryFailure(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("unregistered")}
	m := metrics.New(prometheus.NewRegistry())
	p := NewPushPublisher(devicesFor(map[string]string{"bob@example.com": "t"}), notifier, m, zerolog.Nop())

	event := &domain.OutboxEvent{
		EventType: domain.EventTypeDebtCreated,
		Payload:   map[string]any{"owed_by": "bob@example.com", "owed_to": "ann@example.com"},
	}
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("expected delivery failure to be swallowed, got %v", err)
	}
	if v := testutil.ToFloat64(m.PushNotifications.WithLabelValues("failed")); v != 1 {
		t.Fatalf("expected failed metric 1, got %v", v)
	}
}

func TestPushPublisherReturnsLookupError(t *testing.T) {
	devices := stubDevices{GetByEmailFn: func(context.Context, string) (*domain.Device, error) {
		return nil, errors.New("db down")
	}}
	p := NewPushPublisher(devices, &stubNotifier{}, nil, zerolog.Nop())

	event := &domain.OutboxEvent{
		EventType: domain.EventTypeDebtCreated,
		Payload:   map[string]any{"owed_by": "bob@example.com"},
	}
	if err := p.Publish(context.Background(), event); err == nil {
		t.Fatal("expected lookup error")
	}
}

func TestPushPublisherIgnoresUnknownEvent(t *testing.T) {
	notifier := &stubNotifier{}
	p := NewPushPublisher(devicesFor(nil), notifier, nil, zerolog.Nop())

	if err := p.Publish(context.Background(), &domain.OutboxEvent{EventType: "other"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatal("expected no notification")
	}
}
