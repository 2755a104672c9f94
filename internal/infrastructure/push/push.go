// Package push delivers notifications to mobile devices through Firebase
// Cloud Messaging.
package push

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"
)

const messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// Message is a notification shown on the device plus the data the app uses
// to pick a screen.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier sends a message to one device registration token.
type Notifier interface {
	Notify(ctx context.Context, deviceToken string, msg Message) error
}

// Config holds FCM settings. An empty ProjectID disables delivery.
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// New returns an FCM notifier, or a logging no-op when cfg has no project.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Notifier, error) {
	if cfg.ProjectID == "" {
		logger.Info().Msg("push notifications disabled: no FCM project configured")
		return NopNotifier{logger: logger}, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else {
		creds, err := google.FindDefaultCredentials(ctx, messagingScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find FCM credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	return newFCMNotifier(ctx, cfg.ProjectID, logger, opts...)
}

// FCMNotifier sends messages with the FCM HTTP v1 API.
type FCMNotifier struct {
	service *fcm.Service
	parent  string
	logger  zerolog.Logger
}

func newFCMNotifier(ctx context.Context, projectID string, logger zerolog.Logger, opts ...option.ClientOption) (*FCMNotifier, error) {
	service, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create FCM service: %w", err)
	}

	return &FCMNotifier{
		service: service,
		parent:  "projects/" + projectID,
		logger:  logger,
	}, nil
}

// Notify implements Notifier.
func (n *FCMNotifier) Notify(ctx context.Context, deviceToken string, msg Message) error {
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: deviceToken,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}

	resp, err := n.service.Projects.Messages.Send(n.parent, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}

	n.logger.Debug().Str("message", resp.Name).Msg("push notification sent")
	return nil
}

// NopNotifier only logs messages.
type NopNotifier struct {
	logger zerolog.Logger
}

// Notify implements Notifier.
func (n NopNotifier) Notify(_ context.Context, _ string, msg Message) error {
	n.logger.Debug().Str("title", msg.Title).Msg("push notification skipped")
	return nil
}
