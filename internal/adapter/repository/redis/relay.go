package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRelayChannel carries refetch signals between server instances.
const DefaultRelayChannel = "cartsplit:realtime"

// LocalNotifier delivers a signal to connections held by this instance.
type LocalNotifier interface {
	Notify(ctx context.Context, emails []string)
}

// Relay implements usecase.Broadcaster over Redis pub/sub so that every
// instance delivers the signal to the connections it holds.
type Relay struct {
	client  *redis.Client
	channel string
	local   LocalNotifier
	logger  zerolog.Logger
}

type relayMessage struct {
	Emails []string `json:"emails"`
}

// NewRelay creates a Relay that hands received signals to local.
func NewRelay(client *redis.Client, local LocalNotifier, logger zerolog.Logger) *Relay {
	return &Relay{
		client:  client,
		channel: DefaultRelayChannel,
		local:   local,
		logger:  logger,
	}
}

// Notify publishes a refetch signal for emails. If publishing fails the
// signal is still delivered locally.
func (r *Relay) Notify(ctx context.Context, emails []string) {
	if len(emails) == 0 {
		return
	}

	payload, err := json.Marshal(relayMessage{Emails: emails})
	if err == nil {
		err = r.client.Publish(ctx, r.channel, payload).Err()
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("realtime relay publish failed, delivering locally")
		r.local.Notify(ctx, emails)
	}
}

// Run subscribes to the relay channel until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before consuming.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	r.logger.Info().Str("channel", r.channel).Msg("realtime relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				r.logger.Warn().Err(err).Msg("dropping malformed realtime message")
				continue
			}
			r.local.Notify(ctx, m.Emails)
		}
	}
}
