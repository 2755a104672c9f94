package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]string
	seen  chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{seen: make(chan struct{}, 8)}
}

func (n *recordingNotifier) Notify(_ context.Context, emails []string) {
	n.mu.Lock()
	n.calls = append(n.calls, emails)
	n.mu.Unlock()
	n.seen <- struct{}{}
}

func TestRelayDeliversPublishedSignals(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	local := newRecordingNotifier()
	relay := NewRelay(client, local, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	// Publishing before the subscription is live would be lost.
	deadline := time.Now().Add(2 * time.Second)
	for len(mr.PubSubChannels("")) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relay never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	relay.Notify(ctx, []string{"ann@example.com", "bob@example.com"})

	select {
	case <-local.seen:
	case <-time.After(2 * time.Second):
		t.Fatalf("signal was not relayed")
	}

	local.mu.Lock()
	got := local.calls[0]
	local.mu.Unlock()
	if len(got) != 2 || got[0] != "ann@example.com" || got[1] != "bob@example.com" {
		t.Fatalf("unexpected relayed emails: %v", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("relay stopped with error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not stop on cancel")
	}
}

func TestRelayFallsBackToLocalDelivery(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()
	mr.Close()

	local := newRecordingNotifier()
	relay := NewRelay(client, local, zerolog.Nop())

	relay.Notify(context.Background(), []string{"ann@example.com"})

	select {
	case <-local.seen:
	default:
		t.Fatalf("expected local delivery when redis is down")
	}
}

func TestRelayIgnoresEmptySignals(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	local := newRecordingNotifier()
	NewRelay(client, local, zerolog.Nop()).Notify(context.Background(), nil)

	if len(local.calls) != 0 {
		t.Fatalf("expected no delivery, got %v", local.calls)
	}
}
