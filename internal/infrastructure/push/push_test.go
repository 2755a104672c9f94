package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestFCMNotifierSendsMessage(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"projects/split/messages/1"}`))
	}))
	defer srv.Close()

	n, err := newFCMNotifier(context.Background(), "split", zerolog.Nop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	err = n.Notify(context.Background(), "device-token", Message{
		Title: "New shopping session",
		Body:  "Ann added you to their shopping session.",
		Data:  map[string]string{"screen": "session"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/projects/split/messages:send", gotPath)
	msg, ok := gotBody["message"].(map[string]any)
	require.True(t, ok, "expected message object, got %v", gotBody)
	assert.Equal(t, "device-token", msg["token"])
	assert.Equal(t, map[string]any{"screen": "session"}, msg["data"])
	notification, ok := msg["notification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "New shopping session", notification["title"])
}

func TestFCMNotifierReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`))
	}))
	defer srv.Close()

	n, err := newFCMNotifier(context.Background(), "split", zerolog.Nop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	err = n.Notify(context.Background(), "stale-token", Message{Title: "x"})
	assert.Error(t, err)
}

func TestNewWithoutProjectIsNop(t *testing.T) {
	n, err := New(context.Background(), Config{}, zerolog.Nop())
	require.NoError(t, err)

	_, ok := n.(NopNotifier)
	assert.True(t, ok)
	assert.NoError(t, n.Notify(context.Background(), "token", Message{Title: "x"}))
}
