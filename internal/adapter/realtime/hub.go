// Package realtime keeps live websocket connections per user and pushes
// refetch signals to them.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

// DefaultPingInterval is how often idle connections are pinged.
const DefaultPingInterval = 5 * time.Second

const (
	writeWait  = 10 * time.Second
	sendBuffer = 8
)

var fetchMessage = []byte(`{"type":"fetch"}`)

// Hub is a registry of one live connection per user. It is safe for
// concurrent use and implements usecase.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	upgrader     websocket.Upgrader
	pingInterval time.Duration
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

type client struct {
	email string
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once
}

// NewHub creates a Hub. A zero pingInterval uses DefaultPingInterval.
func NewHub(pingInterval time.Duration, logger zerolog.Logger, m *metrics.Metrics) *Hub {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &Hub{
		clients:      make(map[string]*client),
		pingInterval: pingInterval,
		logger:       logger,
		metrics:      m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients are mobile apps; browser origin checks do not apply.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and registers the connection under email,
// replacing any previous connection of that user. It returns once the
// connection is registered; reading and writing continue in background.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, email string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		email: email,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)

	return nil
}

// Notify asks every connected user in emails to refetch. Users without a
// live connection are skipped.
func (h *Hub) Notify(_ context.Context, emails []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, email := range emails {
		c, ok := h.clients[email]
		if !ok {
			continue
		}
		select {
		case c.send <- fetchMessage:
			if h.metrics != nil {
				h.metrics.RealtimeSignals.Inc()
			}
		default:
			// A pending signal already asks the client to refetch.
		}
	}
}

// Connected reports whether email has a live connection.
func (h *Hub) Connected(email string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[email]
	return ok
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		h.closeClient(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	previous := h.clients[c.email]
	h.clients[c.email] = c
	h.mu.Unlock()

	if previous != nil {
		h.closeClient(previous)
	} else if h.metrics != nil {
		h.metrics.RealtimeConnections.Inc()
	}

	h.logger.Debug().Str("email", c.email).Msg("websocket connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	current, ok := h.clients[c.email]
	removed := ok && current == c
	if removed {
		delete(h.clients, c.email)
	}
	h.mu.Unlock()

	if removed && h.metrics != nil {
		h.metrics.RealtimeConnections.Dec()
	}
	h.closeClient(c)
}

func (h *Hub) closeClient(c *client) {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
		h.logger.Debug().Str("email", c.email).Msg("websocket disconnected")
	})
}

// writePump is the only writer of c.conn.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	defer h.unregister(c)

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames and drops the connection when no pong
// arrives within two ping intervals.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	pongWait := 2 * h.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
