package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/talking/chat-server/internal/api/metrics"
)

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("hub is shut down")

// Hub is the chat namespace: every live connection plus the registry of
// private channels. Publishing never blocks on a slow connection.
type Hub struct {
	log zerolog.Logger

	mu       sync.RWMutex
	all      *channel
	channels map[string]*channel
	closed   bool
	wg       sync.WaitGroup
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:      log,
		all:      newChannel(""),
		channels: make(map[string]*channel),
	}
}

// Register adds c to the namespace and joins it to the private channel of
// its user.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}

	h.all.join(c)
	ch, ok := h.channels[c.uid]
	if !ok {
		ch = newChannel(c.uid)
		h.channels[c.uid] = ch
	}
	ch.join(c)
	h.wg.Add(1)
	return nil
}

// Unregister removes c from its channel and the namespace. Unknown clients
// are ignored.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all.mu.RLock()
	_, known := h.all.members[c.id]
	h.all.mu.RUnlock()
	if !known {
		return
	}

	h.all.leave(c)
	if ch, ok := h.channels[c.uid]; ok && ch.leave(c) {
		delete(h.channels, c.uid)
	}
	h.wg.Done()
}

// PublishTo sends event to every connection of channel name.
func (h *Hub) PublishTo(name, event string, data any) int {
	h.mu.RLock()
	ch, ok := h.channels[name]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return h.publish(ch, event, data)
}

// PublishAll sends event to every connection of the namespace.
func (h *Hub) PublishAll(event string, data any) int {
	return h.publish(h.all, event, data)
}

func (h *Hub) publish(ch *channel, event string, data any) int {
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("encode event failed")
		return 0
	}

	queued, dropped := ch.publish(frame)
	metrics.DeliveriesTotal.WithLabelValues("queued").Add(float64(queued))
	if dropped > 0 {
		metrics.DeliveriesTotal.WithLabelValues("dropped").Add(float64(dropped))
		h.log.Warn().Str("event", event).Str("channel", ch.name).Int("dropped", dropped).Msg("send queue full, frames dropped")
	}
	return queued
}

// Connections reports the number of live connections in the namespace.
func (h *Hub) Connections() int {
	h.all.mu.RLock()
	defer h.all.mu.RUnlock()
	return len(h.all.members)
}

// Shutdown refuses new connections, asks every client to go away and waits
// until all of them have unregistered or ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.all.mu.RLock()
	clients := make([]*Client, 0, len(h.all.members))
	for _, c := range h.all.members {
		clients = append(clients, c)
	}
	h.all.mu.RUnlock()
	h.mu.Unlock()

	for _, c := range clients {
		c.Close(websocket.CloseGoingAway)
	}
	h.log.Info().Int("connections", len(clients)).Msg("closing realtime connections")

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
