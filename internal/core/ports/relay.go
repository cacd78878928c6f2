package ports

import (
	"context"

	"github.com/talking/chat-server/internal/core/domain"
)

// Realtime event names shared by the relay and the websocket transport.
const (
	EventPersonalMessage = "personal-message"
	EventSendMessage     = "send-message"
	EventSendResponse    = "send-response"
)

// PersonalMessageInput is the client-supplied payload of a personal-message event.
type PersonalMessageInput struct {
	From string
	To   string
	Text string
}

// ChannelPublisher delivers events to connected clients.
type ChannelPublisher interface {
	// PublishTo delivers to every connection subscribed to channel and
	// returns how many accepted it.
	PublishTo(channel, event string, data any) int
	// PublishAll delivers to every connection in the namespace.
	PublishAll(event string, data any) int
}

// MessagePersister accepts a message for best-effort durable storage.
// Failures are handled by the implementation and never reach the caller.
type MessagePersister interface {
	Persist(msg domain.Message)
}

// MessageRelay routes realtime events between connections.
type MessageRelay interface {
	SendPersonal(ctx context.Context, boundUID string, in PersonalMessageInput) error
	Broadcast(connID string, payload map[string]any) int
}
