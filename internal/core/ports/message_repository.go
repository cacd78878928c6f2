package ports

import (
	"context"

	"github.com/talking/chat-server/internal/core/domain"
)

// MessageRepository is the durable, time-limited message log.
type MessageRepository interface {
	Append(ctx context.Context, msg *domain.Message) error
	// Recent returns at most limit messages exchanged between a and b,
	// newest first.
	Recent(ctx context.Context, a, b string, limit int) ([]domain.Message, error)
}
