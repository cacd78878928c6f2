package ports

import (
	"context"

	"github.com/talking/chat-server/internal/core/domain"
)

// UserRepository is the slice of the profile store the core depends on.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// SetOnline persists the presence flag. Returns domain.ErrUserNotFound
	// when no user matches id.
	SetOnline(ctx context.Context, id string, online bool) error
	// List returns users other than excludeID, online users first.
	List(ctx context.Context, excludeID string, from, limit int) ([]*domain.User, error)
}
