package ports

import (
	"context"

	"github.com/talking/chat-server/internal/core/domain"
)

// TokenVerifier checks signature and expiry of a session token.
type TokenVerifier interface {
	Verify(token string) (uid string, ok bool)
}

// Authenticator resolves a REST token to a user id, enforcing both token
// validity and session liveness.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

type AuthService interface {
	Authenticator
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	RenewToken(ctx context.Context, uid string) (string, *domain.User, error)
	Logout(ctx context.Context, uid string) error
}

// UserDirectory serves the read-only user and history routes.
type UserDirectory interface {
	ListUsers(ctx context.Context, uid string, from, limit int) ([]*domain.User, error)
	History(ctx context.Context, uid, peer string, limit int) ([]domain.Message, error)
}
