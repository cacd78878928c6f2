package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/talking/chat-server/internal/core/domain"
	"github.com/talking/chat-server/internal/core/ports"
)

// AuthService implements login, token renewal, logout and REST token
// authentication on top of the token issuer and the session store.
type AuthService struct {
	users      ports.UserRepository
	sessions   ports.SessionRepository
	tokens     *TokenIssuer
	autoVerify bool
	log        zerolog.Logger
}

// AuthOptions carries the optional knobs of NewAuthService.
type AuthOptions struct {
	// AutoVerify marks newly registered users as verified. The email
	// verification workflow is external; this is for development setups.
	AutoVerify bool
}

func NewAuthService(users ports.UserRepository, sessions ports.SessionRepository, tokens *TokenIssuer, opts AuthOptions, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		autoVerify: opts.AutoVerify,
		log:        log,
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return nil, domain.ErrValidation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Verified:     s.autoVerify,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// VerifyCredentials resolves email and password to a user. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, domain.ErrAccountNotVerified
	}
	return user, nil
}

// Login verifies credentials, issues a token and makes it the user's only
// live session.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.startSession(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Str("uid", user.ID).Msg("user logged in")
	return token, user, nil
}

// RenewToken issues a fresh token for an already authenticated user and
// supersedes the current session with it.
func (s *AuthService) RenewToken(ctx context.Context, uid string) (string, *domain.User, error) {
	if uid == "" {
		return "", nil, domain.ErrValidation
	}

	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return "", nil, err
	}

	token, err := s.startSession(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Logout(ctx context.Context, uid string) error {
	if err := s.sessions.Revoke(ctx, uid); err != nil {
		return err
	}
	s.log.Info().Str("uid", uid).Msg("user logged out")
	return nil
}

// Authenticate accepts a token only when its signature is valid, it has not
// expired and it is still the user's live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	uid, ok := s.tokens.Verify(token)
	if !ok {
		return "", domain.ErrInvalidToken
	}

	live, err := s.sessions.IsLive(ctx, uid, token)
	if err != nil {
		return "", err
	}
	if !live {
		return "", domain.ErrSessionRevoked
	}
	return uid, nil
}

func (s *AuthService) startSession(ctx context.Context, uid string) (string, error) {
	token, err := s.tokens.Issue(uid)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	if err := s.sessions.Replace(ctx, uid, token); err != nil {
		return "", err
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
