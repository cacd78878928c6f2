package service

import (
	"context"

	"github.com/talking/chat-server/internal/core/domain"
	"github.com/talking/chat-server/internal/core/ports"
)

const (
	defaultUserPage    = 10
	maxUserPage        = 100
	DefaultHistorySize = 30
	maxHistorySize     = 100
)

// UserService serves the user list and the per-conversation history.
type UserService struct {
	users    ports.UserRepository
	messages ports.MessageRepository
}

func NewUserService(users ports.UserRepository, messages ports.MessageRepository) *UserService {
	return &UserService{users: users, messages: messages}
}

// ListUsers returns a page of users other than uid, online users first.
func (s *UserService) ListUsers(ctx context.Context, uid string, from, limit int) ([]*domain.User, error) {
	if from < 0 {
		from = 0
	}
	if limit <= 0 {
		limit = defaultUserPage
	}
	if limit > maxUserPage {
		limit = maxUserPage
	}
	return s.users.List(ctx, uid, from, limit)
}

// History returns the most recent messages between uid and peer, newest first.
func (s *UserService) History(ctx context.Context, uid, peer string, limit int) ([]domain.Message, error) {
	if peer == "" {
		return nil, domain.ErrValidation
	}
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	if limit > maxHistorySize {
		limit = maxHistorySize
	}
	return s.messages.Recent(ctx, uid, peer, limit)
}
