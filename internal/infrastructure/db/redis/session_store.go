package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/talking/chat-server/internal/core/domain"
)

// SessionStore keeps each user's live token under a single key that expires
// with the token. Key format: session:<uid>
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore whose keys live for ttl.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Replace overwrites the user's session with a single SET.
func (s *SessionStore) Replace(ctx context.Context, uid, token string) error {
	if err := s.client.Set(ctx, sessionKey(uid), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("replace session: %w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *SessionStore) Revoke(ctx context.Context, uid string) error {
	if err := s.client.Del(ctx, sessionKey(uid)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *SessionStore) IsLive(ctx context.Context, uid, token string) (bool, error) {
	stored, err := s.client.Get(ctx, sessionKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session: %w: %v", domain.ErrPersistence, err)
	}
	return stored == token, nil
}

func sessionKey(uid string) string {
	return "session:" + uid
}
