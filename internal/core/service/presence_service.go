package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/talking/chat-server/internal/core/ports"
)

// userPresence holds the live connections of one user. mu serialises the
// user's transitions, including the store write.
type userPresence struct {
	mu    sync.Mutex
	conns map[string]struct{}
}

// PresenceService maintains the online flag from a per-user set of live
// connection ids. The flag is written only when the first connection opens
// and when the last one closes.
type PresenceService struct {
	users ports.UserRepository
	log   zerolog.Logger

	mu     sync.Mutex
	byUser map[string]*userPresence
}

func NewPresenceService(users ports.UserRepository, log zerolog.Logger) *PresenceService {
	return &PresenceService{
		users:  users,
		log:    log,
		byUser: make(map[string]*userPresence),
	}
}

// MarkOnline registers connID for uid and persists Online=true when it is
// the user's first live connection.
func (s *PresenceService) MarkOnline(ctx context.Context, uid, connID string) {
	p := s.lock(uid)
	defer p.mu.Unlock()

	if _, dup := p.conns[connID]; dup {
		return
	}
	p.conns[connID] = struct{}{}
	if len(p.conns) > 1 {
		s.log.Debug().Str("uid", uid).Int("connections", len(p.conns)).Msg("additional connection")
		return
	}

	if err := s.users.SetOnline(ctx, uid, true); err != nil {
		s.log.Error().Err(err).Str("uid", uid).Msg("mark online failed")
		return
	}
	s.log.Info().Str("uid", uid).Msg("user online")
}

// MarkOffline forgets connID and persists Online=false once no connection
// of the user remains.
func (s *PresenceService) MarkOffline(ctx context.Context, uid, connID string) {
	p := s.lock(uid)
	defer p.mu.Unlock()

	if _, ok := p.conns[connID]; !ok {
		if len(p.conns) == 0 {
			s.release(uid, p)
		}
		return
	}
	delete(p.conns, connID)
	if len(p.conns) > 0 {
		s.log.Debug().Str("uid", uid).Int("connections", len(p.conns)).Msg("connection closed, user still online")
		return
	}

	s.release(uid, p)

	if err := s.users.SetOnline(ctx, uid, false); err != nil {
		s.log.Error().Err(err).Str("uid", uid).Msg("mark offline failed")
		return
	}
	s.log.Info().Str("uid", uid).Msg("user offline")
}

// Connections reports how many live connections uid currently has.
func (s *PresenceService) Connections(uid string) int {
	s.mu.Lock()
	p, ok := s.byUser[uid]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// lock returns the locked, current entry of uid. An entry released by a
// concurrent MarkOffline is skipped so no connection lands on an orphan.
func (s *PresenceService) lock(uid string) *userPresence {
	for {
		p := s.entry(uid)
		p.mu.Lock()
		s.mu.Lock()
		current := s.byUser[uid] == p
		s.mu.Unlock()
		if current {
			return p
		}
		p.mu.Unlock()
	}
}

func (s *PresenceService) entry(uid string) *userPresence {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byUser[uid]
	if !ok {
		p = &userPresence{conns: make(map[string]struct{})}
		s.byUser[uid] = p
	}
	return p
}

// release drops the entry of a user with no connections. Caller holds p.mu.
func (s *PresenceService) release(uid string, p *userPresence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byUser[uid] == p {
		delete(s.byUser, uid)
	}
}
