package service

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/talking/chat-server/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs shared by the service tests.
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	onlineLog []string
	setErr    error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	created := cloneUser(user)
	if created.ID == "" {
		created.ID = "u" + strconv.Itoa(len(r.users)+1)
	}
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetOnline(_ context.Context, id string, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Online = online
	state := "offline"
	if online {
		state = "online"
	}
	r.onlineLog = append(r.onlineLog, id+":"+state)
	return nil
}

func (r *stubUserRepo) List(_ context.Context, excludeID string, from, limit int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.ID != excludeID {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if from >= len(out) {
		return nil, nil
	}
	out = out[from:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubUserRepo) online(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return ok && u.Online
}

func (r *stubUserRepo) writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.onlineLog...)
}

// stubSessionRepo keeps one record per user; Replace is atomic under mu,
// mirroring the upsert of the real stores.
type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]string
	err      error
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]string)}
}

func (r *stubSessionRepo) Replace(_ context.Context, uid, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sessions[uid] = token
	return nil
}

func (r *stubSessionRepo) Revoke(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.sessions, uid)
	return nil
}

func (r *stubSessionRepo) IsLive(_ context.Context, uid, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	return r.sessions[uid] == token, nil
}

func (r *stubSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type stubMessageRepo struct {
	recent    []domain.Message
	lastLimit int
}

func (r *stubMessageRepo) Append(_ context.Context, _ *domain.Message) error { return nil }

func (r *stubMessageRepo) Recent(_ context.Context, _, _ string, limit int) ([]domain.Message, error) {
	r.lastLimit = limit
	return r.recent, nil
}

type recordingPersister struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (p *recordingPersister) Persist(msg domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

type published struct {
	channel string
	event   string
	data    any
}

type recordingPublisher struct {
	mu        sync.Mutex
	direct    []published
	broadcast []published
}

func (p *recordingPublisher) PublishTo(channel, event string, data any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.direct = append(p.direct, published{channel: channel, event: event, data: data})
	return 1
}

func (p *recordingPublisher) PublishAll(event string, data any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcast = append(p.broadcast, published{event: event, data: data})
	return 1
}
