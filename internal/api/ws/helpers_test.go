package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/talking/chat-server/internal/core/domain"
	"github.com/talking/chat-server/internal/core/service"
)

type presenceEvent struct {
	uid    string
	online bool
}

type recordingPresence struct {
	mu     sync.Mutex
	events []presenceEvent
}

func (p *recordingPresence) MarkOnline(_ context.Context, uid, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, presenceEvent{uid: uid, online: true})
}

func (p *recordingPresence) MarkOffline(_ context.Context, uid, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, presenceEvent{uid: uid, online: false})
}

func (p *recordingPresence) snapshot() []presenceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]presenceEvent(nil), p.events...)
}

func (p *recordingPresence) has(uid string, online bool) bool {
	for _, e := range p.snapshot() {
		if e.uid == uid && e.online == online {
			return true
		}
	}
	return false
}

type memorySessions struct {
	mu   sync.Mutex
	live map[string]string
}

func (s *memorySessions) Replace(_ context.Context, uid, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[uid] = token
	return nil
}

func (s *memorySessions) Revoke(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, uid)
	return nil
}

func (s *memorySessions) IsLive(_ context.Context, uid, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[uid] == token, nil
}

type memoryPersister struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (p *memoryPersister) Persist(msg domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *memoryPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type harness struct {
	srv       *httptest.Server
	hub       *Hub
	issuer    *service.TokenIssuer
	sessions  *memorySessions
	presence  *recordingPresence
	persister *memoryPersister

	mu       sync.Mutex
	accepted []*Client
	rejected map[*Client]ConnState
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	issuer, err := service.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	h := &harness{
		hub:       NewHub(zerolog.Nop()),
		issuer:    issuer,
		sessions:  &memorySessions{live: map[string]string{}},
		presence:  &recordingPresence{},
		persister: &memoryPersister{},
	}
	relay := service.NewRelayService(h.persister, h.hub, zerolog.Nop())
	gw := NewGateway(issuer, h.sessions, h.presence, relay, h.hub, opts, zerolog.Nop())
	h.rejected = make(map[*Client]ConnState)
	gw.onAuthenticated = func(c *Client) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.accepted = append(h.accepted, c)
	}
	gw.onRejected = func(c *Client) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.rejected[c] = c.State()
	}

	h.srv = httptest.NewServer(gw)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.hub.Shutdown(ctx)
		h.srv.Close()
	})
	return h
}

func (h *harness) login(t *testing.T, uid string) string {
	t.Helper()
	token, err := h.issuer.Issue(uid)
	require.NoError(t, err)
	require.NoError(t, h.sessions.Replace(context.Background(), uid, token))
	return token
}

func (h *harness) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set(TokenHeader, token)
	}
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// connect dials as uid and waits until the gateway has marked it online.
func (h *harness) connect(t *testing.T, uid string) *websocket.Conn {
	t.Helper()
	conn := h.dial(t, h.login(t, uid))
	eventually(t, func() bool { return h.presence.has(uid, true) })
	return conn
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", raw)
}

func expectPolicyClose(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "no event may be sent before the close, got %s", raw)

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	require.Empty(t, closeErr.Text)
}

func (h *harness) acceptedClients() []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Client(nil), h.accepted...)
}

func (h *harness) rejectedClients() map[*Client]ConnState {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[*Client]ConnState, len(h.rejected))
	for c, s := range h.rejected {
		out[c] = s
	}
	return out
}
