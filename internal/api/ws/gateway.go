package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/talking/chat-server/internal/api/metrics"
	"github.com/talking/chat-server/internal/core/domain"
	"github.com/talking/chat-server/internal/core/ports"
)

// TokenHeader carries the session token on the handshake. Browsers that
// cannot set headers on a websocket pass it as a query parameter instead.
const TokenHeader = "x-token"

const (
	defaultMaxMessageSize = 64 << 10
	defaultRateBurst      = 20
	defaultRateInterval   = 100 * time.Millisecond
)

// Options tunes the gateway. Zero values fall back to defaults.
type Options struct {
	// RequireLiveSession also checks the session store at handshake, so a
	// superseded or logged-out token cannot open a connection.
	RequireLiveSession bool
	AllowedOrigins     []string
	MaxMessageSize     int64
	RateBurst          int
	RateInterval       time.Duration
	SendQueue          int
}

// Gateway authenticates realtime connections on the chat namespace and
// dispatches their events to the relay.
type Gateway struct {
	tokens   ports.TokenVerifier
	sessions ports.SessionRepository
	presence ports.PresenceTracker
	relay    ports.MessageRelay
	hub      *Hub
	opts     Options
	upgrader websocket.Upgrader
	log      zerolog.Logger

	// Test hooks observing the handshake outcome.
	onAuthenticated func(*Client)
	onRejected      func(*Client)
}

func NewGateway(
	tokens ports.TokenVerifier,
	sessions ports.SessionRepository,
	presence ports.PresenceTracker,
	relay ports.MessageRelay,
	hub *Hub,
	opts Options,
	log zerolog.Logger,
) *Gateway {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = defaultRateBurst
	}
	if opts.RateInterval <= 0 {
		opts.RateInterval = defaultRateInterval
	}

	origins := newOriginPolicy(opts.AllowedOrigins)
	return &Gateway{
		tokens:   tokens,
		sessions: sessions,
		presence: presence,
		relay:    relay,
		hub:      hub,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if origins.check(r) {
					return true
				}
				log.Warn().Str("origin", r.Header.Get("Origin")).Msg("blocked realtime connection from disallowed origin")
				return false
			},
		},
		log: log,
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
// A handshake that fails authentication is closed with 1008 and no payload.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	client := newClient(uuid.NewString(), conn, g.opts.SendQueue, g.log)

	// Store calls made for this connection outlive the request.
	ctx := context.WithoutCancel(r.Context())

	client.setState(StateAuthenticating)
	uid, reason := g.authenticate(ctx, tokenFrom(r))
	if reason != "" {
		g.reject(client, reason)
		return
	}

	client.bind(uid)
	if err := g.hub.Register(client); err != nil {
		g.reject(client, "shutting_down")
		return
	}
	if g.onAuthenticated != nil {
		g.onAuthenticated(client)
	}

	g.presence.MarkOnline(ctx, uid, client.id)
	metrics.ConnectionsActive.Inc()
	g.log.Info().Str("uid", uid).Str("conn", client.id).Msg("realtime connection opened")

	go client.writePump()

	limiter := newRateLimiter(g.opts.RateBurst, g.opts.RateInterval)
	client.readPump(g.opts.MaxMessageSize, func(raw []byte) {
		if !limiter.allow() {
			metrics.EventsReceivedTotal.WithLabelValues("any", "dropped").Inc()
			client.log.Debug().Str("conn", client.id).Msg("rate limit exceeded, event dropped")
			return
		}
		g.dispatch(ctx, client, raw)
	})

	client.Close(websocket.CloseNormalClosure)
	g.hub.Unregister(client)
	g.presence.MarkOffline(ctx, uid, client.id)
	client.setState(StateClosed)
	metrics.ConnectionsActive.Dec()
	g.log.Info().Str("uid", uid).Str("conn", client.id).Msg("realtime connection closed")
}

// authenticate returns the bound uid or a non-empty rejection reason.
func (g *Gateway) authenticate(ctx context.Context, token string) (string, string) {
	if token == "" {
		return "", "missing_token"
	}
	uid, ok := g.tokens.Verify(token)
	if !ok {
		return "", "invalid_token"
	}
	if !g.opts.RequireLiveSession {
		return uid, ""
	}

	live, err := g.sessions.IsLive(ctx, uid, token)
	if err != nil {
		g.log.Error().Err(err).Str("uid", uid).Msg("session check failed")
		return "", "session_check_failed"
	}
	if !live {
		return "", "session_not_live"
	}
	return uid, ""
}

func (g *Gateway) reject(c *Client, reason string) {
	metrics.ConnectionsRejectedTotal.WithLabelValues(reason).Inc()
	g.log.Info().Str("reason", reason).Str("state", c.State().String()).Str("remote", c.conn.RemoteAddr().String()).Msg("realtime handshake rejected")

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""),
		time.Now().Add(writeWait))
	_ = c.conn.Close()
	if g.onRejected != nil {
		g.onRejected(c)
	}
	c.setState(StateClosed)
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		metrics.EventsReceivedTotal.WithLabelValues("unknown", "rejected").Inc()
		c.log.Debug().Str("conn", c.id).Msg("malformed frame ignored")
		return
	}

	switch env.Event {
	case ports.EventPersonalMessage:
		var p personalPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			metrics.EventsReceivedTotal.WithLabelValues(env.Event, "rejected").Inc()
			return
		}
		if err := g.relay.SendPersonal(ctx, c.uid, p.input()); err != nil {
			metrics.EventsReceivedTotal.WithLabelValues(env.Event, "rejected").Inc()
			if !errors.Is(err, domain.ErrSenderMismatch) && !errors.Is(err, domain.ErrValidation) {
				c.log.Error().Err(err).Str("conn", c.id).Msg("personal message failed")
			}
			return
		}
		metrics.EventsReceivedTotal.WithLabelValues(env.Event, "relayed").Inc()

	case ports.EventSendMessage:
		payload, err := broadcastPayload(env.Data)
		if err != nil {
			metrics.EventsReceivedTotal.WithLabelValues(env.Event, "rejected").Inc()
			return
		}
		g.relay.Broadcast(c.id, payload)
		metrics.EventsReceivedTotal.WithLabelValues(env.Event, "relayed").Inc()

	default:
		metrics.EventsReceivedTotal.WithLabelValues("unknown", "rejected").Inc()
		c.log.Debug().Str("conn", c.id).Str("event", env.Event).Msg("unknown event ignored")
	}
}

func tokenFrom(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get(TokenHeader))
}
