package ws

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ConnState is the lifecycle of one realtime connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticating
	StateAuthenticated
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is one connection. It is bound to a user id once the handshake
// token verifies.
//
// send is never closed: publishers may still hold the client after it left
// the hub. done signals the pumps to stop and Close is idempotent.
type Client struct {
	id   string
	uid  string
	conn *websocket.Conn
	send chan []byte
	log  zerolog.Logger

	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
	closeCode int
}

func newClient(id string, conn *websocket.Conn, queue int, log zerolog.Logger) *Client {
	if queue <= 0 {
		queue = 256
	}
	c := &Client{
		id:        id,
		conn:      conn,
		send:      make(chan []byte, queue),
		log:       log,
		done:      make(chan struct{}),
		closeCode: websocket.CloseNormalClosure,
	}
	c.setState(StateConnecting)
	return c
}

// bind attaches the verified identity. It must run before the client is
// registered or its pumps start.
func (c *Client) bind(uid string) {
	c.uid = uid
	c.log = c.log.With().Str("uid", uid).Logger()
	c.setState(StateAuthenticated)
}

func (c *Client) ID() string  { return c.id }
func (c *Client) UID() string { return c.uid }

func (c *Client) State() ConnState { return ConnState(c.state.Load()) }

func (c *Client) setState(s ConnState) { c.state.Store(int32(s)) }

// enqueue hands frame to the write pump without blocking. It reports false
// when the client is closing or its queue is full; the frame is then lost.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close asks the write pump to send a close frame with code and hang up.
func (c *Client) Close(code int) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		close(c.done)
	})
}

// readPump delivers every inbound text frame to handle until the peer goes
// away or the connection fails.
func (c *Client) readPump(maxMessageSize int64, handle func([]byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		handle(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug().Err(err).Str("conn", c.id).Msg("write failed")
				c.Close(websocket.CloseAbnormalClosure)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug().Err(err).Str("conn", c.id).Msg("ping failed")
				c.Close(websocket.CloseAbnormalClosure)
				return
			}
		case <-c.done:
			if c.closeCode != websocket.CloseAbnormalClosure {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(c.closeCode, ""),
					time.Now().Add(writeWait))
			}
			return
		}
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Str("conn", c.id).Str("uid", c.uid).Msg("frame exceeded read limit")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		c.log.Debug().Str("conn", c.id).Str("uid", c.uid).Msg("peer disconnected")
	default:
		c.log.Debug().Err(err).Str("conn", c.id).Str("uid", c.uid).Msg("read failed")
	}
}
