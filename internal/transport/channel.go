// Package transport owns the persistent per-room connection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/scythe504/skribblr-sync/internal"
	"github.com/scythe504/skribblr-sync/internal/protocol"
)

type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

var (
	ErrChannelBusy    = errors.New("channel is already connecting or open")
	ErrConnectAborted = errors.New("connect aborted by disconnect")
)

const defaultWriteTimeout = 3 * time.Second

type Handler func(internal.Event)

type Option func(*Channel)

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Channel) { c.writeTimeout = d }
}

// Channel is a single room connection with an explicit lifecycle. It never
// reconnects: once the socket drops it stays closed until Connect is called
// again.
type Channel struct {
	baseURL      string
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	log          zerolog.Logger
	subs         *Registry[internal.Event]

	mu    sync.Mutex
	state State
	gen   uint64
	conn  *websocket.Conn
	room  string

	// gorilla allows one concurrent writer
	writeMu sync.Mutex
}

// NewChannel returns a closed channel that connects to <baseURL>/<room>.
func NewChannel(baseURL string, logger zerolog.Logger, opts ...Option) *Channel {
	c := &Channel{
		baseURL:      strings.TrimRight(baseURL, "/"),
		dialer:       websocket.DefaultDialer,
		writeTimeout: defaultWriteTimeout,
		log:          logger.With().Str("component", "transport").Logger(),
		subs:         NewRegistry[internal.Event](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) URL(room string) string {
	return c.baseURL + "/" + url.PathEscape(room)
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Room returns the room of the current connection, or "" when closed.
func (c *Channel) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// Connect opens the connection for room. The channel must be closed:
// replacing a live connection requires an explicit Disconnect first.
func (c *Channel) Connect(ctx context.Context, room string) error {
	c.mu.Lock()
	if c.state != StateClosed {
		current := c.room
		c.mu.Unlock()
		return fmt.Errorf("%w (room %s)", ErrChannelBusy, current)
	}
	c.gen++
	gen := c.gen
	c.state = StateConnecting
	c.room = room
	c.mu.Unlock()

	c.log.Debug().Str("room", room).Msgf("[Connect] dialing %s", c.URL(room))
	conn, resp, err := c.dialer.DialContext(ctx, c.URL(room), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.state = StateClosed
			c.room = ""
		}
		c.mu.Unlock()
		c.log.Error().Err(err).Str("room", room).Msg("[Connect] dial failed")
		return fmt.Errorf("connect to room %s: %w", room, err)
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		c.mu.Unlock()
		conn.Close()
		c.log.Info().Str("room", room).Msg("[Connect] disconnected while dialing, dropping connection")
		return ErrConnectAborted
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	c.log.Info().Str("room", room).Msg("[Connect] channel open")
	go c.readPump(conn, gen, room)
	return nil
}

// Disconnect closes the active connection, if any. It is safe to call at
// any time and any number of times.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	conn, room := c.conn, c.room
	c.gen++
	c.state = StateClosed
	c.conn = nil
	c.room = ""
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	}
	c.log.Info().Str("room", room).Msg("[Disconnect] channel closed")
}

// Send transmits ev if the channel is open. Frames sent while the channel is
// not open, or that fail to write, are dropped. It reports whether the frame
// was written.
func (c *Channel) Send(ev internal.Event) bool {
	c.mu.Lock()
	conn, open := c.conn, c.state == StateOpen
	c.mu.Unlock()
	if !open {
		c.log.Debug().Str("type", string(frameType(ev))).Msg("[Send] channel not open, dropping frame")
		return false
	}

	payload, err := protocol.Encode(ev)
	if err != nil {
		c.log.Warn().Err(err).Msg("[Send] refusing to send invalid frame")
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Debug().Err(err).Str("type", string(ev.FrameType())).Msg("[Send] write failed, dropping frame")
		return false
	}
	return true
}

// Subscribe registers h for every inbound frame. Frames are delivered in
// arrival order on the channel's reader goroutine.
func (c *Channel) Subscribe(h Handler) (unsubscribe func()) {
	return c.subs.Add(h)
}

func (c *Channel) readPump(conn *websocket.Conn, gen uint64, room string) {
	defer c.readerDone(conn, gen, room)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			switch {
			case !c.current(gen):
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				c.log.Info().Str("room", room).Msg("[readPump] server closed the channel")
			default:
				c.log.Warn().Err(err).Str("room", room).Msg("[readPump] channel error")
			}
			return
		}

		ev, err := protocol.Decode(raw)
		if err != nil {
			c.log.Warn().Err(err).Str("room", room).Msg("[readPump] dropping frame")
			continue
		}
		if !c.current(gen) {
			return
		}
		c.subs.Dispatch(ev)
	}
}

func (c *Channel) readerDone(conn *websocket.Conn, gen uint64, room string) {
	c.mu.Lock()
	if c.gen == gen && c.state == StateOpen {
		c.state = StateClosed
		c.conn = nil
		c.room = ""
		c.log.Info().Str("room", room).Msg("[readPump] connection lost, channel closed")
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Channel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen && c.state == StateOpen
}

func frameType(ev internal.Event) internal.FrameType {
	if ev == nil {
		return ""
	}
	return ev.FrameType()
}
