package game

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/scythe504/skribblr-sync/internal"
	"github.com/scythe504/skribblr-sync/internal/protocol"
)

// CloseRoomNotFound is the close code sent when a client connects to a room
// that does not exist.
const CloseRoomNotFound = 4004

const writeWait = 5 * time.Second

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// Conn is one client connection to a room.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	limiter *rate.Limiter
}

// SafeWrite writes one text frame. gorilla allows a single concurrent
// writer, so every write goes through writeMu.
func (c *Conn) SafeWrite(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Conn) close(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.ws.Close()
}

// ServeRoom upgrades the request to the room's realtime channel. Unknown
// rooms are accepted and immediately closed with CloseRoomNotFound.
func (m *Manager) ServeRoom(w http.ResponseWriter, r *http.Request, code string) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warn().Err(err).Str("room", code).Msg("[ServeRoom] upgrade failed")
		return
	}
	conn := &Conn{
		ws:      ws,
		limiter: rate.NewLimiter(rate.Limit(m.settings.GuessRate), m.settings.GuessBurst),
	}

	room, err := m.Room(code)
	if err == nil {
		room.Mu.Lock()
		if room.closed {
			err = ErrRoomNotFound
		} else {
			room.conns[conn] = struct{}{}
		}
		room.Mu.Unlock()
	}
	if err != nil {
		m.log.Info().Str("room", code).Msg("[ServeRoom] unknown room, closing connection")
		conn.close(CloseRoomNotFound, "room not found")
		return
	}

	m.log.Info().Str("room", code).Str("remote", r.RemoteAddr).Msg("[ServeRoom] connection opened")
	go m.handleMessages(room, conn)
}

// handleMessages reads frames until the connection drops. Malformed frames
// are logged and skipped.
func (m *Manager) handleMessages(room *Room, conn *Conn) {
	defer func() {
		room.Mu.Lock()
		delete(room.conns, conn)
		room.Mu.Unlock()
		conn.ws.Close()
		m.log.Info().Str("room", room.Code).Msg("[handleMessages] connection closed")
	}()

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.log.Warn().Err(err).Str("room", room.Code).Msg("[handleMessages] read error")
			}
			return
		}

		ev, err := protocol.Decode(raw)
		if err != nil {
			m.log.Warn().Err(err).Str("room", room.Code).Msg("[handleMessages] dropping frame")
			continue
		}

		switch e := ev.(type) {
		case internal.DrawData:
			m.HandleDraw(room, conn, e)
		case internal.GuessData:
			if !conn.limiter.Allow() {
				m.log.Warn().Str("room", room.Code).Str("player_id", e.PlayerID).Msg("[handleMessages] guess rate exceeded, dropping guess")
				continue
			}
			m.HandleGuess(context.Background(), room, e)
		default:
			m.log.Debug().Str("room", room.Code).Str("type", string(ev.FrameType())).Msg("[handleMessages] clients may not send this frame")
		}
	}
}
