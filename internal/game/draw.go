package game

import (
	"github.com/scythe504/skribblr-sync/internal"
	"github.com/scythe504/skribblr-sync/internal/protocol"
)

// =============================================================================
// DRAWING SYSTEM
// =============================================================================

// HandleDraw relays a stroke sample to everyone in the room but its sender.
// Samples outside the logical canvas are dropped.
func (m *Manager) HandleDraw(room *Room, from *Conn, d internal.DrawData) {
	if !internal.InCanvas(d.X, d.Y) {
		m.log.Debug().Str("room", room.Code).Float64("x", d.X).Float64("y", d.Y).Msg("[HandleDraw] sample out of bounds")
		return
	}
	m.broadcastExcept(room, d, from)
}

// =============================================================================
// BROADCASTING & MESSAGING
// =============================================================================

func (m *Manager) broadcast(room *Room, ev internal.Event) {
	m.broadcastExcept(room, ev, nil)
}

// broadcastExcept encodes ev once and writes it to every connection of the
// room except exclude. Connections are snapshotted under the lock and
// written to without it.
func (m *Manager) broadcastExcept(room *Room, ev internal.Event, exclude *Conn) {
	payload, err := protocol.Encode(ev)
	if err != nil {
		m.log.Error().Err(err).Str("room", room.Code).Msg("[broadcast] refusing to send invalid frame")
		return
	}

	room.Mu.RLock()
	conns := make([]*Conn, 0, len(room.conns))
	for c := range room.conns {
		if c != exclude {
			conns = append(conns, c)
		}
	}
	room.Mu.RUnlock()

	sent := 0
	for _, c := range conns {
		if err := c.SafeWrite(payload); err != nil {
			m.log.Debug().Err(err).Str("room", room.Code).Msg("[broadcast] write failed")
			continue
		}
		sent++
	}
	m.log.Debug().
		Str("room", room.Code).
		Str("type", string(ev.FrameType())).
		Msgf("[broadcast] sent to %d/%d connections", sent, len(conns))
}
