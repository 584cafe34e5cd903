package game

import (
	"context"
	"time"

	"github.com/scythe504/skribblr-sync/internal"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// wordTimeout bounds the word bank lookup when a round ends on time.
const wordTimeout = 5 * time.Second

// armTimerLocked replaces the room's round timer. Must be called with
// room.Mu held; the returned timer is run with runRoundTimer once the lock
// is released.
func (m *Manager) armTimerLocked(room *Room) *roundTimer {
	room.stopTimerLocked()
	ctx, cancel := context.WithCancel(context.Background())
	room.timer = &roundTimer{ctx: ctx, cancel: cancel}
	return room.timer
}

// runRoundTimer counts the round down, broadcasting time_update on every
// tick, and starts the next round when the clock reaches zero. It exits as
// soon as the timer is replaced or stopped.
func (m *Manager) runRoundTimer(room *Room, timer *roundTimer) {
	ticker := time.NewTicker(m.settings.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-timer.ctx.Done():
			m.log.Debug().Str("room", room.Code).Msg("[runRoundTimer] timer cancelled")
			return
		case <-ticker.C:
			// --- Critical section ---
			room.Mu.Lock()
			if timer.ctx.Err() != nil {
				room.Mu.Unlock()
				return
			}
			if room.TimeRemaining > 0 {
				room.TimeRemaining--
			}
			remaining := room.TimeRemaining
			room.Mu.Unlock()
			// --- End critical section ---

			// a round that advanced meanwhile has its own clock
			if timer.ctx.Err() != nil {
				return
			}
			m.broadcast(room, internal.TimeUpdateData{TimeRemaining: remaining})

			if remaining == 0 {
				m.log.Info().Str("room", room.Code).Msg("[runRoundTimer] time is up")
				ctx, cancel := context.WithTimeout(timer.ctx, wordTimeout)
				m.startNewRound(ctx, room, timer, rotateDrawer)
				cancel()
				return
			}
		}
	}
}
