package game

import (
	"context"

	"github.com/scythe504/skribblr-sync/internal"
	"github.com/scythe504/skribblr-sync/internal/words"
)

// =============================================================================
// GAME FLOW - ROUNDS
// =============================================================================

// NextRound ends the current round and starts the next one.
func (m *Manager) NextRound(ctx context.Context, code string) error {
	room, err := m.Room(code)
	if err != nil {
		return err
	}
	m.startNewRound(ctx, room, nil, rotateDrawer)
	return nil
}

// rotateDrawer passes the pen to the player after the current drawer.
const rotateDrawer = -1

// startNewRound picks a word, hands the pen to the next player in join
// order, resets the clock and broadcasts the new round as round_end.
//
// A timer that expired passes itself as expect; the round only advances if
// that timer is still the room's current one. nextDrawer is the index of
// the new drawer, or rotateDrawer.
func (m *Manager) startNewRound(ctx context.Context, room *Room, expect *roundTimer, nextDrawer int) {
	word := m.pickWord(ctx)

	// --- Critical section ---
	room.Mu.Lock()
	if room.closed || len(room.Players) == 0 {
		room.Mu.Unlock()
		m.log.Debug().Str("room", room.Code).Msg("[startNewRound] room closed or empty, no round")
		return
	}
	if expect != nil && room.timer != expect {
		room.Mu.Unlock()
		m.log.Debug().Str("room", room.Code).Msg("[startNewRound] round already advanced, dropping expired timer")
		return
	}
	room.stopTimerLocked()

	next := nextDrawer
	if next < 0 {
		current := -1
		for i, p := range room.Players {
			if p.IsDrawing {
				current = i
				break
			}
		}
		next = current + 1
	}
	next %= len(room.Players)

	players := internal.ClonePlayers(room.Players)
	for i := range players {
		players[i].IsDrawing = i == next
	}
	room.Players = players
	room.CurrentWord = word
	room.CurrentRound++
	room.TimeRemaining = m.roundSeconds()

	snap := room.snapshotLocked()
	timer := m.armTimerLocked(room)
	room.Mu.Unlock()
	// --- End critical section ---

	m.log.Info().
		Str("room", room.Code).
		Int("round", snap.CurrentRound).
		Str("drawer", players[next].Name).
		Str("word", word).
		Msg("[startNewRound] new round")

	m.broadcast(room, internal.RoundEndData{RoundData: internal.RoundData{
		Room:        snap,
		CurrentWord: word,
	}})
	go m.runRoundTimer(room, timer)
}

// pickWord loads the bank without holding rngMu; a slow bank must not
// stall room creation or other rooms' rounds.
func (m *Manager) pickWord(ctx context.Context) string {
	word, err := words.Pick(ctx, m.words, m.intn)
	if err != nil {
		m.log.Warn().Err(err).Msg("[pickWord] word bank unavailable, using built-in words")
		word, _ = words.Pick(ctx, words.Builtin(), m.intn)
	}
	return word
}

func (m *Manager) intn(n int) int {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Intn(n)
}
