package game

import (
	"context"
	"strings"

	"github.com/scythe504/skribblr-sync/internal"
)

// =============================================================================
// GUESS HANDLING
// =============================================================================

// HandleGuess adjudicates a guess. A correct guess scores a point for the
// guesser, is announced with the word and starts the next round; a wrong
// one is announced with correct=false.
func (m *Manager) HandleGuess(ctx context.Context, room *Room, g internal.GuessData) {
	cleaned := strings.TrimSpace(g.Guess)

	// --- Critical section ---
	room.Mu.Lock()
	i := internal.IndexOfPlayer(room.Players, g.PlayerID)
	switch {
	case i < 0:
		room.Mu.Unlock()
		m.log.Debug().Str("room", room.Code).Str("player_id", g.PlayerID).Msg("[HandleGuess] unknown player, ignoring guess")
		return
	case room.CurrentWord == "":
		room.Mu.Unlock()
		m.log.Debug().Str("room", room.Code).Msg("[HandleGuess] no round in progress, ignoring guess")
		return
	case room.Players[i].IsDrawing:
		room.Mu.Unlock()
		m.log.Debug().Str("room", room.Code).Str("player_id", g.PlayerID).Msg("[HandleGuess] drawer cannot guess")
		return
	}

	if !strings.EqualFold(cleaned, room.CurrentWord) {
		room.Mu.Unlock()
		m.log.Debug().Str("room", room.Code).Str("player_id", g.PlayerID).Msgf("[HandleGuess] incorrect guess %q", cleaned)
		m.broadcast(room, internal.GuessData{PlayerID: g.PlayerID, Guess: cleaned})
		return
	}

	players := internal.ClonePlayers(room.Players)
	players[i].Score++
	room.Players = players
	word := room.CurrentWord
	// the round is over for any guess still in flight
	room.CurrentWord = ""
	room.stopTimerLocked()
	score := players[i].Score
	room.Mu.Unlock()
	// --- End critical section ---

	m.log.Info().
		Str("room", room.Code).
		Str("player_id", g.PlayerID).
		Int("score", score).
		Msg("[HandleGuess] correct guess")

	m.broadcast(room, internal.GuessData{PlayerID: g.PlayerID, Correct: true, Word: word})
	m.startNewRound(ctx, room, nil, rotateDrawer)
}
