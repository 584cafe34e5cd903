package game

import (
	"slices"

	"github.com/scythe504/skribblr-sync/internal"
)

// Standing is one line of a room's leaderboard.
type Standing struct {
	Position int    `json:"position"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// IncrementScore gives a player one point without announcing it. Unknown
// players are ignored.
func (m *Manager) IncrementScore(code, playerID string) error {
	room, err := m.Room(code)
	if err != nil {
		return err
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	i := internal.IndexOfPlayer(room.Players, playerID)
	if i < 0 {
		m.log.Debug().Str("room", code).Str("player_id", playerID).Msg("[IncrementScore] player not in room")
		return nil
	}
	players := internal.ClonePlayers(room.Players)
	players[i].Score++
	room.Players = players
	m.log.Info().Str("room", code).Str("player_id", playerID).Int("score", players[i].Score).Msg("[IncrementScore] score bumped")
	return nil
}

// Leaderboard ranks players by score, highest first. Ties keep join order.
func Leaderboard(players []internal.Player) []Standing {
	out := make([]Standing, 0, len(players))
	for _, p := range players {
		out = append(out, Standing{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	slices.SortStableFunc(out, func(a, b Standing) int {
		return b.Score - a.Score
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
