package game

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/scythe504/skribblr-sync/internal"
)

// =============================================================================
// GAME FLOW - LOBBY (join, leave, start)
// =============================================================================

// Join adds a player named name to the room and announces it to everyone
// connected.
func (m *Manager) Join(code, name string) (internal.Player, error) {
	room, err := m.Room(code)
	if err != nil {
		return internal.Player{}, err
	}

	// --- Critical section ---
	room.Mu.Lock()
	if room.closed {
		room.Mu.Unlock()
		return internal.Player{}, ErrRoomNotFound
	}
	if len(room.Players) >= m.settings.MaxPlayers {
		count := len(room.Players)
		room.Mu.Unlock()
		m.log.Info().Str("room", code).Int("players", count).Msg("[Join] room is full")
		return internal.Player{}, ErrRoomFull
	}

	player := internal.Player{ID: uuid.NewString(), Name: name}
	room.Players = append(room.Players, player)
	count := len(room.Players)
	room.Mu.Unlock()
	// --- End critical section ---

	m.log.Info().
		Str("room", code).
		Str("player_id", player.ID).
		Str("name", name).
		Int("players", count).
		Msg("[Join] player joined")

	m.broadcast(room, internal.PlayerJoinedData{Player: player})
	return player, nil
}

// Leave removes a player. Leaving with an unknown id is not an error. The
// room is deleted once its last player leaves.
func (m *Manager) Leave(ctx context.Context, code, playerID string) error {
	room, err := m.Room(code)
	if err != nil {
		return err
	}

	// --- Critical section ---
	room.Mu.Lock()
	i := internal.IndexOfPlayer(room.Players, playerID)
	if i < 0 {
		room.Mu.Unlock()
		m.log.Debug().Str("room", code).Str("player_id", playerID).Msg("[Leave] player not in room")
		return nil
	}
	wasDrawer := room.Players[i].IsDrawing
	room.Players = slices.DeleteFunc(internal.ClonePlayers(room.Players), func(p internal.Player) bool {
		return p.ID == playerID
	})
	remaining := len(room.Players)
	inRound := room.CurrentWord != ""
	if inRound && wasDrawer {
		room.stopTimerLocked()
	}
	room.Mu.Unlock()
	// --- End critical section ---

	m.log.Info().
		Str("room", code).
		Str("player_id", playerID).
		Int("remaining", remaining).
		Bool("was_drawer", wasDrawer).
		Msg("[Leave] player left")

	m.broadcast(room, internal.PlayerLeftData{PlayerID: playerID})

	switch {
	case remaining == 0:
		m.mu.Lock()
		if m.rooms[code] == room {
			delete(m.rooms, code)
		}
		m.mu.Unlock()
		m.log.Info().Str("room", code).Msg("[Leave] room is empty, cleaning up")
		m.cleanupRoom(room)
	case inRound && remaining < m.settings.MinPlayers:
		m.resetRoomToLobby(room)
	case inRound && wasDrawer:
		// the player after the drawer now sits at the drawer's old index
		m.startNewRound(ctx, room, nil, i)
	}
	return nil
}

// StartGame starts the first round. Everyone connected receives the
// round_end that opens the round, then game_start.
func (m *Manager) StartGame(ctx context.Context, code string) error {
	room, err := m.Room(code)
	if err != nil {
		return err
	}

	room.Mu.RLock()
	count := len(room.Players)
	room.Mu.RUnlock()
	if count < m.settings.MinPlayers {
		m.log.Info().Str("room", code).Int("players", count).Msg("[StartGame] not enough players")
		return ErrNotEnoughPlayers
	}

	m.startNewRound(ctx, room, nil, rotateDrawer)

	room.Mu.RLock()
	snap := room.snapshotLocked()
	room.Mu.RUnlock()

	m.log.Info().Str("room", code).Int("round", snap.CurrentRound).Msg("[StartGame] game started")
	m.broadcast(room, internal.GameStartData{RoundData: internal.RoundData{
		Room:        snap,
		CurrentWord: snap.CurrentWord,
	}})
	return nil
}

// resetRoomToLobby ends the current round without starting another.
func (m *Manager) resetRoomToLobby(room *Room) {
	room.Mu.Lock()
	room.stopTimerLocked()
	room.CurrentWord = ""
	room.TimeRemaining = m.roundSeconds()
	players := internal.ClonePlayers(room.Players)
	for i := range players {
		players[i].IsDrawing = false
	}
	room.Players = players
	snap := room.snapshotLocked()
	room.Mu.Unlock()

	m.log.Info().Str("room", room.Code).Msg("[resetRoomToLobby] too few players, back to lobby")
	m.broadcast(room, internal.RoundEndData{RoundData: internal.RoundData{Room: snap}})
}
