// Package reducer folds inbound room events into a client view.
package reducer

import "github.com/scythe504/skribblr-sync/internal"

// Reduce returns the view that results from applying ev to view. It never
// mutates view; slices in the result are fresh copies wherever they change.
//
// Round boundaries (game_start, round_end) replace players, word and timer
// wholesale from the server snapshot. The incremental events only keep the
// view fresh between snapshots, so anything they change, including the
// optimistic score bump on a correct guess, is overwritten by the next
// snapshot.
func Reduce(view internal.ClientView, ev internal.Event) internal.ClientView {
	switch e := ev.(type) {
	case internal.GameStartData:
		return applySnapshot(view, e.RoundData)
	case internal.RoundEndData:
		return applySnapshot(view, e.RoundData)
	case internal.TimeUpdateData:
		// Applied verbatim, even when the countdown goes backwards.
		view.TimeRemaining = e.TimeRemaining
		return view
	case internal.PlayerJoinedData:
		return upsertPlayer(view, e.Player)
	case internal.PlayerLeftData:
		return removePlayer(view, e.PlayerID)
	case internal.GuessData:
		if !e.Correct {
			return view
		}
		return applyCorrectGuess(view, e)
	}
	// draw samples are rendering data, not view state
	return view
}

// ReduceAll applies events in order.
func ReduceAll(view internal.ClientView, events ...internal.Event) internal.ClientView {
	for _, ev := range events {
		view = Reduce(view, ev)
	}
	return view
}

func applySnapshot(view internal.ClientView, round internal.RoundData) internal.ClientView {
	view.CurrentWord = round.CurrentWord
	view.Players = internal.ClonePlayers(round.Room.Players)
	view.TimeRemaining = round.Room.TimeRemaining
	if view.LocalPlayer != nil {
		view.LocalPlayer = internal.FindPlayer(view.Players, view.LocalPlayer.ID)
	}
	return view
}

// upsertPlayer replaces an entry with the same id in place, or appends.
func upsertPlayer(view internal.ClientView, p internal.Player) internal.ClientView {
	players := internal.ClonePlayers(view.Players)
	if i := internal.IndexOfPlayer(players, p.ID); i >= 0 {
		players[i] = p
	} else {
		players = append(players, p)
	}
	view.Players = players
	return syncLocal(view, p.ID)
}

func removePlayer(view internal.ClientView, id string) internal.ClientView {
	players := make([]internal.Player, 0, len(view.Players))
	for _, p := range view.Players {
		if p.ID != id {
			players = append(players, p)
		}
	}
	view.Players = players
	return syncLocal(view, id)
}

func applyCorrectGuess(view internal.ClientView, g internal.GuessData) internal.ClientView {
	view.CurrentWord = g.Word
	players := internal.ClonePlayers(view.Players)
	for i := range players {
		if players[i].ID == g.PlayerID {
			players[i].Score++
		}
	}
	view.Players = players
	return syncLocal(view, g.PlayerID)
}

// syncLocal refreshes the local player copy after an incremental change to
// the entry with id, keeping it identical to its roster entry.
func syncLocal(view internal.ClientView, id string) internal.ClientView {
	if view.LocalPlayer == nil || view.LocalPlayer.ID != id {
		return view
	}
	view.LocalPlayer = internal.FindPlayer(view.Players, id)
	return view
}
