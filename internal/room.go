package internal

import "github.com/scythe504/skribblr-sync/internal/utils"

// Methods (RoomSnapshot)

func (r RoomSnapshot) Clone() RoomSnapshot {
	c := r
	c.Players = ClonePlayers(r.Players)
	if r.Scores != nil {
		c.Scores = make(map[string]int, len(r.Scores))
		for id, s := range r.Scores {
			c.Scores[id] = s
		}
	}
	return c
}

func (r RoomSnapshot) Drawer() *Player {
	for i := range r.Players {
		if r.Players[i].IsDrawing {
			p := r.Players[i]
			return &p
		}
	}
	return nil
}

// Methods (ClientView)

func (v ClientView) Clone() ClientView {
	c := v
	c.Players = ClonePlayers(v.Players)
	c.LocalPlayer = v.LocalPlayer.Clone()
	return c
}

func (v ClientView) InRoom() bool {
	return v.RoomCode != ""
}

func (v ClientView) InRound() bool {
	return v.CurrentWord != ""
}

// Drawers lists every player flagged as drawing. The server is expected to
// flag at most one; more than one means the snapshot broke that guarantee.
func (v ClientView) Drawers() []Player {
	var drawers []Player
	for _, p := range v.Players {
		if p.IsDrawing {
			drawers = append(drawers, p)
		}
	}
	return drawers
}

func (v ClientView) Drawer() *Player {
	for i := range v.Players {
		if v.Players[i].IsDrawing {
			p := v.Players[i]
			return &p
		}
	}
	return nil
}

func (v ClientView) IsLocalDrawer() bool {
	return v.LocalPlayer != nil && v.LocalPlayer.IsDrawing
}

// CanDraw reports whether local input may produce draw samples: anyone may
// doodle while waiting, only the drawer during a round.
func (v ClientView) CanDraw() bool {
	return !v.InRound() || v.IsLocalDrawer()
}

func (v ClientView) CanGuess() bool {
	return v.InRound() && v.LocalPlayer != nil && !v.LocalPlayer.IsDrawing
}

// Winner returns the first player whose score reached target, or nil.
func (v ClientView) Winner(target int) *Player {
	for i := range v.Players {
		if v.Players[i].Score >= target {
			p := v.Players[i]
			return &p
		}
	}
	return nil
}

// DisplayWord is the word as the local player may see it.
func (v ClientView) DisplayWord() string {
	if v.IsLocalDrawer() {
		return v.CurrentWord
	}
	return utils.GetMaskedWord(v.CurrentWord)
}
