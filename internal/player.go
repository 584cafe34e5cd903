package internal

// ClonePlayers returns a copy of players that shares no backing array with
// the input. A nil input yields an empty, non-nil slice.
func ClonePlayers(players []Player) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	return out
}

// IndexOfPlayer returns the position of the first player with id, or -1.
func IndexOfPlayer(players []Player, id string) int {
	for i := range players {
		if players[i].ID == id {
			return i
		}
	}
	return -1
}

// FindPlayer returns a copy of the player with id, or nil.
func FindPlayer(players []Player, id string) *Player {
	i := IndexOfPlayer(players, id)
	if i < 0 {
		return nil
	}
	p := players[i]
	return &p
}

func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
