package internal

import "time"

const (
	InitialTimeRemaining = 60
	RoundDuration        = 60 * time.Second
	MaxPlayersPerRoom    = 4
	MinPlayersToStart    = 2
	WinningScore         = 5
	RoomCodeLength       = 4
)

type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDrawing bool   `json:"is_drawing"`
	Score     int    `json:"score"`
}

// RoomSnapshot is the server-authoritative room state delivered at round
// boundaries and by the room directory.
type RoomSnapshot struct {
	Code          string         `json:"code"`
	Players       []Player       `json:"players"`
	CurrentRound  int            `json:"current_round"`
	CurrentWord   string         `json:"current_word"`
	Scores        map[string]int `json:"scores,omitempty"`
	TimeRemaining int            `json:"time_remaining"`
}

// ClientView is the client-local projection of a room.
// An empty RoomCode means the client is not in a room; an empty CurrentWord
// means no round is in progress.
type ClientView struct {
	RoomCode      string   `json:"roomCode,omitempty"`
	LocalPlayer   *Player  `json:"localPlayer,omitempty"`
	Players       []Player `json:"players"`
	Connected     bool     `json:"connected"`
	CurrentWord   string   `json:"currentWord"`
	TimeRemaining int      `json:"timeRemaining"`
}

func NewClientView() ClientView {
	return ClientView{
		Players:       []Player{},
		TimeRemaining: InitialTimeRemaining,
	}
}
