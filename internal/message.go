package internal

type FrameType string

const (
	FrameDraw         FrameType = "draw"
	FrameGuess        FrameType = "guess"
	FrameGameStart    FrameType = "game_start"
	FrameRoundEnd     FrameType = "round_end"
	FrameTimeUpdate   FrameType = "time_update"
	FramePlayerJoined FrameType = "player_joined"
	FramePlayerLeft   FrameType = "player_left"
)

// Message is the envelope of every frame on the room channel.
type Message[T any] struct {
	Type FrameType `json:"type"`
	Data T         `json:"data"`
}

// Event is the closed set of frame payloads.
type Event interface {
	FrameType() FrameType
}

// DrawData is one stroke sample in logical canvas units.
type DrawData struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
}

type GuessData struct {
	PlayerID string `json:"playerId"`
	Guess    string `json:"guess,omitempty"`
	Correct  bool   `json:"correct"`
	Word     string `json:"word,omitempty"` // only set when Correct
}

type RoundData struct {
	Room        RoomSnapshot `json:"room"`
	CurrentWord string       `json:"currentWord"`
}

type GameStartData struct {
	RoundData
}

type RoundEndData struct {
	RoundData
}

type TimeUpdateData struct {
	TimeRemaining int `json:"timeRemaining"`
}

type PlayerJoinedData struct {
	Player Player `json:"player"`
}

type PlayerLeftData struct {
	PlayerID string `json:"playerId"`
}

func (DrawData) FrameType() FrameType         { return FrameDraw }
func (GuessData) FrameType() FrameType        { return FrameGuess }
func (GameStartData) FrameType() FrameType    { return FrameGameStart }
func (RoundEndData) FrameType() FrameType     { return FrameRoundEnd }
func (TimeUpdateData) FrameType() FrameType   { return FrameTimeUpdate }
func (PlayerJoinedData) FrameType() FrameType { return FramePlayerJoined }
func (PlayerLeftData) FrameType() FrameType   { return FramePlayerLeft }

// NewMessage wraps an event in its envelope.
func NewMessage(ev Event) Message[Event] {
	return Message[Event]{Type: ev.FrameType(), Data: ev}
}
